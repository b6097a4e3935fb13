// Package mysql implements the target-side Schema Reader: enough
// information_schema introspection of a MySQL/MariaDB database to tell
// the Orchestrator (C11) which tables already exist there, for
// --data-only mode and for the internal/diff reuse described in the
// component design notes.
package mysql

import (
	"context"
	"database/sql"
	"strings"

	"smf/internal/core"
	"smf/internal/introspect"
)

func init() {
	introspect.Register(core.DialectMySQL, New)
	introspect.Register(core.DialectMariaDB, New)
}

type introspecter struct{}

func New() introspect.Introspecter {
	return &introspecter{}
}

// introspectCtx threads the request context and connection through the
// table/column/index readers without repeating both as parameters on
// every helper.
type introspectCtx struct {
	ctx context.Context
	db  *sql.DB
}

func (i *introspecter) Introspect(ctx context.Context, db *sql.DB) (*core.Database, error) {
	dialect, _, err := detectDialect(ctx, db)
	if err != nil {
		return nil, err
	}

	ic := &introspectCtx{ctx: ctx, db: db}
	result := &core.Database{Dialect: &dialect}
	if err := introspectTables(ic, result); err != nil {
		return nil, err
	}
	return result, nil
}

func introspectTables(ic *introspectCtx, db *core.Database) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range names {
		t := &core.Table{Name: name}
		if err := introspectColumns(ic, t); err != nil {
			return err
		}
		if err := introspectIndexes(ic, t); err != nil {
			return err
		}
		db.Tables = append(db.Tables, t)
	}
	return nil
}

func introspectColumns(ic *introspectCtx, t *core.Table) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT column_name, ordinal_position, column_type, is_nullable,
		       column_default, extra, column_key
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var (
			name, columnType, nullable, extra, columnKey string
			ordinal                                       int
			defaultVal                                    sql.NullString
		)
		if err := rows.Scan(&name, &ordinal, &columnType, &nullable, &defaultVal, &extra, &columnKey); err != nil {
			return err
		}

		col := &core.Column{
			Name:          name,
			Ordinal:       ordinal,
			SourceType:    columnType,
			TargetType:    columnType,
			Nullable:      nullable == "YES",
			AutoIncrement: strings.Contains(extra, "auto_increment"),
		}
		if defaultVal.Valid {
			col.DefaultExpr = defaultVal.String
		}
		t.Columns = append(t.Columns, col)
		if columnKey == "PRI" {
			pk = append(pk, name)
		}
	}
	t.PrimaryKey = pk
	return rows.Err()
}

func introspectIndexes(ic *introspectCtx, t *core.Table) error {
	rows, err := ic.db.QueryContext(ic.ctx, `
		SELECT index_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		  AND index_name <> 'PRIMARY'
		ORDER BY index_name, seq_in_index`, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	order := make([]string, 0)
	byName := make(map[string]*core.Index)
	for rows.Next() {
		var (
			indexName, columnName string
			nonUnique             int
		)
		if err := rows.Scan(&indexName, &nonUnique, &columnName); err != nil {
			return err
		}
		idx, ok := byName[indexName]
		if !ok {
			idx = &core.Index{Name: indexName, Unique: nonUnique == 0}
			byName[indexName] = idx
			order = append(order, indexName)
		}
		idx.Columns = append(idx.Columns, core.IndexColumn{Name: columnName, Direction: core.SortAsc})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range order {
		t.Indexes = append(t.Indexes, byName[name])
	}
	return nil
}
