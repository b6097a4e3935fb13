// Package postgresql implements the source-side Schema Reader: it reads a
// PostgreSQL database's catalogs and returns a *core.Database describing
// every table the migration is configured to move.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"smf/internal/core"
	"smf/internal/introspect"
)

func init() {
	introspect.Register(core.DialectPostgreSQL, New)
}

type postgresqlIntrospecter struct {
	// Schema restricts introspection to a single PostgreSQL schema. Empty
	// means "every non-system schema", matching list_tables's fallback.
	Schema  string
	Include []string
	Exclude []string
}

// New constructs the default, unfiltered PostgreSQL introspecter. Callers
// that need table filtering use NewWithFilter instead; the registry only
// ever needs a zero-value constructor.
func New() introspect.Introspecter {
	return &postgresqlIntrospecter{}
}

// NewWithFilter constructs a PostgreSQL introspecter scoped to a schema
// and an include/exclude table list, per spec.md §4.2's list_tables rule:
// included-minus-excluded, exclude wins.
func NewWithFilter(schema string, include, exclude []string) introspect.Introspecter {
	return &postgresqlIntrospecter{Schema: schema, Include: include, Exclude: exclude}
}

func (i *postgresqlIntrospecter) Introspect(ctx context.Context, db *sql.DB) (*core.Database, error) {
	names, err := i.listTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", core.ErrSchemaRead, err)
	}

	result := &core.Database{Dialect: dialectPtr(core.DialectPostgreSQL)}
	for _, tn := range names {
		table, err := i.readTable(ctx, db, tn)
		if err != nil {
			return nil, fmt.Errorf("%w: table %q: %v", core.ErrSchemaRead, tn.table, err)
		}
		result.Tables = append(result.Tables, table)
	}
	return result, nil
}

func dialectPtr(d core.Dialect) *core.Dialect { return &d }

type tableName struct {
	schema string
	table  string
}

const listTablesQuery = `
SELECT schemaname, tablename
FROM pg_tables
WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
  AND schemaname NOT LIKE 'pg_toast%'
  AND schemaname NOT LIKE 'pg_temp%'
  AND ($1 = '' OR schemaname = $1)
ORDER BY schemaname, tablename`

const listTablesFallbackQuery = `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
  AND table_schema NOT LIKE 'pg_toast%'
  AND table_schema NOT LIKE 'pg_temp%'
  AND ($1 = '' OR table_schema = $1)
ORDER BY table_schema, table_name`

// listTables implements spec.md §4.2's list_tables: query pg_tables,
// falling back to information_schema.tables if that returns empty, then
// apply the include/exclude whitelist/blacklist (exclude wins).
func (i *postgresqlIntrospecter) listTables(ctx context.Context, db *sql.DB) ([]tableName, error) {
	names, err := i.queryTableNames(ctx, db, listTablesQuery)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names, err = i.queryTableNames(ctx, db, listTablesFallbackQuery)
		if err != nil {
			return nil, err
		}
	}
	return i.applyFilter(names), nil
}

func (i *postgresqlIntrospecter) queryTableNames(ctx context.Context, db *sql.DB, query string) ([]tableName, error) {
	rows, err := db.QueryContext(ctx, query, i.Schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []tableName
	for rows.Next() {
		var tn tableName
		if err := rows.Scan(&tn.schema, &tn.table); err != nil {
			return nil, err
		}
		names = append(names, tn)
	}
	return names, rows.Err()
}

func (i *postgresqlIntrospecter) applyFilter(names []tableName) []tableName {
	includeSet := toSet(i.Include)
	excludeSet := toSet(i.Exclude)

	filtered := names[:0]
	for _, tn := range names {
		if len(includeSet) > 0 && !includeSet[tn.table] {
			continue
		}
		if excludeSet[tn.table] {
			continue
		}
		filtered = append(filtered, tn)
	}
	return filtered
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func (i *postgresqlIntrospecter) readTable(ctx context.Context, db *sql.DB, tn tableName) (*core.Table, error) {
	table := &core.Table{SchemaName: tn.schema, Name: tn.table}

	columns, err := readColumns(ctx, db, tn)
	if err != nil {
		return nil, fmt.Errorf("read_columns: %w", err)
	}
	table.Columns = columns

	pk, err := readPrimaryKey(ctx, db, tn)
	if err != nil {
		return nil, fmt.Errorf("read_primary_key: %w", err)
	}
	table.PrimaryKey = pk
	markAutoIncrement(table)

	indexes, err := readIndexes(ctx, db, tn)
	if err != nil {
		return nil, fmt.Errorf("read_indexes: %w", err)
	}
	table.Indexes = indexes

	fks, err := readForeignKeys(ctx, db, tn)
	if err != nil {
		return nil, fmt.Errorf("read_foreign_keys: %w", err)
	}
	table.Constraints = fks

	if len(pk) > 0 {
		table.Constraints = append(table.Constraints, &core.Constraint{
			Name: tn.table + "_pkey", Type: core.ConstraintPrimaryKey, Columns: pk,
		})
	}

	return table, nil
}

const readColumnsQuery = `
SELECT column_name, ordinal_position, data_type, character_maximum_length,
       numeric_precision, numeric_scale, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

func readColumns(ctx context.Context, db *sql.DB, tn tableName) ([]*core.Column, error) {
	rows, err := db.QueryContext(ctx, readColumnsQuery, tn.schema, tn.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []*core.Column
	for rows.Next() {
		var (
			name, dataType, isNullable string
			ordinal                    int
			charMaxLen, numPrec, numScale sql.NullInt64
			defaultExpr                sql.NullString
		)
		if err := rows.Scan(&name, &ordinal, &dataType, &charMaxLen, &numPrec, &numScale, &isNullable, &defaultExpr); err != nil {
			return nil, err
		}

		col := &core.Column{
			Name:       name,
			Ordinal:    ordinal,
			SourceType: dataType,
			Nullable:   isNullable == "YES",
			Kind:       core.ClassifyColumn(dataType),
		}
		if charMaxLen.Valid {
			n := int(charMaxLen.Int64)
			col.CharacterMaxLength = &n
		}
		if numPrec.Valid {
			n := int(numPrec.Int64)
			col.NumericPrecision = &n
		}
		if numScale.Valid {
			n := int(numScale.Int64)
			col.NumericScale = &n
		}
		if defaultExpr.Valid {
			col.DefaultExpr = defaultExpr.String
		}
		col.TargetType = core.MapType(dataType, col.CharacterMaxLength, col.NumericPrecision, col.NumericScale)
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// markAutoIncrement flags single-column integer primary keys backed by a
// nextval(...) default as auto-increment, so the DDL Emitter (C4) can
// attach AUTO_INCREMENT instead of emitting a dead sequence default.
func markAutoIncrement(table *core.Table) {
	if len(table.PrimaryKey) != 1 {
		return
	}
	col := table.FindColumn(table.PrimaryKey[0])
	if col == nil {
		return
	}
	if _, ok := core.TranslateDefault(col.DefaultExpr); !ok && col.DefaultExpr != "" {
		col.AutoIncrement = true
	}
}

const readPrimaryKeyQuery = `
SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.ordinal_position`

func readPrimaryKey(ctx context.Context, db *sql.DB, tn tableName) ([]string, error) {
	rows, err := db.QueryContext(ctx, readPrimaryKeyQuery, tn.schema, tn.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// readIndexesQuery unnests indkey and indoption together with ordinality
// so each column's position and sort direction line up positionally, per
// spec.md §4.2. Primary-key indexes are excluded via indisprimary.
const readIndexesQuery = `
SELECT
  ic.relname AS index_name,
  ix.indisunique,
  am.amname,
  a.attname,
  opt.option
FROM pg_index ix
JOIN pg_class ic ON ic.oid = ix.indexrelid
JOIN pg_class tc ON tc.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = tc.relnamespace
JOIN pg_am am ON am.oid = ic.relam
JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord) ON true
JOIN LATERAL unnest(ix.indoption) WITH ORDINALITY AS opt(option, ord2) ON opt.ord2 = k.ord
JOIN pg_attribute a ON a.attrelid = tc.oid AND a.attnum = k.attnum
WHERE n.nspname = $1 AND tc.relname = $2 AND NOT ix.indisprimary
ORDER BY ic.relname, k.ord`

func readIndexes(ctx context.Context, db *sql.DB, tn tableName) ([]*core.Index, error) {
	rows, err := db.QueryContext(ctx, readIndexesQuery, tn.schema, tn.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order := make([]string, 0)
	byName := make(map[string]*core.Index)
	for rows.Next() {
		var (
			indexName, amname, attname string
			unique                     bool
			option                     int
		)
		if err := rows.Scan(&indexName, &unique, &amname, &attname, &option); err != nil {
			return nil, err
		}
		idx, ok := byName[indexName]
		if !ok {
			idx = &core.Index{Name: indexName, Unique: unique, AccessMethod: amname}
			byName[indexName] = idx
			order = append(order, indexName)
		}
		direction := core.SortAsc
		if option&1 == 1 {
			direction = core.SortDesc
		}
		idx.Columns = append(idx.Columns, core.IndexColumn{Name: attname, Direction: direction})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]*core.Index, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, byName[name])
	}
	return indexes, nil
}

const readForeignKeysQuery = `
SELECT
  tc.constraint_name,
  kcu.column_name,
  kcu.ordinal_position,
  ccu.table_name AS referenced_table,
  ccu.column_name AS referenced_column,
  rc.update_rule,
  rc.delete_rule
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
JOIN information_schema.referential_constraints rc
  ON tc.constraint_name = rc.constraint_name AND tc.table_schema = rc.constraint_schema
WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'FOREIGN KEY'
ORDER BY tc.constraint_name, kcu.ordinal_position`

// readForeignKeys groups rows by constraint name, preserving per-row
// column order, per spec.md §4.2.
func readForeignKeys(ctx context.Context, db *sql.DB, tn tableName) ([]*core.Constraint, error) {
	rows, err := db.QueryContext(ctx, readForeignKeysQuery, tn.schema, tn.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order := make([]string, 0)
	byName := make(map[string]*core.Constraint)
	for rows.Next() {
		var (
			name, column, refTable, refColumn, updateRule, deleteRule string
			ordinal                                                   int
		)
		if err := rows.Scan(&name, &column, &ordinal, &refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return nil, err
		}
		con, ok := byName[name]
		if !ok {
			con = &core.Constraint{
				Name: name, Type: core.ConstraintForeignKey, ReferencedTable: refTable,
				OnUpdate: core.NormalizeReferentialAction(updateRule),
				OnDelete: core.NormalizeReferentialAction(deleteRule),
			}
			byName[name] = con
			order = append(order, name)
		}
		con.Columns = append(con.Columns, column)
		con.ReferencedColumns = append(con.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cons := make([]*core.Constraint, 0, len(order))
	for _, name := range order {
		cons = append(cons, byName[name])
	}
	sort.Slice(cons, func(a, b int) bool { return cons[a].Name < cons[b].Name })
	return cons, nil
}
