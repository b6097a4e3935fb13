// Package stream implements the Chunk Streamer (C6): it reads rows from a
// PostgreSQL table in bounded chunks, in cursor mode when a single-column
// primary key is known and offset mode otherwise, applying an optional
// RowFilter to every fetch, per spec.md §4.4.
package stream

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"smf/internal/core"
)

// Mode is the pagination strategy chosen for a table.
type Mode int

const (
	// ModeCursor paginates via "WHERE pk > :cursor ORDER BY pk LIMIT n",
	// selected whenever the table has a single-column primary key.
	ModeCursor Mode = iota
	// ModeOffset paginates via "ORDER BY col LIMIT n OFFSET k", the
	// fallback used only when no primary key is available (slower on
	// large tables, per spec.md §4.4).
	ModeOffset
)

// ModeFor reports which pagination mode applies to a table, per spec.md
// §4.4: cursor mode when (and only when) the table carries a single-column
// primary key.
func ModeFor(t *core.Table) Mode {
	if _, ok := t.SinglePrimaryKeyColumn(); ok {
		return ModeCursor
	}
	return ModeOffset
}

// Row is one fetched row, column values in the same order as the Columns
// slice passed to Fetch.
type Row struct {
	Values []any
}

// Chunk is the result of one bounded fetch.
type Chunk struct {
	Rows []Row
	// Next is the cursor to pass to the following cursor-mode fetch;
	// meaningless (zero value) for offset-mode chunks.
	Next Cursor
	// NextOffset is the offset to pass to the following offset-mode
	// fetch; meaningless for cursor-mode chunks.
	NextOffset int64
}

// Streamer fetches chunks from the PostgreSQL source via a shared pgx pool.
type Streamer struct {
	dialect pgDialect
}

// New returns a Streamer. The zero value is also ready to use.
func New() *Streamer {
	return &Streamer{dialect: defaultDialect}
}

func (s *Streamer) quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = s.dialect.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// filterClause renders the RowFilter as a SQL fragment and its bind
// arguments, starting bind placeholders at argStart ($N).
func (s *Streamer) filterClause(filter *core.RowFilter, argStart int) (clause string, args []any) {
	if filter == nil || filter.Column == "" {
		return "", nil
	}
	col := s.dialect.QuoteIdentifier(filter.Column)
	n := argStart
	var parts []string
	if filter.After != "" {
		parts = append(parts, fmt.Sprintf("%s >= $%d", col, n))
		args = append(args, filter.After)
		n++
	}
	if filter.Before != "" {
		parts = append(parts, fmt.Sprintf("%s < $%d", col, n))
		args = append(args, filter.Before)
		n++
	}
	if len(parts) == 0 {
		return "", nil
	}
	return strings.Join(parts, " AND "), args
}

// FetchCursor fetches up to chunkSize rows in cursor mode. pkColumn must be
// the table's single-column primary key (see ModeFor/SinglePrimaryKeyColumn).
func (s *Streamer) FetchCursor(ctx context.Context, pool *pgxpool.Pool, table string, columns []string, pkColumn string, cursor Cursor, chunkSize int, filter *core.RowFilter) (Chunk, error) {
	qTable := s.dialect.QuoteIdentifier(table)
	qPK := s.dialect.QuoteIdentifier(pkColumn)

	var where []string
	var args []any
	argN := 1
	if cursor.Started() {
		where = append(where, fmt.Sprintf("%s > $%d", qPK, argN))
		args = append(args, cursor.Value())
		argN++
	}
	if clause, fargs := s.filterClause(filter, argN); clause != "" {
		where = append(where, clause)
		args = append(args, fargs...)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", s.quoteColumns(columns), qTable)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s LIMIT %d", qPK, chunkSize)

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: cursor fetch on %q: %w", core.ErrSchemaRead, table, err)
	}
	defer rows.Close()

	chunk, pkIdx, err := s.collect(rows, columns, pkColumn)
	if err != nil {
		return Chunk{}, err
	}
	if len(chunk.Rows) > 0 {
		chunk.Next = At(chunk.Rows[len(chunk.Rows)-1].Values[pkIdx])
	} else {
		chunk.Next = cursor
	}
	return chunk, nil
}

// FetchOffset fetches up to chunkSize rows in offset mode, ordering by
// orderColumn (spec.md §4.4's "first column" fallback ordering).
func (s *Streamer) FetchOffset(ctx context.Context, pool *pgxpool.Pool, table string, columns []string, orderColumn string, offset int64, chunkSize int, filter *core.RowFilter) (Chunk, error) {
	qTable := s.dialect.QuoteIdentifier(table)
	qOrder := s.dialect.QuoteIdentifier(orderColumn)

	var where []string
	var args []any
	if clause, fargs := s.filterClause(filter, 1); clause != "" {
		where = append(where, clause)
		args = append(args, fargs...)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", s.quoteColumns(columns), qTable)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s LIMIT %d OFFSET %d", qOrder, chunkSize, offset)

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return Chunk{}, fmt.Errorf("%w: offset fetch on %q: %w", core.ErrSchemaRead, table, err)
	}
	defer rows.Close()

	chunk, _, err := s.collect(rows, columns, "")
	if err != nil {
		return Chunk{}, err
	}
	chunk.NextOffset = offset + int64(len(chunk.Rows))
	return chunk, nil
}

// CountRows returns the total row count for a table under the given
// filter, using the same predicate FetchCursor/FetchOffset apply, so
// COUNT(*) and the sum of streamed chunk sizes always agree (spec.md §8
// property 6).
func (s *Streamer) CountRows(ctx context.Context, pool *pgxpool.Pool, table string, filter *core.RowFilter) (int64, error) {
	qTable := s.dialect.QuoteIdentifier(table)
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", qTable)

	var args []any
	if clause, fargs := s.filterClause(filter, 1); clause != "" {
		sql += " WHERE " + clause
		args = fargs
	}

	var count int64
	if err := pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count on %q: %w", core.ErrSchemaRead, table, err)
	}
	return count, nil
}

func (s *Streamer) collect(rows pgx.Rows, columns []string, pkColumn string) (Chunk, int, error) {
	pkIdx := -1
	for i, c := range columns {
		if c == pkColumn {
			pkIdx = i
			break
		}
	}

	var chunk Chunk
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Chunk{}, -1, fmt.Errorf("%w: reading row values: %w", core.ErrSchemaRead, err)
		}
		chunk.Rows = append(chunk.Rows, Row{Values: values})
	}
	if err := rows.Err(); err != nil {
		return Chunk{}, -1, fmt.Errorf("%w: iterating rows: %w", core.ErrSchemaRead, err)
	}
	return chunk, pkIdx, nil
}
