// Package writer implements the Bulk Writer (C7): it batches chunks into
// multi-row INSERTs against the MySQL/MariaDB target, with a per-row
// fallback on batch failure, per spec.md §4.5.
package writer

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"smf/internal/core"
)

// maxCollectedErrors is the fixed cutoff spec.md §4.5 specifies: the
// writer stops collecting individual row errors after this many and raises
// a composite error with the skip count.
const maxCollectedErrors = 10

// RowError records one row that failed even under the per-row fallback.
type RowError struct {
	RowIndex int
	Err      error
	// Column is the best-effort diagnosis from findProblematicColumn,
	// empty unless the failure looked date/datetime-related.
	Column string
}

// BatchResult summarizes the outcome of WriteBatch.
type BatchResult struct {
	Inserted int
	Skipped  int
	Errors   []RowError
}

// Writer batches rows into multi-row INSERTs against a target connection.
type Writer struct{}

// New returns a Writer. The zero value is also ready to use.
func New() *Writer {
	return &Writer{}
}

// WriteBatch writes one batch as a single multi-row INSERT. If that fails,
// it retries the batch row by row (the same prepared single-row INSERT),
// collecting up to maxCollectedErrors row failures before giving up on the
// remainder of the batch, per spec.md §4.5.
func (w *Writer) WriteBatch(ctx context.Context, conn *sql.Conn, table string, columns []string, rows [][]any) (BatchResult, error) {
	if len(rows) == 0 {
		return BatchResult{}, nil
	}

	stmt, args := w.buildInsert(table, columns, len(rows))
	for _, row := range rows {
		args = append(args, row...)
	}

	if _, err := conn.ExecContext(ctx, stmt, args...); err == nil {
		return BatchResult{Inserted: len(rows)}, nil
	}

	return w.writeRowByRow(ctx, conn, table, columns, rows)
}

func (w *Writer) writeRowByRow(ctx context.Context, conn *sql.Conn, table string, columns []string, rows [][]any) (BatchResult, error) {
	rowStmt, _ := w.buildInsert(table, columns, 1)

	var result BatchResult
	for i, row := range rows {
		if _, err := conn.ExecContext(ctx, rowStmt, row...); err != nil {
			col := ""
			if looksDateRelated(err) {
				col = findProblematicColumn(columns, row)
			}
			result.Errors = append(result.Errors, RowError{RowIndex: i, Err: err, Column: col})
			result.Skipped++
			if len(result.Errors) >= maxCollectedErrors {
				break
			}
			continue
		}
		result.Inserted++
	}

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("%w: %d row(s) skipped in table %q after batch insert failure",
			core.ErrBatchInsert, result.Skipped, table)
	}
	return result, nil
}

func (w *Writer) buildInsert(table string, columns []string, rowCount int) (string, []any) {
	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = quoteIdentifier(c)
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	placeholders := make([]string, rowCount)
	for i := range placeholders {
		placeholders[i] = rowPlaceholder
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdentifier(table), strings.Join(quotedCols, ", "), strings.Join(placeholders, ","))
	return stmt, make([]any, 0, len(columns)*rowCount)
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func looksDateRelated(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "datetime") || strings.Contains(msg, "date")
}

// corruptYearPattern matches the corruption signature spec.md §4.1 rule 1
// describes: a leading run of 5 or more digits, as would appear in a
// mangled year like "202511".
var corruptYearPattern = regexp.MustCompile(`^\d{5,}`)

// findProblematicColumn scans a failed row's values for the corrupt-year
// signature among columns whose name suggests a date/timestamp, returning
// a best-effort diagnosis string for the WARNING log (spec.md §4.5).
func findProblematicColumn(columns []string, row []any) string {
	for i, name := range columns {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, "date") && !strings.Contains(lower, "time") && !strings.Contains(lower, "_at") {
			continue
		}
		if i >= len(row) {
			continue
		}
		s, ok := row[i].(string)
		if !ok {
			continue
		}
		if corruptYearPattern.MatchString(s) {
			return name
		}
	}
	return ""
}

// WithForeignKeyChecksDisabled disables FOREIGN_KEY_CHECKS on conn, runs
// fn, and re-enables the flag before returning regardless of how fn exits
// — including context cancellation — per spec.md §4.5/§9's scoped
// acquisition requirement. Re-enabling uses a background context so
// cancellation of ctx cannot prevent the guaranteed release.
func WithForeignKeyChecksDisabled(ctx context.Context, conn *sql.Conn, fn func() error) error {
	if _, err := conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return fmt.Errorf("writer: disabling foreign key checks: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 1")
	}()

	return fn()
}
