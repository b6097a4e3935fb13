package validate

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"smf/internal/core"
)

// sampleSize is the fixed sample spec.md §4.8 specifies for content
// comparison once row counts agree.
const sampleSize = 100

// TableResult is the Post-Validator's finding for one table.
type TableResult struct {
	Table         string
	SourceCount   int64
	TargetCount   int64
	CountsMatch   bool
	SamplesMatch  bool
	SampleChecked bool
}

// PostValidator compares row counts and sampled content between the
// source and the target after data load (C10).
type PostValidator struct{}

// NewPostValidator returns a PostValidator. The zero value is also ready
// to use.
func NewPostValidator() *PostValidator {
	return &PostValidator{}
}

// CompareCounts runs spec.md §4.8's first check: COUNT(*) on both sides.
// Unequal counts short-circuit sample comparison, per the rule that a
// count mismatch fails the table's validation outright.
func (v *PostValidator) CompareCounts(ctx context.Context, sourceDB, targetDB *sql.DB, table string) (*TableResult, error) {
	sourceCount, err := countRows(ctx, sourceDB, `"`+strings.ReplaceAll(table, `"`, `""`)+`"`)
	if err != nil {
		return nil, fmt.Errorf("%w: source count for %q: %w", core.ErrValidationMismatch, table, err)
	}
	targetCount, err := countRows(ctx, targetDB, quoteIdentifier(table))
	if err != nil {
		return nil, fmt.Errorf("%w: target count for %q: %w", core.ErrValidationMismatch, table, err)
	}

	return &TableResult{
		Table:       table,
		SourceCount: sourceCount,
		TargetCount: targetCount,
		CountsMatch: sourceCount == targetCount,
	}, nil
}

func countRows(ctx context.Context, db *sql.DB, quotedTable string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quotedTable).Scan(&n)
	return n, err
}

// CompareSamples runs spec.md §4.8's second check, only meaningful when
// CompareCounts reported equal, non-zero counts: it selects up to
// sampleSize rows from each side (no ORDER BY — spec.md §9 Open Question 3
// documents this as a weak guarantee), hashes each row's canonical string
// form with FNV-128, and compares the sorted multisets of hashes so the
// verdict is invariant under row order (spec.md §8 property 10).
func (v *PostValidator) CompareSamples(ctx context.Context, sourceDB, targetDB *sql.DB, table string, columns []string) (bool, error) {
	sourceHashes, err := sampleHashes(ctx, sourceDB, `"`+strings.ReplaceAll(table, `"`, `""`)+`"`, columns)
	if err != nil {
		return false, fmt.Errorf("%w: sourcing sample for %q: %w", core.ErrValidationMismatch, table, err)
	}
	targetHashes, err := sampleHashes(ctx, targetDB, quoteIdentifier(table), columns)
	if err != nil {
		return false, fmt.Errorf("%w: sampling target for %q: %w", core.ErrValidationMismatch, table, err)
	}

	sort.Strings(sourceHashes)
	sort.Strings(targetHashes)
	if len(sourceHashes) != len(targetHashes) {
		return false, nil
	}
	for i := range sourceHashes {
		if sourceHashes[i] != targetHashes[i] {
			return false, nil
		}
	}
	return true, nil
}

func sampleHashes(ctx context.Context, db *sql.DB, quotedTable string, columns []string) ([]string, error) {
	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = quoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s LIMIT %d", strings.Join(quotedCols, ", "), quotedTable, sampleSize)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		hashes = append(hashes, hashRow(columns, values))
	}
	return hashes, rows.Err()
}

// hashRow canonicalizes a row into a deterministic string (columns in a
// fixed, sorted order, so the encoding does not depend on SELECT order)
// and returns its FNV-128 digest as a hex string.
func hashRow(columns []string, values []any) string {
	type kv struct {
		k string
		v any
	}
	pairs := make([]kv, len(columns))
	for i, c := range columns {
		pairs[i] = kv{c, values[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%s=%v;", p.k, p.v)
	}

	h := fnv.New128a()
	_, _ = h.Write([]byte(sb.String()))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// MissingRow is one row found present on the source but absent on the
// target by FindMissingRows.
type MissingRow struct {
	PKValue any
	Values  []any
}

// FindMissingRows implements spec.md §4.8's find_missing_rows for a table
// with a single-column primary key: it selects up to limit source rows
// whose key is NOT IN targetPKs, or the first limit source rows when
// targetPKs is empty. An empty pkColumn is an error; there is no fallback
// for tables without a single-column primary key.
func (v *PostValidator) FindMissingRows(ctx context.Context, sourceDB *sql.DB, table, pkColumn string, targetPKs []any, limit int) ([]MissingRow, error) {
	if pkColumn == "" {
		return nil, fmt.Errorf("%w: FindMissingRows requires a single-column primary key", core.ErrValidationMismatch)
	}

	placeholders := make([]string, len(targetPKs))
	args := make([]any, len(targetPKs))
	for i, pk := range targetPKs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = pk
	}

	qTable := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	qPK := `"` + strings.ReplaceAll(pkColumn, `"`, `""`) + `"`

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s NOT IN (%s) LIMIT %d",
		qTable, qPK, strings.Join(placeholders, ", "), limit)
	if len(targetPKs) == 0 {
		query = fmt.Sprintf("SELECT * FROM %s LIMIT %d", qTable, limit)
		args = nil
	}

	rows, err := sourceDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: finding missing rows in %q: %w", core.ErrValidationMismatch, table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	pkIdx := -1
	for i, c := range cols {
		if c == pkColumn {
			pkIdx = i
			break
		}
	}

	var missing []MissingRow
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		var pkVal any
		if pkIdx >= 0 {
			pkVal = values[pkIdx]
		}
		missing = append(missing, MissingRow{PKValue: pkVal, Values: values})
	}
	return missing, rows.Err()
}
