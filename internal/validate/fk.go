// Package validate implements the FK Validator (C9) and Post-Validator
// (C10): pre-checking orphaned rows before a foreign key is enabled, and
// comparing row counts/sampled content after data load, per spec.md
// §4.7/§4.8.
package validate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"smf/internal/core"
)

// maxOrphanSamples bounds how many sample orphan tuples the FK Validator
// reports in its warning, per spec.md §4.7.
const maxOrphanSamples = 10

// OrphanResult reports the FK Validator's findings for one constraint.
type OrphanResult struct {
	ConstraintName string
	OrphanCount    int64
	Samples        [][]any
}

// FKValidator checks referential integrity on the target before a foreign
// key constraint is added.
type FKValidator struct{}

// NewFKValidator returns a FKValidator. The zero value is also ready to use.
func NewFKValidator() *FKValidator {
	return &FKValidator{}
}

// CheckOrphans confirms the referenced table exists and counts rows in
// table whose local FK columns are all non-NULL but have no matching row
// in fk.ReferencedTable on fk.ReferencedColumns, per spec.md §4.7 steps
// 1-2. NULLs in any local column exempt a row from the orphan check (a
// genuinely optional FK reference is not an orphan).
func (v *FKValidator) CheckOrphans(ctx context.Context, db *sql.DB, table string, fk *core.Constraint) (*OrphanResult, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) > 0 FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?`, fk.ReferencedTable).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("%w: checking referenced table %q exists: %w", core.ErrOrphanedFK, fk.ReferencedTable, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: referenced table %q does not exist on target", core.ErrOrphanedFK, fk.ReferencedTable)
	}

	notNull := make([]string, len(fk.Columns))
	joinOn := make([]string, len(fk.Columns))
	for i, col := range fk.Columns {
		notNull[i] = fmt.Sprintf("t.%s IS NOT NULL", quoteIdentifier(col))
		joinOn[i] = fmt.Sprintf("t.%s = r.%s", quoteIdentifier(col), quoteIdentifier(fk.ReferencedColumns[i]))
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s t
		WHERE %s AND NOT EXISTS (
			SELECT 1 FROM %s r WHERE %s
		)`,
		quoteIdentifier(table), strings.Join(notNull, " AND "),
		quoteIdentifier(fk.ReferencedTable), strings.Join(joinOn, " AND "))

	var count int64
	if err := db.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return nil, fmt.Errorf("%w: counting orphans for %q: %w", core.ErrOrphanedFK, fk.Name, err)
	}

	result := &OrphanResult{ConstraintName: fk.Name, OrphanCount: count}
	if count == 0 {
		return result, nil
	}

	cols := make([]string, len(fk.Columns))
	for i, c := range fk.Columns {
		cols[i] = "t." + quoteIdentifier(c)
	}
	sampleQuery := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE %s AND NOT EXISTS (
			SELECT 1 FROM %s r WHERE %s
		) LIMIT %d`,
		strings.Join(cols, ", "), quoteIdentifier(table), strings.Join(notNull, " AND "),
		quoteIdentifier(fk.ReferencedTable), strings.Join(joinOn, " AND "), maxOrphanSamples)

	rows, err := db.QueryContext(ctx, sampleQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: sampling orphans for %q: %w", core.ErrOrphanedFK, fk.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(fk.Columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scanning orphan sample for %q: %w", core.ErrOrphanedFK, fk.Name, err)
		}
		result.Samples = append(result.Samples, values)
	}
	return result, rows.Err()
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
