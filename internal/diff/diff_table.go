package diff

import (
	"strconv"
	"strings"

	"smf/internal/core"
)

func compareTable(oldT, newT *core.Table, opts Options) *TableDiff {
	td := &TableDiff{Name: newT.Name}

	compareColumns(oldT.Columns, newT.Columns, td, opts)
	compareConstraints(oldT.Constraints, newT.Constraints, td)
	markConstraintsForRebuild(oldT.Constraints, newT.Constraints, td)
	compareIndexes(oldT.Indexes, newT.Indexes, td)
	compareOptions(oldT, newT, td)

	if td.isEmpty() {
		return nil
	}

	td.sort()
	return td
}

func compareColumns(oldItems, newItems []*core.Column, td *TableDiff, opts Options) {
	oldMap, oldCollisions := mapColumnsByName(oldItems)
	newMap, newCollisions := mapColumnsByName(newItems)
	for _, c := range oldCollisions {
		td.Warnings = append(td.Warnings, "old table columns: "+c)
	}
	for _, c := range newCollisions {
		td.Warnings = append(td.Warnings, "new table columns: "+c)
	}

	for name, newItem := range newMap {
		oldItem, exists := oldMap[name]
		if !exists {
			td.AddedColumns = append(td.AddedColumns, newItem)
			continue
		}
		if !equalColumn(oldItem, newItem) {
			td.ModifiedColumns = append(td.ModifiedColumns, &ColumnChange{
				Name:    newItem.Name,
				Old:     oldItem,
				New:     newItem,
				Changes: columnFieldChanges(oldItem, newItem),
			})
		}
	}

	for name, oldItem := range oldMap {
		if _, exists := newMap[name]; !exists {
			td.RemovedColumns = append(td.RemovedColumns, oldItem)
		}
	}

	if opts.DetectColumnRenames {
		td.detectColumnRenames()
	}
}

func equalColumn(a, b *core.Column) bool {
	return compareColumnAttrs(a, b).allMatch()
}

func columnFieldChanges(oldC, newC *core.Column) []*FieldChange {
	c := &fieldChangeCollector{}

	if !strings.EqualFold(oldC.SourceType, newC.SourceType) {
		c.Add("source_type", oldC.SourceType, newC.SourceType)
	}
	if !strings.EqualFold(oldC.TargetType, newC.TargetType) {
		c.Add("target_type", oldC.TargetType, newC.TargetType)
	}
	c.Add("nullable", strconv.FormatBool(oldC.Nullable), strconv.FormatBool(newC.Nullable))
	c.Add("auto_increment", strconv.FormatBool(oldC.AutoIncrement), strconv.FormatBool(newC.AutoIncrement))
	c.Add("default", strings.TrimSpace(oldC.DefaultExpr), strings.TrimSpace(newC.DefaultExpr))
	c.Add("kind", string(oldC.Kind), string(newC.Kind))

	return c.Changes
}

func compareOptions(oldT, newT *core.Table, td *TableDiff) {
	oldOpt := tableOptionMap(oldT)
	newOpt := tableOptionMap(newT)
	for _, k := range unionKeys(oldOpt, newOpt) {
		ov, nv := oldOpt[k], newOpt[k]
		if ov == nv {
			continue
		}
		td.ModifiedOptions = append(td.ModifiedOptions, &TableOptionChange{Name: k, Old: ov, New: nv})
	}
}

func tableOptionMap(t *core.Table) map[string]string {
	m := make(map[string]string, 3)
	if t.Options.MySQL == nil {
		return m
	}
	o := t.Options.MySQL

	addStr := func(name, val string) {
		if v := strings.TrimSpace(val); v != "" {
			m[name] = v
		}
	}

	addStr("ENGINE", o.Engine)
	addStr("CHARSET", o.Charset)
	addStr("COLLATE", o.Collate)

	return m
}

func (td *TableDiff) sort() {
	sortNamed(td.AddedColumns)
	sortNamed(td.RemovedColumns)
	// ColumnRename needs special handling - it uses New.Name, not a direct Name field
	sortByFunc(td.RenamedColumns, func(r *ColumnRename) string {
		if r == nil || r.New == nil {
			return ""
		}
		return r.New.Name
	})
	sortNamed(td.ModifiedColumns)
	sortNamed(td.AddedConstraints)
	sortNamed(td.RemovedConstraints)
	sortNamed(td.ModifiedConstraints)
	sortNamed(td.AddedIndexes)
	sortNamed(td.RemovedIndexes)
	sortNamed(td.ModifiedIndexes)
	sortNamed(td.ModifiedOptions)
}

func (td *TableDiff) isEmpty() bool {
	return len(td.AddedColumns) == 0 &&
		len(td.RemovedColumns) == 0 &&
		len(td.RenamedColumns) == 0 &&
		len(td.ModifiedColumns) == 0 &&
		len(td.AddedConstraints) == 0 &&
		len(td.RemovedConstraints) == 0 &&
		len(td.ModifiedConstraints) == 0 &&
		len(td.AddedIndexes) == 0 &&
		len(td.RemovedIndexes) == 0 &&
		len(td.ModifiedIndexes) == 0 &&
		len(td.ModifiedOptions) == 0
}
