package diff

import (
	"strconv"
	"strings"

	"smf/internal/core"
)

func compareIndexes(oldItems, newItems []*core.Index, td *TableDiff) {
	oldMap := mapByKey(oldItems, indexKey)
	newMap := mapByKey(newItems, indexKey)

	for name, newItem := range newMap {
		oldItem, exists := oldMap[name]
		if !exists {
			td.AddedIndexes = append(td.AddedIndexes, newItem)
			continue
		}
		if !equalIndex(oldItem, newItem) {
			td.ModifiedIndexes = append(td.ModifiedIndexes, &IndexChange{
				Name:    newItem.Name,
				Old:     oldItem,
				New:     newItem,
				Changes: indexFieldChanges(oldItem, newItem),
			})
		}
	}

	for name, oldItem := range oldMap {
		if _, exists := newMap[name]; !exists {
			td.RemovedIndexes = append(td.RemovedIndexes, oldItem)
		}
	}
}

func equalIndex(a, b *core.Index) bool {
	if a.Unique != b.Unique {
		return false
	}
	if !strings.EqualFold(a.AccessMethod, b.AccessMethod) {
		return false
	}
	return equalIndexColumns(a.Columns, b.Columns)
}

func equalIndexColumns(a, b []core.IndexColumn) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i].Name, b[i].Name) {
			return false
		}
		if a[i].Direction != b[i].Direction {
			return false
		}
	}
	return true
}

func indexFieldChanges(oldI, newI *core.Index) []*FieldChange {
	c := &fieldChangeCollector{}

	c.Add("unique", strconv.FormatBool(oldI.Unique), strconv.FormatBool(newI.Unique))
	c.Add("access_method", oldI.AccessMethod, newI.AccessMethod)
	c.Add("columns", formatIndexColumns(oldI.Columns), formatIndexColumns(newI.Columns))

	return c.Changes
}

// FormatIndexColumns renders an index's column list for display, e.g.
// "(id, created_at DESC)". Exported for the output package's formatters.
func FormatIndexColumns(cols []core.IndexColumn) string {
	return formatIndexColumns(cols)
}

func formatIndexColumns(cols []core.IndexColumn) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name + " " + string(c.Direction)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func indexKey(i *core.Index) string {
	name := strings.ToLower(strings.TrimSpace(i.Name))
	if name != "" {
		return name
	}
	uniq := "0"
	if i.Unique {
		uniq = "1"
	}
	cols := make([]string, len(i.Columns))
	for idx, c := range i.Columns {
		cols[idx] = strings.ToLower(c.Name)
	}
	return "idx:" + uniq + ":" + strings.Join(cols, ",")
}
