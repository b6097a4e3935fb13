package diff

import (
	"fmt"
	"sort"
	"strings"

	"smf/internal/core"
)

type columnAttrMatch struct {
	SourceType    bool
	TargetType    bool
	Nullable      bool
	AutoIncrement bool
	DefaultExpr   bool
	Kind          bool
}

func compareColumnAttrs(a, b *core.Column) columnAttrMatch {
	return columnAttrMatch{
		SourceType:    strings.EqualFold(a.SourceType, b.SourceType),
		TargetType:    strings.EqualFold(a.TargetType, b.TargetType),
		Nullable:      a.Nullable == b.Nullable,
		AutoIncrement: a.AutoIncrement == b.AutoIncrement,
		DefaultExpr:   strings.TrimSpace(a.DefaultExpr) == strings.TrimSpace(b.DefaultExpr),
		Kind:          a.Kind == b.Kind,
	}
}

func (m columnAttrMatch) allMatch() bool {
	return m.SourceType && m.TargetType && m.Nullable && m.AutoIncrement && m.DefaultExpr && m.Kind
}

// similarityScore is used to detect renames between two columns.
func (m columnAttrMatch) similarityScore() int {
	score := 0
	if m.SourceType {
		score += 3
	}
	if m.TargetType {
		score += 2
	}
	if m.Kind {
		score += 1
	}
	if m.Nullable {
		score += 1
	}
	if m.AutoIncrement {
		score += 1
	}
	if m.DefaultExpr {
		score += 1
	}
	return score
}

type fieldChangeCollector struct {
	Changes []*FieldChange
}

func (c *fieldChangeCollector) Add(field, oldV, newV string) {
	if oldV == newV {
		return
	}
	c.Changes = append(c.Changes, &FieldChange{Field: field, Old: oldV, New: newV})
}

// Named is implemented by types that have a name identifier.
// This interface enables type-safe sorting and mapping operations.
type Named interface {
	GetName() string
}

// sortNamed sorts a slice of Named items by name (case-insensitive).
func sortNamed[T Named](items []T) {
	if len(items) <= 1 {
		return
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = strings.ToLower(item.GetName())
	}
	sort.Slice(items, func(i, j int) bool {
		return keys[i] < keys[j]
	})
}

// sortByFunc sorts items using a custom name extractor function.
func sortByFunc[T any](items []T, getName func(T) string) {
	if len(items) <= 1 {
		return
	}
	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = strings.ToLower(getName(item))
	}
	sort.Slice(items, func(i, j int) bool {
		return keys[i] < keys[j]
	})
}

// mapTablesByName creates a lookup map of tables keyed by lowercase name.
// Returns the map and any case-insensitive name collisions found.
func mapTablesByName(tables []*core.Table) (map[string]*core.Table, []string) {
	m := make(map[string]*core.Table, len(tables))
	original := make(map[string]string, len(tables))
	var collisions []string

	for _, t := range tables {
		key := strings.ToLower(t.Name)
		if prev, ok := original[key]; ok {
			if prev != t.Name {
				collisions = append(collisions, fmt.Sprintf("case-insensitive name collision: %q vs %q", prev, t.Name))
			}
			continue
		}
		original[key] = t.Name
		m[key] = t
	}
	return m, collisions
}

// mapColumnsByName creates a lookup map of columns keyed by lowercase name.
// Returns the map and any case-insensitive name collisions found.
func mapColumnsByName(columns []*core.Column) (map[string]*core.Column, []string) {
	m := make(map[string]*core.Column, len(columns))
	original := make(map[string]string, len(columns))
	var collisions []string

	for _, c := range columns {
		key := strings.ToLower(c.Name)
		if prev, ok := original[key]; ok {
			if prev != c.Name {
				collisions = append(collisions, fmt.Sprintf("case-insensitive name collision: %q vs %q", prev, c.Name))
			}
			continue
		}
		original[key] = c.Name
		m[key] = c
	}
	return m, collisions
}

// mapConstraintsByKey creates a lookup map of constraints keyed by a custom key function.
func mapConstraintsByKey(items []*core.Constraint, keyFn func(*core.Constraint) string) map[string]*core.Constraint {
	m := make(map[string]*core.Constraint, len(items))
	for _, item := range items {
		m[keyFn(item)] = item
	}
	return m
}

// mapByKey creates a lookup map of indexes keyed by a custom key function.
func mapByKey(items []*core.Index, keyFn func(*core.Index) string) map[string]*core.Index {
	m := make(map[string]*core.Index, len(items))
	for _, item := range items {
		m[keyFn(item)] = item
	}
	return m
}

func equalStringSliceCI(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func formatNameList(items []string) string {
	return "(" + strings.Join(items, ", ") + ")"
}

func unionKeys(a, b map[string]string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	if len(keys) <= 1 {
		return keys
	}
	lowerKeys := make([]string, len(keys))
	for i, k := range keys {
		lowerKeys[i] = strings.ToLower(k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lowerKeys[i] < lowerKeys[j]
	})
	return keys
}
