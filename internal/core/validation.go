package core

import (
	"fmt"
	"strings"
)

// ValidationError represents an error found while checking a Database's
// structural invariants.
type ValidationError struct {
	Entity  string
	Name    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s %q: %s", e.Entity, e.Name, e.Message)
}

// Validate checks a Database for the structural invariants spec.md §3
// requires, returning the first error encountered.
func (db *Database) Validate() error {
	if db == nil {
		return &ValidationError{Entity: "database", Message: "database is nil"}
	}

	seen := make(map[string]bool, len(db.Tables))
	for _, t := range db.Tables {
		if t == nil {
			return &ValidationError{Entity: "database", Name: db.Name, Message: "table is nil"}
		}
		lower := strings.ToLower(t.Name)
		if seen[lower] {
			return &ValidationError{Entity: "database", Name: db.Name, Message: fmt.Sprintf("duplicate table name %q", t.Name)}
		}
		seen[lower] = true

		if err := t.Validate(); err != nil {
			return err
		}
	}

	return db.validateForeignKeyTargets()
}

// validateForeignKeyTargets confirms every FK references a table that is
// actually part of this Database snapshot, and that the referenced
// columns exist on it.
func (db *Database) validateForeignKeyTargets() error {
	for _, t := range db.Tables {
		for _, con := range t.Constraints {
			if con.Type != ConstraintForeignKey {
				continue
			}
			refTable := db.FindTable(con.ReferencedTable)
			if refTable == nil {
				// The referenced table may simply not be part of this
				// migration's table set (tables_include/tables_exclude);
				// that is a runtime FK-validator concern (C9), not a
				// structural one, so it is not an error here.
				continue
			}
			for _, refCol := range con.ReferencedColumns {
				if refTable.FindColumn(refCol) == nil {
					return &ValidationError{
						Entity: "table", Name: t.Name,
						Message: fmt.Sprintf("foreign key %q references nonexistent column %q on table %q",
							con.Name, refCol, con.ReferencedTable),
					}
				}
			}
		}
	}
	return nil
}
