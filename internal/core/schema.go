// Package core contains the single source of truth for a database schema as
// it flows through the migration engine: the descriptors read from
// PostgreSQL's catalogs (C3), the pure type/value translation rules that
// turn them into MariaDB/MySQL-acceptable shapes (C2), and the shared
// structural validation both sides rely on.
package core

import (
	"fmt"
	"strings"
)

// Database represents one schema's worth of tables, as read from either
// side of a migration: the source PostgreSQL catalogs, or an introspected
// snapshot of the target used to discover which tables are already present.
type Database struct {
	Name    string
	Dialect *Dialect
	Tables  []*Table
}

// Dialect identifies a supported SQL dialect. The engine moves data in one
// direction only — PostgreSQL source, MySQL/MariaDB target — so only the
// dialects it actually touches are enumerated.
type Dialect string

const (
	DialectPostgreSQL Dialect = "postgresql"
	DialectMySQL      Dialect = "mysql"
	DialectMariaDB    Dialect = "mariadb"
)

// SupportedDialects returns a slice of all supported dialect values.
func SupportedDialects() []Dialect {
	return []Dialect{DialectPostgreSQL, DialectMySQL, DialectMariaDB}
}

// ValidDialect reports whether d is a recognized dialect string.
func ValidDialect(d string) bool {
	for _, supported := range SupportedDialects() {
		if strings.EqualFold(string(supported), d) {
			return true
		}
	}
	return false
}

// Table represents a single table's shape: the columns, keys, indexes, and
// foreign keys the schema reader extracted (or, on the target side, the
// subset introspection can recover from information_schema).
//
// TableDescriptor in the design is (schema_name, table_name); SchemaName
// and Name together play that role. The target is a flat namespace, so
// SchemaName is only ever populated for the PostgreSQL side.
type Table struct {
	SchemaName  string
	Name        string
	Columns     []*Column
	PrimaryKey  []string // ordered column names; nil if the table has none
	Indexes     []*Index
	Constraints []*Constraint
	Options     TableOptions
}

// TableOptions holds target-side table options consulted by the DDL
// Emitter (C4). The source side has no equivalent: PostgreSQL-specific
// storage parameters (fillfactor, tablespaces, UNLOGGED, ...) have no
// home on the target and are intentionally not modeled.
type TableOptions struct {
	MySQL *MySQLTableOptions
}

// MySQLTableOptions contains the MySQL/MariaDB table-level options the DDL
// Emitter attaches to every CREATE TABLE it generates, per spec.md §4.3.
type MySQLTableOptions struct {
	Engine  string // defaults to "InnoDB"
	Charset string // defaults to "utf8mb4"
	Collate string // defaults to "utf8mb4_unicode_ci"
}

// ColumnKind is the tagged dispatch key computed once per column during
// schema read, so the per-row value converter (C2) is a closed switch
// instead of the string-matching re-dispatch spec.md §9 flags as a defect
// to fix.
type ColumnKind string

const (
	ColumnKindBoolean   ColumnKind = "boolean"
	ColumnKindJSON      ColumnKind = "json"
	ColumnKindUUID      ColumnKind = "uuid"
	ColumnKindBytea     ColumnKind = "bytea"
	ColumnKindTimestamp ColumnKind = "timestamp"
	ColumnKindDate      ColumnKind = "date"
	ColumnKindTime      ColumnKind = "time"
	ColumnKindArray     ColumnKind = "array"
	ColumnKindOther     ColumnKind = "other"
)

// Column represents a single column, carrying both the raw PostgreSQL
// catalog facts (SourceType, CharacterMaxLength, ...) ColumnDescriptor
// specifies and the fields the DDL Emitter and Bulk Writer need once the
// column has been classified.
type Column struct {
	Name               string
	Ordinal            int
	SourceType         string // raw PG type name, e.g. "character varying", "numeric"
	CharacterMaxLength *int
	NumericPrecision   *int
	NumericScale       *int
	Nullable           bool
	DefaultExpr        string // raw PG-rendered default, "" when absent
	Kind               ColumnKind
	AutoIncrement      bool   // true for serial/bigserial/smallserial sources
	TargetType         string // resolved once by MapType; filled in by the schema reader after classification
}

// Constraint represents a table-level constraint: a primary key, unique
// constraint, or foreign key. CHECK constraints are out of scope (the
// engine does not migrate them; spec.md §1 non-goals).
type Constraint struct {
	Name              string
	Type              ConstraintType
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferentialAction
	OnUpdate          ReferentialAction
}

// ConstraintType enumerates the constraint kinds the engine models.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintForeignKey ConstraintType = "FOREIGN KEY"
)

// ReferentialAction enumerates the FK referential actions spec.md §3
// specifies. Any PostgreSQL action outside this set is normalized to
// RefActionRestrict by the schema reader (spec.md §9, Open Question 4).
type ReferentialAction string

const (
	RefActionCascade    ReferentialAction = "CASCADE"
	RefActionSetNull    ReferentialAction = "SET NULL"
	RefActionSetDefault ReferentialAction = "SET DEFAULT"
	RefActionRestrict   ReferentialAction = "RESTRICT"
	RefActionNoAction   ReferentialAction = "NO ACTION"
)

// NormalizeReferentialAction maps an arbitrary string (as read from
// referential_constraints.update_rule/delete_rule) onto the enumerated
// set, defaulting to RESTRICT for anything unrecognized.
func NormalizeReferentialAction(raw string) ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CASCADE":
		return RefActionCascade
	case "SET NULL":
		return RefActionSetNull
	case "SET DEFAULT":
		return RefActionSetDefault
	case "NO ACTION":
		return RefActionNoAction
	case "RESTRICT":
		return RefActionRestrict
	default:
		return RefActionRestrict
	}
}

// Index represents a non-PK index: its name, uniqueness, access method,
// and ordered columns (each with a derived ASC/DESC direction).
type Index struct {
	Name         string
	Unique       bool
	AccessMethod string // PG access method, e.g. "btree", "gin"; empty on the target side
	Columns      []IndexColumn
}

// IndexColumn describes one column participating in an index, in its
// defined order, with the direction derived from indoption bit 0.
type IndexColumn struct {
	Name      string
	Direction SortOrder
}

// SortOrder is the enumerated sort direction for an index column.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// FindTable looks for a table by name inside a database.
func (db *Database) FindTable(name string) *Table {
	if db == nil {
		return nil
	}
	for _, t := range db.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// FindColumn looks for a column by name inside a table.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// FindIndex looks for an index by name inside a table.
func (t *Table) FindIndex(name string) *Index {
	for _, idx := range t.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx
		}
	}
	return nil
}

// HasPrimaryKey reports whether the table has a declared primary key.
func (t *Table) HasPrimaryKey() bool {
	return len(t.PrimaryKey) > 0
}

// SinglePrimaryKeyColumn returns the table's primary key column name when
// the PK is exactly one column, which is the precondition for cursor-mode
// pagination (spec.md §4.4). The second return value is false for
// composite or absent primary keys, in which case the Chunk Streamer must
// fall back to offset mode.
func (t *Table) SinglePrimaryKeyColumn() (string, bool) {
	if len(t.PrimaryKey) != 1 {
		return "", false
	}
	return t.PrimaryKey[0], true
}

// Names returns the names of the columns in the index, in order.
func (i *Index) Names() []string {
	names := make([]string, len(i.Columns))
	for idx, col := range i.Columns {
		names[idx] = col.Name
	}
	return names
}

// GetName identifies a table by name for the diff engine's generic
// name-based sort and lookup helpers.
func (t *Table) GetName() string { return t.Name }

// GetName identifies a column by name for the diff engine's generic
// name-based sort and lookup helpers.
func (c *Column) GetName() string { return c.Name }

// GetName identifies a constraint by name for the diff engine's generic
// name-based sort and lookup helpers.
func (con *Constraint) GetName() string { return con.Name }

// GetName identifies an index by name for the diff engine's generic
// name-based sort and lookup helpers.
func (i *Index) GetName() string { return i.Name }

// String returns a short human-readable summary of a table.
func (t *Table) String() string {
	return fmt.Sprintf("Table: %s.%s (%d cols, %d constraints, %d indexes)",
		t.SchemaName, t.Name, len(t.Columns), len(t.Constraints), len(t.Indexes))
}

// Validate checks a Table for the structural invariant spec.md §3
// requires: every FK local column and index column name must appear in
// the column list, and every PK column must be NOT NULL.
func (t *Table) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q: emitted schema has zero columns", t.Name)
	}
	if err := t.validateColumnNamesUnique(); err != nil {
		return err
	}
	if err := t.validatePrimaryKeyColumns(); err != nil {
		return err
	}
	if err := t.validateIndexColumns(); err != nil {
		return err
	}
	return t.validateConstraintColumns()
}

func (t *Table) validateColumnNamesUnique() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		lower := strings.ToLower(c.Name)
		if seen[lower] {
			return fmt.Errorf("table %q: duplicate column name %q", t.Name, c.Name)
		}
		seen[lower] = true
	}
	return nil
}

func (t *Table) validatePrimaryKeyColumns() error {
	for _, name := range t.PrimaryKey {
		col := t.FindColumn(name)
		if col == nil {
			return fmt.Errorf("table %q: primary key references nonexistent column %q", t.Name, name)
		}
		if col.Nullable {
			return fmt.Errorf("table %q: primary key column %q must be NOT NULL", t.Name, name)
		}
	}
	return nil
}

func (t *Table) validateIndexColumns() error {
	for _, idx := range t.Indexes {
		if len(idx.Columns) == 0 {
			return fmt.Errorf("table %q: index %q has no columns", t.Name, idx.Name)
		}
		for _, ic := range idx.Columns {
			if t.FindColumn(ic.Name) == nil {
				return fmt.Errorf("table %q: index %q references nonexistent column %q", t.Name, idx.Name, ic.Name)
			}
		}
	}
	return nil
}

func (t *Table) validateConstraintColumns() error {
	for _, con := range t.Constraints {
		for _, colName := range con.Columns {
			if t.FindColumn(colName) == nil {
				return fmt.Errorf("table %q: constraint %q references nonexistent column %q", t.Name, con.Name, colName)
			}
		}
		if con.Type == ConstraintForeignKey {
			if con.ReferencedTable == "" {
				return fmt.Errorf("table %q: foreign key %q is missing a referenced table", t.Name, con.Name)
			}
			if len(con.ReferencedColumns) != len(con.Columns) {
				return fmt.Errorf("table %q: foreign key %q has %d local columns but %d referenced columns",
					t.Name, con.Name, len(con.Columns), len(con.ReferencedColumns))
			}
		}
	}
	return nil
}
