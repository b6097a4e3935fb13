package mysql

import (
	"fmt"

	"smf/internal/core"
	"smf/internal/dialect"
	"smf/internal/diff"
)

// SchemaPlan is the DDL Emitter's pre-data-load plan: the CREATE/ALTER/DROP
// TABLE statements safe to run before any row is loaded, plus the secondary
// indexes and foreign keys that spec.md §1 point 4, §4.3, and §4.9 require
// deferring until after bulk load.
type SchemaPlan struct {
	Statements  []string
	Indexes     []DeferredIndex
	ForeignKeys []DeferredForeignKey
}

// DeferredIndex pairs a target table name with a secondary index to create
// once that table holds data.
type DeferredIndex struct {
	TableName string
	Index     *core.Index
}

// DeferredForeignKey pairs a target table name with a foreign key
// constraint to add once the referenced table holds data and has cleared
// the FK Validator's orphan check.
type DeferredForeignKey struct {
	TableName  string
	Constraint *core.Constraint
}

// GenerateSchemaPlan builds the pre-data-load DDL plan for schemaDiff.
// Unlike GenerateMigrationWithOptions, it never inlines a secondary index
// into a new table's CREATE TABLE body and never emits an ADD FOREIGN KEY
// statement: both are collected for the caller to apply once the affected
// tables hold data.
func (g *Generator) GenerateSchemaPlan(schemaDiff *diff.SchemaDiff, opts dialect.MigrationOptions) *SchemaPlan {
	plan := &SchemaPlan{}

	for _, at := range schemaDiff.AddedTables {
		if at == nil {
			continue
		}
		bare := *at
		bare.Indexes = nil
		create, _ := g.GenerateCreateTable(&bare)
		plan.Statements = append(plan.Statements, create)

		for _, idx := range at.Indexes {
			if idx != nil {
				plan.Indexes = append(plan.Indexes, DeferredIndex{TableName: at.Name, Index: idx})
			}
		}
		for _, c := range at.Constraints {
			if c != nil && c.Type == core.ConstraintForeignKey {
				plan.ForeignKeys = append(plan.ForeignKeys, DeferredForeignKey{TableName: at.Name, Constraint: c})
			}
		}
	}

	for _, td := range schemaDiff.ModifiedTables {
		if td == nil {
			continue
		}
		plan.Statements = append(plan.Statements, g.generateDeferredAlterTable(td, &opts)...)

		for _, mi := range td.ModifiedIndexes {
			if mi != nil && mi.New != nil {
				plan.Indexes = append(plan.Indexes, DeferredIndex{TableName: td.Name, Index: mi.New})
			}
		}
		for _, ai := range td.AddedIndexes {
			if ai != nil {
				plan.Indexes = append(plan.Indexes, DeferredIndex{TableName: td.Name, Index: ai})
			}
		}
		for _, mc := range td.ModifiedConstraints {
			if mc != nil && mc.New != nil && mc.New.Type == core.ConstraintForeignKey {
				plan.ForeignKeys = append(plan.ForeignKeys, DeferredForeignKey{TableName: td.Name, Constraint: mc.New})
			}
		}
		for _, ac := range td.AddedConstraints {
			if ac != nil && ac.Type == core.ConstraintForeignKey {
				plan.ForeignKeys = append(plan.ForeignKeys, DeferredForeignKey{TableName: td.Name, Constraint: ac})
			}
		}
	}

	for _, t := range schemaDiff.RemovedTables {
		if t == nil {
			continue
		}
		if opts.IncludeUnsafe {
			plan.Statements = append(plan.Statements, g.GenerateDropTable(t))
			continue
		}
		backup := g.safeBackupName(t.Name)
		plan.Statements = append(plan.Statements, fmt.Sprintf("RENAME TABLE %s TO %s;", g.QuoteIdentifier(t.Name), g.QuoteIdentifier(backup)))
	}

	return plan
}

// generateDeferredAlterTable mirrors generateAlterTable's statement order
// (drops, column changes, option changes, non-FK constraint adds) but
// omits generateIndexCreates and ADD FOREIGN KEY statements, since both are
// collected into the SchemaPlan's deferred lists instead.
func (g *Generator) generateDeferredAlterTable(td *diff.TableDiff, opts *dialect.MigrationOptions) []string {
	table := g.QuoteIdentifier(td.Name)
	result := &AlterTableResult{}

	g.generateConstraintDrops(td, table, result)
	g.generateIndexDrops(td, table, result)
	g.generateColumnChanges(td, table, opts, result)
	g.generateOptionChanges(td, table, result)
	g.generateConstraintAdds(td, table, result)

	return result.Statements
}
