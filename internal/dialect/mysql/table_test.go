package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smf/internal/core"
	"smf/internal/diff"
)

func TestColumnDefinition(t *testing.T) {
	tests := []struct {
		name     string
		column   *core.Column
		expected string
	}{
		{
			name:     "not null column",
			column:   &core.Column{Name: "id", TargetType: "INT"},
			expected: "`id` INT NOT NULL",
		},
		{
			name:     "nullable column",
			column:   &core.Column{Name: "name", TargetType: "VARCHAR(255)", Nullable: true},
			expected: "`name` VARCHAR(255) NULL",
		},
		{
			name:     "auto increment column",
			column:   &core.Column{Name: "id", TargetType: "BIGINT", AutoIncrement: true},
			expected: "`id` BIGINT NOT NULL AUTO_INCREMENT",
		},
		{
			name:     "column with literal default",
			column:   &core.Column{Name: "status", TargetType: "VARCHAR(20)", DefaultExpr: "active"},
			expected: "`status` VARCHAR(20) NOT NULL DEFAULT 'active'",
		},
		{
			name:     "column with keyword default",
			column:   &core.Column{Name: "created_at", TargetType: "DATETIME", DefaultExpr: "CURRENT_TIMESTAMP"},
			expected: "`created_at` DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP",
		},
	}

	g := NewMySQLGenerator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, g.columnDefinition(tt.column))
		})
	}
}

func TestTableOptions(t *testing.T) {
	g := NewMySQLGenerator()

	assert.Equal(t, "", g.tableOptions(&core.Table{}))

	full := &core.Table{Options: core.TableOptions{MySQL: &core.MySQLTableOptions{
		Engine: "InnoDB", Charset: "utf8mb4", Collate: "utf8mb4_unicode_ci",
	}}}
	assert.Equal(t, " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci", g.tableOptions(full))

	engineOnly := &core.Table{Options: core.TableOptions{MySQL: &core.MySQLTableOptions{Engine: "MyISAM"}}}
	assert.Equal(t, " ENGINE=MyISAM", g.tableOptions(engineOnly))
}

func TestGenerateCreateTable(t *testing.T) {
	g := NewMySQLGenerator()
	table := &core.Table{
		Name: "users",
		Columns: []*core.Column{
			{Name: "id", TargetType: "INT", AutoIncrement: true},
			{Name: "email", TargetType: "VARCHAR(255)"},
		},
		Constraints: []*core.Constraint{
			{Type: core.ConstraintPrimaryKey, Columns: []string{"id"}},
			{
				Type:              core.ConstraintForeignKey,
				Name:              "fk_users_org",
				Columns:           []string{"org_id"},
				ReferencedTable:   "orgs",
				ReferencedColumns: []string{"id"},
			},
		},
		Indexes: []*core.Index{
			{Name: "idx_users_email", Unique: true, Columns: []core.IndexColumn{{Name: "email"}}},
		},
		Options: core.TableOptions{MySQL: &core.MySQLTableOptions{Engine: "InnoDB"}},
	}

	create, fks := g.GenerateCreateTable(table)

	assert.Contains(t, create, "CREATE TABLE `users` (")
	assert.Contains(t, create, "`id` INT NOT NULL AUTO_INCREMENT")
	assert.Contains(t, create, "PRIMARY KEY (`id`)")
	assert.Contains(t, create, "UNIQUE KEY `idx_users_email` (`email`)")
	assert.Contains(t, create, ") ENGINE=InnoDB;")
	assert.NotContains(t, create, "FOREIGN KEY")

	if assert.Len(t, fks, 1) {
		assert.Contains(t, fks[0], "ALTER TABLE `users` ADD CONSTRAINT `fk_users_org` FOREIGN KEY (`org_id`) REFERENCES `orgs` (`id`);")
	}
}

func TestGenerateDropTable(t *testing.T) {
	g := NewMySQLGenerator()
	assert.Equal(t, "DROP TABLE `users`;", g.GenerateDropTable(&core.Table{Name: "users"}))
}

func TestCreateIndex(t *testing.T) {
	g := NewMySQLGenerator()
	table := &core.Table{Name: "users"}

	unique := g.CreateIndex(table, &core.Index{Name: "idx_email", Unique: true, Columns: []core.IndexColumn{{Name: "email"}}})
	assert.Equal(t, "CREATE UNIQUE INDEX `idx_email` ON `users` (`email`);", unique)

	plain := g.CreateIndex(table, &core.Index{Name: "idx_created", Columns: []core.IndexColumn{{Name: "created_at", Direction: core.SortDesc}}})
	assert.Equal(t, "CREATE INDEX `idx_created` ON `users` (`created_at` DESC);", plain)

	assert.Equal(t, "", g.CreateIndex(table, &core.Index{Columns: []core.IndexColumn{{Name: "x"}}}))
}

func TestAddForeignKey(t *testing.T) {
	g := NewMySQLGenerator()
	table := &core.Table{Name: "posts"}
	fk := &core.Constraint{
		Name:              "fk_posts_author",
		Columns:           []string{"author_id"},
		ReferencedTable:   "users",
		ReferencedColumns: []string{"id"},
		OnDelete:          core.RefActionCascade,
	}

	stmt := g.AddForeignKey(table, fk)
	assert.Equal(t, "ALTER TABLE `posts` ADD CONSTRAINT `fk_posts_author` FOREIGN KEY (`author_id`) REFERENCES `users` (`id`) ON DELETE CASCADE;", stmt)
}

func TestDropConstraint(t *testing.T) {
	g := NewMySQLGenerator()
	table := "`t`"

	assert.Equal(t, "ALTER TABLE `t` DROP PRIMARY KEY;", g.dropConstraint(table, &core.Constraint{Type: core.ConstraintPrimaryKey}))
	assert.Equal(t, "ALTER TABLE `t` DROP FOREIGN KEY `fk_x`;", g.dropConstraint(table, &core.Constraint{Type: core.ConstraintForeignKey, Name: "fk_x"}))
	assert.Contains(t, g.dropConstraint(table, &core.Constraint{Type: core.ConstraintForeignKey, Columns: []string{"a"}}), "cannot drop unnamed FOREIGN KEY")
	assert.Equal(t, "ALTER TABLE `t` DROP INDEX `uq_x`;", g.dropConstraint(table, &core.Constraint{Type: core.ConstraintUnique, Name: "uq_x"}))
}

func TestAlterOption(t *testing.T) {
	g := NewMySQLGenerator()
	table := "`t`"

	assert.Equal(t, "ALTER TABLE `t` ENGINE=InnoDB;", g.alterOption(table, &diff.TableOptionChange{Name: "ENGINE", New: "InnoDB"}))
	assert.Equal(t, "ALTER TABLE `t` DEFAULT CHARSET=utf8mb4;", g.alterOption(table, &diff.TableOptionChange{Name: "CHARSET", New: "utf8mb4"}))
	assert.Equal(t, "ALTER TABLE `t` COLLATE=utf8mb4_bin;", g.alterOption(table, &diff.TableOptionChange{Name: "COLLATE", New: "utf8mb4_bin"}))
	assert.Equal(t, "", g.alterOption(table, &diff.TableOptionChange{Name: "ENGINE", New: ""}))
	assert.Equal(t, "ALTER TABLE `t` AUTO_INCREMENT=100;", g.alterOption(table, &diff.TableOptionChange{Name: "AUTO_INCREMENT", New: "100"}))
}

func TestQuoteIdentifierAndString(t *testing.T) {
	g := NewMySQLGenerator()
	assert.Equal(t, "`users`", g.QuoteIdentifier("users"))
	assert.Equal(t, "`us``ers`", g.QuoteIdentifier("us`ers"))
	assert.Equal(t, "'it''s'", g.QuoteString("it's"))
}
