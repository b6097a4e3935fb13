package mysql

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smf/internal/core"
	"smf/internal/diff"
	"smf/internal/output"
)

func TestBasicMigration(t *testing.T) {
	oldDB := &core.Database{Tables: []*core.Table{
		{
			Name:       "users",
			PrimaryKey: []string{"id"},
			Columns: []*core.Column{
				{Name: "id", TargetType: "INT", AutoIncrement: true},
				{Name: "name", TargetType: "VARCHAR(255)", Nullable: true},
			},
		},
		{
			Name:       "posts",
			PrimaryKey: []string{"id"},
			Columns:    []*core.Column{{Name: "id", TargetType: "INT"}},
		},
	}}

	newDB := &core.Database{Tables: []*core.Table{
		{
			Name:       "users",
			PrimaryKey: []string{"id"},
			Columns: []*core.Column{
				{Name: "id", TargetType: "INT", AutoIncrement: true},
				{Name: "name", TargetType: "VARCHAR(255)"},
				{Name: "email", TargetType: "VARCHAR(255)", Nullable: true},
			},
		},
		{
			Name:       "comments",
			PrimaryKey: []string{"id"},
			Columns:    []*core.Column{{Name: "id", TargetType: "INT"}},
		},
	}}

	d := diff.Diff(oldDB, newDB, diff.DefaultOptions())
	require.NotNil(t, d)

	mysqlDialect := NewMySQLDialect()
	mig := mysqlDialect.Generator().GenerateMigration(d)
	require.NotNil(t, mig)

	fmtr, err := output.NewFormatter("sql")
	require.NoError(t, err)
	out, err := fmtr.FormatMigration(mig)
	require.NoError(t, err)
	assert.Contains(t, out, "-- SQL")
	assert.Contains(t, out, "CREATE TABLE")
	assert.Contains(t, out, "ALTER TABLE")
	assert.Contains(t, out, "DROP TABLE")
	assert.Contains(t, out, "BREAKING CHANGES")

	f, err := os.CreateTemp("", "smf-migration-*.sql")
	require.NoError(t, err)
	name := f.Name()
	require.NoError(t, f.Close())
	defer func() { _ = os.Remove(name) }()

	require.NoError(t, output.SaveMigrationToFile(mig, name))
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- smf migration")
}
