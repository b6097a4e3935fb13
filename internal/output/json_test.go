package output

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"smf/internal/core"
	"smf/internal/dialect/mysql"
	"smf/internal/diff"
)

func jsonFixtureTables() (*core.Database, *core.Database) {
	oldDB := &core.Database{Tables: []*core.Table{
		{
			Name: "users",
			Columns: []*core.Column{
				{Name: "id", TargetType: "INT", AutoIncrement: true},
				{Name: "name", TargetType: "VARCHAR(255)", Nullable: true},
			},
		},
		{Name: "posts", Columns: []*core.Column{{Name: "id", TargetType: "INT"}}},
	}}
	newDB := &core.Database{Tables: []*core.Table{
		{
			Name: "users",
			Columns: []*core.Column{
				{Name: "id", TargetType: "INT", AutoIncrement: true},
				{Name: "name", TargetType: "VARCHAR(255)"},
				{Name: "email", TargetType: "VARCHAR(255)", Nullable: true},
			},
		},
		{Name: "comments", Columns: []*core.Column{{Name: "id", TargetType: "INT"}}},
	}}
	return oldDB, newDB
}

func TestDiffJSONFormatIsValidAndComplete(t *testing.T) {
	oldDB, newDB := jsonFixtureTables()
	d := diff.Diff(oldDB, newDB, diff.DefaultOptions())

	formatter, err := NewFormatter("json")
	require.NoError(t, err)
	out, err := formatter.FormatDiff(d)
	require.NoError(t, err)

	var decoded diff.SchemaDiff
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.AddedTables, 1)
	require.Equal(t, "comments", decoded.AddedTables[0].Name)
}

func TestMigrationJSONFormatIsValidAndComplete(t *testing.T) {
	oldDB, newDB := jsonFixtureTables()
	schemaDiff := diff.Diff(oldDB, newDB, diff.DefaultOptions())

	d := mysql.NewMySQLDialect()
	migration := d.Generator().GenerateMigration(schemaDiff)

	formatter, err := NewFormatter("json")
	require.NoError(t, err)
	out, err := formatter.FormatMigration(migration)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Contains(t, decoded, "operations")
}
