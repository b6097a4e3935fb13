package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return &Table{
		Name: "orders",
		Columns: []*Column{
			{Name: "id", Nullable: false, Kind: ColumnKindOther},
			{Name: "customer_id", Nullable: false, Kind: ColumnKindOther},
			{Name: "status", Nullable: true, Kind: ColumnKindOther},
		},
		PrimaryKey: []string{"id"},
		Indexes: []*Index{
			{Name: "idx_status", Columns: []IndexColumn{{Name: "status", Direction: SortAsc}}},
		},
		Constraints: []*Constraint{
			{
				Name: "fk_customer", Type: ConstraintForeignKey,
				Columns: []string{"customer_id"}, ReferencedTable: "customers",
				ReferencedColumns: []string{"id"},
			},
		},
	}
}

func TestTableValidateHappyPath(t *testing.T) {
	assert.NoError(t, sampleTable().Validate())
}

func TestTableValidateRejectsZeroColumns(t *testing.T) {
	tbl := &Table{Name: "empty"}
	assert.Error(t, tbl.Validate())
}

func TestTableValidateRejectsDuplicateColumnNames(t *testing.T) {
	tbl := sampleTable()
	tbl.Columns = append(tbl.Columns, &Column{Name: "ID"})
	assert.Error(t, tbl.Validate())
}

func TestTableValidateRejectsNullablePrimaryKey(t *testing.T) {
	tbl := sampleTable()
	tbl.FindColumn("id").Nullable = true
	assert.Error(t, tbl.Validate())
}

func TestTableValidateRejectsUnknownPrimaryKeyColumn(t *testing.T) {
	tbl := sampleTable()
	tbl.PrimaryKey = []string{"does_not_exist"}
	assert.Error(t, tbl.Validate())
}

func TestTableValidateRejectsUnknownIndexColumn(t *testing.T) {
	tbl := sampleTable()
	tbl.Indexes[0].Columns[0].Name = "nope"
	assert.Error(t, tbl.Validate())
}

func TestTableValidateRejectsIndexWithNoColumns(t *testing.T) {
	tbl := sampleTable()
	tbl.Indexes[0].Columns = nil
	assert.Error(t, tbl.Validate())
}

func TestTableValidateRejectsMismatchedForeignKeyColumnCounts(t *testing.T) {
	tbl := sampleTable()
	tbl.Constraints[0].ReferencedColumns = []string{"id", "extra"}
	assert.Error(t, tbl.Validate())
}

func TestSinglePrimaryKeyColumn(t *testing.T) {
	tbl := sampleTable()
	name, ok := tbl.SinglePrimaryKeyColumn()
	require.True(t, ok)
	assert.Equal(t, "id", name)

	tbl.PrimaryKey = []string{"id", "customer_id"}
	_, ok = tbl.SinglePrimaryKeyColumn()
	assert.False(t, ok)

	tbl.PrimaryKey = nil
	_, ok = tbl.SinglePrimaryKeyColumn()
	assert.False(t, ok)
}

func TestDatabaseFindTableCaseInsensitive(t *testing.T) {
	db := &Database{Tables: []*Table{sampleTable()}}
	assert.NotNil(t, db.FindTable("ORDERS"))
	assert.Nil(t, db.FindTable("missing"))
}

func TestValidDialect(t *testing.T) {
	assert.True(t, ValidDialect("postgresql"))
	assert.True(t, ValidDialect("MySQL"))
	assert.True(t, ValidDialect("mariadb"))
	assert.False(t, ValidDialect("oracle"))
}

func TestNormalizeReferentialAction(t *testing.T) {
	assert.Equal(t, RefActionCascade, NormalizeReferentialAction("cascade"))
	assert.Equal(t, RefActionSetNull, NormalizeReferentialAction("SET NULL"))
	assert.Equal(t, RefActionRestrict, NormalizeReferentialAction("something-unexpected"))
	assert.Equal(t, RefActionRestrict, NormalizeReferentialAction(""))
}
