package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseValidateHappyPath(t *testing.T) {
	db := &Database{
		Name: "shop",
		Tables: []*Table{
			sampleTable(),
			{
				Name:       "customers",
				Columns:    []*Column{{Name: "id", Nullable: false}},
				PrimaryKey: []string{"id"},
			},
		},
	}
	assert.NoError(t, db.Validate())
}

func TestDatabaseValidateNilDatabase(t *testing.T) {
	var db *Database
	assert.Error(t, db.Validate())
}

func TestDatabaseValidateRejectsDuplicateTableNames(t *testing.T) {
	db := &Database{Tables: []*Table{sampleTable(), sampleTable()}}
	assert.Error(t, db.Validate())
}

func TestDatabaseValidateSkipsForeignKeysToTablesOutsideSnapshot(t *testing.T) {
	db := &Database{Tables: []*Table{sampleTable()}}
	assert.NoError(t, db.Validate())
}

func TestDatabaseValidateRejectsForeignKeyToMissingColumn(t *testing.T) {
	db := &Database{
		Tables: []*Table{
			sampleTable(),
			{
				Name:       "customers",
				Columns:    []*Column{{Name: "id"}},
				PrimaryKey: []string{"id"},
			},
		},
	}
	db.Tables[0].Constraints[0].ReferencedColumns = []string{"nonexistent"}
	assert.Error(t, db.Validate())
}
