package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDatasourceType(t *testing.T) {
	for _, dsType := range DatasourceTypes {
		assert.True(t, dsType.IsValid(), dsType)
	}
	assert.False(t, DatasourceType("oracle").IsValid())

	assert.True(t, DatasourceMSSQL.IsExternal())
	assert.True(t, DatasourceMongoDB.IsExternal())
	assert.False(t, DatasourceFile.IsExternal())
	assert.False(t, DatasourceInlineTable.IsExternal())
}

func TestValidateColumns(t *testing.T) {
	assert.NoError(t, ValidateColumns([]Column{{Name: "id", Type: ColumnInt}, {Name: "price", Type: ColumnFloat}}))

	assert.EqualError(t, ValidateColumns(nil), "columns must not be empty")
	assert.EqualError(t, ValidateColumns([]Column{{Type: ColumnStr}}), "column 0 has no name")
	assert.EqualError(t,
		ValidateColumns([]Column{{Name: "id", Type: ColumnInt}, {Name: "id", Type: ColumnStr}}),
		`duplicate column "id"`)
	assert.EqualError(t,
		ValidateColumns([]Column{{Name: "at", Type: "timestamp"}}),
		`column "at" has unsupported type "timestamp" (expected int, str, float or bool)`)
}

func TestDatasourceUpdate_Apply(t *testing.T) {
	original := &Datasource{
		ID: uuid.New(), Name: "shop", DSType: DatasourceMySQL,
		Config: map[string]any{"host": "db"},
	}
	name := "shop-eu"
	updated := (&DatasourceUpdate{Name: &name}).Apply(original)

	assert.Equal(t, "shop-eu", updated.Name)
	assert.Equal(t, DatasourceMySQL, updated.DSType)
	assert.Equal(t, "db", updated.Config["host"])
	assert.Equal(t, "shop", original.Name)
}

func TestProjectUpdate_IsEmpty(t *testing.T) {
	assert.True(t, (&ProjectUpdate{}).IsEmpty())
	url := "sc://spark:15002"
	assert.False(t, (&ProjectUpdate{NodeURL: &url}).IsEmpty())
}

func TestDataTableRole(t *testing.T) {
	assert.True(t, RoleFact.IsValid())
	assert.True(t, RoleDimension.IsValid())
	assert.False(t, DataTableRole("bridge").IsValid())
}
