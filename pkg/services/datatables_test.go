package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

func newDataTableFixture(t *testing.T) (DataTableService, *memStore, uuid.UUID, *models.Datasource) {
	t.Helper()
	store := newMemStore()
	owner := uuid.New()
	project := store.addProject(owner, "sc://spark:15002")
	ds := store.addDatasource(project.ID, models.DatasourceInlineTable)
	return NewDataTableService(memDataTableRepo{store}, memDatasourceRepo{store}, zap.NewNop()), store, owner, ds
}

func TestDataTableService_Create(t *testing.T) {
	service, _, owner, ds := newDataTableFixture(t)

	dt, err := service.Create(context.Background(), owner, &models.DataTableCreate{
		Name:         "regions",
		DatasourceID: ds.ID,
		Columns:      []models.Column{{Name: "code", Type: models.ColumnStr}},
	})

	require.NoError(t, err)
	assert.Equal(t, "regions", dt.Name)

	_, err = service.Create(context.Background(), owner, &models.DataTableCreate{
		Name:         "regions",
		DatasourceID: ds.ID,
		Columns:      []models.Column{{Name: "code", Type: models.ColumnStr}},
	})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDataTableService_Create_Validation(t *testing.T) {
	service, _, owner, ds := newDataTableFixture(t)

	tests := []struct {
		name string
		req  *models.DataTableCreate
	}{
		{"missing name", &models.DataTableCreate{DatasourceID: ds.ID, Columns: []models.Column{{Name: "a", Type: models.ColumnInt}}}},
		{"unsafe name", &models.DataTableCreate{Name: "x' OR '1'='1", DatasourceID: ds.ID, Columns: []models.Column{{Name: "a", Type: models.ColumnInt}}}},
		{"no columns", &models.DataTableCreate{Name: "t", DatasourceID: ds.ID}},
		{"bad column type", &models.DataTableCreate{Name: "t", DatasourceID: ds.ID, Columns: []models.Column{{Name: "a", Type: "date"}}}},
		{"missing datasource", &models.DataTableCreate{Name: "t", Columns: []models.Column{{Name: "a", Type: models.ColumnInt}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), owner, tt.req)
			assert.ErrorIs(t, err, apperrors.ErrBadRequest)
		})
	}
}

func TestDataTableService_Create_NotOwner(t *testing.T) {
	service, _, _, ds := newDataTableFixture(t)

	_, err := service.Create(context.Background(), uuid.New(), &models.DataTableCreate{
		Name: "t", DatasourceID: ds.ID, Columns: []models.Column{{Name: "a", Type: models.ColumnInt}},
	})

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDataTableService_ListPagesByDatasource(t *testing.T) {
	service, store, owner, ds := newDataTableFixture(t)
	store.addDataTable(ds.ID, "a")
	store.addDataTable(ds.ID, "b")
	store.addDataTable(ds.ID, "c")

	tables, err := service.List(context.Background(), owner, &ds.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "b", tables[0].Name)

	tables, err = service.List(context.Background(), owner, &ds.ID, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, tables)
	assert.Equal(t, 2, store.pagedLists, "offset and limit go to the repository")

	all, err := service.List(context.Background(), owner, nil, 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDataTableService_UpdateAndDelete(t *testing.T) {
	service, store, owner, ds := newDataTableFixture(t)
	dt := store.addDataTable(ds.ID, "a")
	store.addDataTable(ds.ID, "b")

	name := " renamed "
	updated, err := service.Update(context.Background(), owner, dt.ID, &models.DataTableUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	taken := "b"
	_, err = service.Update(context.Background(), owner, dt.ID, &models.DataTableUpdate{Name: &taken})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = service.Update(context.Background(), uuid.New(), dt.ID, &models.DataTableUpdate{Name: &taken})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, service.Delete(context.Background(), owner, dt.ID))
	_, err = service.Get(context.Background(), owner, dt.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
