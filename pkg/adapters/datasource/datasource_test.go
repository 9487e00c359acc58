package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

type fakeIntrospector struct {
	tables  []string
	columns map[string][]models.Column
	listErr error
	closed  bool
}

func (f *fakeIntrospector) ListTables(ctx context.Context) ([]string, error) {
	return f.tables, f.listErr
}

func (f *fakeIntrospector) DescribeColumns(ctx context.Context, table string) ([]models.Column, error) {
	cols, ok := f.columns[table]
	if !ok {
		return nil, errors.New("relation " + table + " does not exist")
	}
	return cols, nil
}

func (f *fakeIntrospector) Close() error {
	f.closed = true
	return nil
}

func TestIntrospect_RequestOrder(t *testing.T) {
	f := &fakeIntrospector{columns: map[string][]models.Column{
		"a": {{Name: "id", Type: models.ColumnInt}},
		"b": {{Name: "name", Type: models.ColumnStr}},
	}}

	got, err := Introspect(context.Background(), f, []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].TableName)
	assert.Equal(t, "a", got[1].TableName)
	assert.Equal(t, models.ColumnInt, got[1].Columns[0].Type)
}

func TestIntrospect_EmptyMeansAll(t *testing.T) {
	f := &fakeIntrospector{
		tables: []string{"a"},
		columns: map[string][]models.Column{
			"a": {{Name: "id", Type: models.ColumnInt}},
		},
	}

	got, err := Introspect(context.Background(), f, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].TableName)
}

func TestIntrospect_MissingTableFails(t *testing.T) {
	f := &fakeIntrospector{columns: map[string][]models.Column{}}

	_, err := Introspect(context.Background(), f, []string{"ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestTableList(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		want    []string
		wantErr bool
	}{
		{"missing", map[string]any{}, nil, false},
		{"comma string", map[string]any{"tables": "t1, t2,,t3 "}, []string{"t1", "t2", "t3"}, false},
		{"json array", map[string]any{"tables": []any{"t1", "t2"}}, []string{"t1", "t2"}, false},
		{"empty string", map[string]any{"tables": ""}, nil, false},
		{"non-string item", map[string]any{"tables": []any{"t1", 3.0}}, nil, true},
		{"wrong type", map[string]any{"tables": 12.0}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TableList(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetInt(t *testing.T) {
	n, err := GetInt(map[string]any{"port": 5433.0}, "port", 5432)
	require.NoError(t, err)
	assert.Equal(t, 5433, n)

	n, err = GetInt(map[string]any{"port": "3307"}, "port", 3306)
	require.NoError(t, err)
	assert.Equal(t, 3307, n)

	n, err = GetInt(map[string]any{}, "port", 27017)
	require.NoError(t, err)
	assert.Equal(t, 27017, n)

	_, err = GetInt(map[string]any{"port": "abc"}, "port", 1)
	assert.EqualError(t, err, "port must be an integer")
}

func TestRequireString_FallbackKey(t *testing.T) {
	v, err := RequireString(map[string]any{"user": "bob"}, "username", "user")
	require.NoError(t, err)
	assert.Equal(t, "bob", v)

	_, err = RequireString(map[string]any{}, "username", "user")
	assert.EqualError(t, err, "username is required")
}

func TestColumnsFromConfig(t *testing.T) {
	cols, err := ColumnsFromConfig(map[string]any{
		"columns": []any{
			map[string]any{"name": "id", "type": "int"},
			map[string]any{"name": "label", "type": "str"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.Column{{Name: "id", Type: models.ColumnInt}, {Name: "label", Type: models.ColumnStr}}, cols)

	_, err = ColumnsFromConfig(map[string]any{})
	assert.EqualError(t, err, "columns is required")

	_, err = ColumnsFromConfig(map[string]any{"columns": []any{map[string]any{"name": "x", "type": "date"}}})
	assert.Error(t, err)
}

func TestFactory_UnsupportedType(t *testing.T) {
	f := NewAdapterFactory(0, zap.NewNop())

	err := f.ValidateConfig("x", "oracle", map[string]any{})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = f.NewIntrospector(context.Background(), &models.Datasource{ID: uuid.New(), DSType: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestFactory_UsesRegistration(t *testing.T) {
	const testType models.DatasourceType = "test-only"
	fake := &fakeIntrospector{}
	var seen *Source
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: testType, DisplayName: "Test"},
		Validate: func(src *Source) error {
			if src.Config["host"] == nil {
				return errors.New("host is required")
			}
			return nil
		},
		Factory: func(ctx context.Context, src *Source, opts Options) (SchemaIntrospector, error) {
			seen = src
			return fake, nil
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, testType)
		registryMu.Unlock()
	})

	f := NewAdapterFactory(0, zap.NewNop())
	assert.EqualError(t, f.ValidateConfig("x", testType, map[string]any{}), "host is required")
	assert.NoError(t, f.ValidateConfig("x", testType, map[string]any{"host": "h"}))

	got, err := f.NewIntrospector(context.Background(), &models.Datasource{Name: "sales", DSType: testType})
	require.NoError(t, err)
	assert.Same(t, fake, got)
	assert.Equal(t, "sales", seen.Name)
	assert.True(t, IsRegistered(testType))
}
