//go:build integration

package mongodb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/testhelpers"
)

// setupIntrospectorTest seeds a fresh database in the shared MongoDB container.
func setupIntrospectorTest(t *testing.T) *Introspector {
	t.Helper()

	server := testhelpers.GetTestMongo(t)
	cfg := &Config{
		Host:     server.Host,
		Port:     server.Port,
		User:     server.User,
		Password: server.Password,
		Database: "src_" + strings.ReplaceAll(uuid.NewString()[:8], "-", ""),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	introspector, err := NewIntrospector(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = introspector.db.Drop(context.Background())
		_ = introspector.Close()
	})

	placed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err = introspector.db.Collection("orders").InsertMany(ctx, []any{
		bson.D{
			{Key: "order_no", Value: int32(1)},
			{Key: "customer", Value: "ana"},
			{Key: "total", Value: 19.5},
			{Key: "paid", Value: true},
			{Key: "counter", Value: int64(9007199254740993)},
			{Key: "placed_at", Value: placed},
			{Key: "tags", Value: bson.A{"new", "eu"}},
			{Key: "address", Value: bson.D{{Key: "city", Value: "Oslo"}}},
		},
		bson.D{
			{Key: "order_no", Value: int32(2)},
			{Key: "customer", Value: "bo"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, introspector.db.CreateCollection(ctx, "empty"))

	return introspector
}

func TestIntrospector_ListTables(t *testing.T) {
	introspector := setupIntrospectorTest(t)

	tables, err := introspector.ListTables(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "orders"}, tables)
}

func TestIntrospector_DescribeColumns_FoldsTypes(t *testing.T) {
	introspector := setupIntrospectorTest(t)

	columns, err := introspector.DescribeColumns(context.Background(), "orders")

	require.NoError(t, err)
	assert.Equal(t, []models.Column{
		{Name: "order_no", Type: models.ColumnInt},
		{Name: "customer", Type: models.ColumnStr},
		{Name: "total", Type: models.ColumnFloat},
		{Name: "paid", Type: models.ColumnBool},
		{Name: "counter", Type: models.ColumnInt},
		{Name: "placed_at", Type: models.ColumnStr},
		{Name: "tags", Type: models.ColumnStr},
		{Name: "address", Type: models.ColumnStr},
	}, columns)
}

func TestIntrospector_DescribeColumns_EmptyCollection(t *testing.T) {
	introspector := setupIntrospectorTest(t)

	_, err := introspector.DescribeColumns(context.Background(), "empty")

	assert.EqualError(t, err, `collection "empty" has no documents to sample`)
}

func TestIntrospector_ReadRows(t *testing.T) {
	introspector := setupIntrospectorTest(t)
	ctx := context.Background()

	columns, err := introspector.DescribeColumns(ctx, "orders")
	require.NoError(t, err)

	rows := map[int64][]any{}
	err = introspector.ReadRows(ctx, "orders", columns, func(values []any) error {
		rows[values[0].(int64)] = append([]any(nil), values...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[1]
	require.NotNil(t, first)
	assert.Equal(t, "ana", first[1])
	assert.Equal(t, 19.5, first[2])
	assert.Equal(t, true, first[3])
	assert.Equal(t, int64(9007199254740993), first[4])
	assert.Equal(t, "2024-03-01T10:00:00Z", first[5])
	assert.JSONEq(t, `["new", "eu"]`, first[6].(string))
	assert.JSONEq(t, `{"city": "Oslo"}`, first[7].(string))

	second := rows[2]
	require.NotNil(t, second)
	assert.Equal(t, "bo", second[1])
	for i := 2; i < len(second); i++ {
		assert.Nil(t, second[i], columns[i].Name)
	}
}
