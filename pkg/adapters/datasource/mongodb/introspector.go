package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Introspector treats collections as tables and infers columns from one sampled document.
type Introspector struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewIntrospector connects and pings the primary.
func NewIntrospector(ctx context.Context, cfg *Config, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.ConnectionURI()))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Debug("mongodb ping failed",
			zap.String("uri", logging.SanitizeConnectionString(cfg.ConnectionURI())),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	return &Introspector{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	names, err := i.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (i *Introspector) DescribeColumns(ctx context.Context, table string) ([]models.Column, error) {
	raw, err := i.db.Collection(table).FindOne(ctx, bson.D{}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("collection %q has no documents to sample", table)
	}
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", table, err)
	}
	return ColumnsFromDocument(raw)
}

// ColumnsFromDocument derives columns from a document in field order, skipping _id.
func ColumnsFromDocument(doc bson.Raw) ([]models.Column, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	columns := make([]models.Column, 0, len(elems))
	for _, e := range elems {
		if e.Key() == "_id" {
			continue
		}
		columns = append(columns, models.Column{Name: e.Key(), Type: FoldType(e.Value().Type)})
	}
	return columns, nil
}

func (i *Introspector) ReadRows(ctx context.Context, table string, columns []models.Column, fn datasource.RowFunc) error {
	projection := bson.D{{Key: "_id", Value: 0}}
	for _, c := range columns {
		projection = append(projection, bson.E{Key: c.Name, Value: 1})
	}

	cursor, err := i.db.Collection(table).Find(ctx, bson.D{}, options.Find().SetProjection(projection))
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("read %s: %w", table, err)
		}
		values := make([]any, len(columns))
		for n, c := range columns {
			values[n] = normalizeValue(doc[c.Name])
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (i *Introspector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return i.client.Disconnect(ctx)
}

var (
	_ datasource.SchemaIntrospector = (*Introspector)(nil)
	_ datasource.TableReader        = (*Introspector)(nil)
)
