package datasource

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Introspect describes the requested tables in request order.
// An empty request describes every table the introspector lists.
func Introspect(ctx context.Context, introspector SchemaIntrospector, tables []string) ([]models.TableDescriptor, error) {
	if len(tables) == 0 {
		all, err := introspector.ListTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = all
	}

	out := make([]models.TableDescriptor, 0, len(tables))
	for _, table := range tables {
		columns, err := introspector.DescribeColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		out = append(out, models.TableDescriptor{TableName: table, Columns: columns})
	}
	return out, nil
}
