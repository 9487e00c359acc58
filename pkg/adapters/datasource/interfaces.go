package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// SchemaIntrospector lists the tables of a datasource and describes their columns.
// Each implementation owns its connection and must be closed when done.
type SchemaIntrospector interface {
	// ListTables returns every table (or collection) visible to the configured user.
	ListTables(ctx context.Context) ([]string, error)

	// DescribeColumns returns the normalized columns of one table, in table order.
	DescribeColumns(ctx context.Context, table string) ([]models.Column, error)

	// Close releases the connection.
	Close() error
}

// RowFunc receives one row whose values line up with the requested columns.
type RowFunc func(values []any) error

// TableReader streams rows out of a datasource for ingestion.
// Implemented by adapters backed by a live external database.
type TableReader interface {
	// ReadRows selects the given columns of table and calls fn once per row.
	// Iteration stops at the first error returned by fn.
	ReadRows(ctx context.Context, table string, columns []models.Column, fn RowFunc) error
}
