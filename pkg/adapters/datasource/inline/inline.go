// Package inline serves datasources whose single table is declared in the config
// rather than discovered from an external database.
package inline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Introspector reports one table named after the datasource.
type Introspector struct {
	table   string
	columns []models.Column
}

// New builds an introspector from a source's declared columns.
func New(src *datasource.Source) (*Introspector, error) {
	if src.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	columns, err := datasource.ColumnsFromConfig(src.Config)
	if err != nil {
		return nil, err
	}
	return &Introspector{table: src.Name, columns: columns}, nil
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	return []string{i.table}, nil
}

func (i *Introspector) DescribeColumns(ctx context.Context, table string) ([]models.Column, error) {
	if table != i.table {
		return nil, fmt.Errorf("table %q is not declared by this datasource", table)
	}
	return append([]models.Column(nil), i.columns...), nil
}

func (i *Introspector) Close() error { return nil }

// FileFormat returns the upload format of a file datasource, csv when unset.
func FileFormat(config map[string]any) (string, error) {
	format := strings.ToLower(datasource.GetString(config, "format"))
	switch format {
	case "":
		return "csv", nil
	case "csv", "json":
		return format, nil
	}
	return "", fmt.Errorf("format must be csv or json")
}

var _ datasource.SchemaIntrospector = (*Introspector)(nil)
