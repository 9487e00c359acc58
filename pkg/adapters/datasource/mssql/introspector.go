package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Introspector reads SQL Server metadata from INFORMATION_SCHEMA.
type Introspector struct {
	db     *sql.DB
	schema string
	logger *zap.Logger
}

// NewIntrospector opens and pings a SQL Server connection.
func NewIntrospector(ctx context.Context, cfg *Config, timeout time.Duration, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := cfg.ConnectionString(timeout)
	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Debug("sqlserver connect failed",
			zap.String("conn", logging.SanitizeConnectionString(connStr)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}

	return &Introspector{db: db, schema: cfg.Schema, logger: logger}, nil
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, i.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (i *Introspector) DescribeColumns(ctx context.Context, table string) ([]models.Column, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION`, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		columns = append(columns, models.Column{Name: name, Type: FoldType(dataType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("invalid object name %q", table)
	}
	return columns, nil
}

func (i *Introspector) ReadRows(ctx context.Context, table string, columns []models.Column, fn datasource.RowFunc) error {
	names := make([]string, len(columns))
	for n, c := range columns {
		names[n] = quoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s.%s", strings.Join(names, ", "), quoteIdent(i.schema), quoteIdent(table))
	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	return datasource.ScanRows(rows, len(columns), fn)
}

func (i *Introspector) Close() error {
	return i.db.Close()
}

func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

var (
	_ datasource.SchemaIntrospector = (*Introspector)(nil)
	_ datasource.TableReader        = (*Introspector)(nil)
)
