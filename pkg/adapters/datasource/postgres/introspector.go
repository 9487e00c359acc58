package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Introspector reads table and column metadata from information_schema
// and streams rows for ingestion.
type Introspector struct {
	conn   *pgx.Conn
	schema string
	logger *zap.Logger
}

// NewIntrospector opens a single connection to the configured database.
func NewIntrospector(ctx context.Context, cfg *Config, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := pgx.Connect(ctx, cfg.ConnectionString())
	if err != nil {
		logger.Debug("postgres connect failed",
			zap.String("conn", logging.SanitizeConnectionString(cfg.ConnectionString())),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Introspector{conn: conn, schema: cfg.Schema, logger: logger}, nil
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, i.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (i *Introspector) DescribeColumns(ctx context.Context, table string) ([]models.Column, error) {
	rows, err := i.conn.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, i.schema, table)
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
		return nil, fmt.Errorf("relation %q does not exist", table)
	}
	return columns, nil
}

func (i *Introspector) ReadRows(ctx context.Context, table string, columns []models.Column, fn datasource.RowFunc) error {
	names := make([]string, len(columns))
	for n, c := range columns {
		names[n] = pgx.Identifier{c.Name}.Sanitize()
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), pgx.Identifier{i.schema, table}.Sanitize())

	rows, err := i.conn.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("read %s: %w", table, err)
		}
		for n, v := range values {
			values[n] = normalizeValue(v)
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (i *Introspector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return i.conn.Close(ctx)
}

var (
	_ datasource.SchemaIntrospector = (*Introspector)(nil)
	_ datasource.TableReader        = (*Introspector)(nil)
)
