package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Introspector lists MySQL tables with SHOW TABLES and describes them with SHOW COLUMNS.
type Introspector struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIntrospector opens and pings a MySQL connection.
func NewIntrospector(ctx context.Context, cfg *Config, timeout time.Duration, logger *zap.Logger) (*Introspector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("mysql", cfg.DSN(timeout))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Debug("mysql connect failed",
			zap.String("dsn", logging.SanitizeConnectionString(cfg.DSN(timeout))),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	return &Introspector{db: db, logger: logger}, nil
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, "SHOW TABLES")
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
	rows, err := i.db.QueryContext(ctx, "SHOW COLUMNS FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var columns []models.Column
	for rows.Next() {
		// Field, Type, Null, Key, Default, Extra
		raw := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for n := range raw {
			ptrs[n] = &raw[n]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("describe %s: %w", table, err)
		}
		columns = append(columns, models.Column{Name: raw[0].String, Type: FoldType(raw[1].String)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	return columns, nil
}

func (i *Introspector) ReadRows(ctx context.Context, table string, columns []models.Column, fn datasource.RowFunc) error {
	names := make([]string, len(columns))
	for n, c := range columns {
		names[n] = quoteIdent(c.Name)
	}
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	return datasource.ScanRows(rows, len(columns), fn)
}

func (i *Introspector) Close() error {
	return i.db.Close()
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var (
	_ datasource.SchemaIntrospector = (*Introspector)(nil)
	_ datasource.TableReader        = (*Introspector)(nil)
)
