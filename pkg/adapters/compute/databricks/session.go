// Package databricks runs compute statements on a Databricks SQL warehouse.
// Node URLs look like databricks://token:<pat>@<host>:443/sql/1.0/warehouses/<id>.
package databricks

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/databricks/databricks-sql-go" // Databricks SQL driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
)

const defaultPort = "443"

// DSN converts a databricks:// node URL into the driver DSN
// token:<pat>@host:port/<http_path>.
func DSN(u *url.URL) (string, error) {
	if u.Hostname() == "" {
		return "", fmt.Errorf("databricks host is required")
	}
	token, ok := u.User.Password()
	if !ok || token == "" {
		return "", fmt.Errorf("databricks node_url must carry a personal access token as token:<pat>@host")
	}
	if strings.Trim(u.Path, "/") == "" {
		return "", fmt.Errorf("databricks node_url must include the warehouse http path")
	}

	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	dsn := fmt.Sprintf("token:%s@%s:%s%s", url.PathEscape(token), u.Hostname(), port, u.Path)
	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}
	return dsn, nil
}

// Session wraps a single-connection database/sql handle.
type Session struct {
	db   *sql.DB
	opts compute.Options
}

// Open is the compute.Driver for databricks:// node URLs.
func Open(ctx context.Context, u *url.URL, opts compute.Options) (compute.Session, error) {
	dsn, err := DSN(u)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("databricks", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Databricks connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if opts.Logger != nil {
			opts.Logger.Debug("databricks ping failed", zap.String("error", logging.SanitizeError(err)))
		}
		return nil, fmt.Errorf("failed to ping Databricks: %w", err)
	}
	return &Session{db: db, opts: opts}, nil
}

func (s *Session) Execute(ctx context.Context, statement string) (*compute.Result, error) {
	ctx, cancel := s.opts.WithTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &compute.Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

func (s *Session) Close() error {
	return s.db.Close()
}

func init() {
	compute.RegisterDriver(Open, "databricks")
}

var _ compute.Session = (*Session)(nil)
