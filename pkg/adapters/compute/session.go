// Package compute opens sessions against the remote compute cluster that holds
// warehouse tables, and renders the Spark SQL sent over them.
package compute

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnsupportedScheme is returned for a node URL whose scheme has no registered driver.
var ErrUnsupportedScheme = errors.New("unsupported compute node scheme")

// Session is one connection to a compute node. Callers must Close it on every path.
type Session interface {
	// Execute runs a single statement and returns its result set, empty for DDL and DML.
	Execute(ctx context.Context, statement string) (*Result, error)
	Close() error
}

// Result is a statement's result set.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Records returns each row as a column name to value map.
func (r *Result) Records() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			if j < len(row) {
				rec[col] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

// Options are handed to drivers when a session is opened.
type Options struct {
	// ExecuteTimeout bounds each statement. Zero means no timeout.
	ExecuteTimeout time.Duration
	Logger         *zap.Logger
}

// Driver opens a session for a parsed node URL.
type Driver func(ctx context.Context, nodeURL *url.URL, opts Options) (Session, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver binds a driver to one or more URL schemes. Called from driver init().
func RegisterDriver(driver Driver, schemes ...string) {
	driversMu.Lock()
	defer driversMu.Unlock()
	for _, s := range schemes {
		drivers[strings.ToLower(s)] = driver
	}
}

// Schemes lists the registered URL schemes.
func Schemes() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]string, 0, len(drivers))
	for s := range drivers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func resolve(nodeURL string) (*url.URL, Driver, error) {
	u, err := url.Parse(strings.TrimSpace(nodeURL))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid node_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, nil, fmt.Errorf("invalid node_url %q: expected scheme://host:port", nodeURL)
	}

	driversMu.RLock()
	driver, ok := drivers[strings.ToLower(u.Scheme)]
	driversMu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	return u, driver, nil
}

// ValidateNodeURL checks that a node URL parses and names a registered scheme.
func ValidateNodeURL(nodeURL string) error {
	_, _, err := resolve(nodeURL)
	return err
}

// SessionFactory opens sessions by node URL.
type SessionFactory interface {
	Open(ctx context.Context, nodeURL string) (Session, error)
}

type registryFactory struct {
	opts Options
}

// NewSessionFactory returns a factory that dispatches on the node URL scheme.
func NewSessionFactory(executeTimeout time.Duration, logger *zap.Logger) SessionFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{
		opts: Options{ExecuteTimeout: executeTimeout, Logger: logger},
	}
}

func (f *registryFactory) Open(ctx context.Context, nodeURL string) (Session, error) {
	u, driver, err := resolve(nodeURL)
	if err != nil {
		return nil, err
	}
	// Connection failures surface to the caller on the first attempt.
	return driver(ctx, u, f.opts)
}

// WithTimeout applies the per-statement timeout when one is configured.
func (o Options) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.ExecuteTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.ExecuteTimeout)
}
