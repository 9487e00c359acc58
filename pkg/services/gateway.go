package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// Gateway runs work on a project's compute cluster.
// Every call opens its own session and closes it before returning.
// Failures reported by the cluster or a datasource come back as bad requests
// carrying the upstream message.
type Gateway interface {
	// Validate asks the engine to plan query without running it.
	Validate(ctx context.Context, nodeURL, query string) error

	// Run executes query and returns its result set.
	Run(ctx context.Context, nodeURL, query string) (*compute.Result, error)

	// CreateTables creates or replaces an empty table per datatable.
	CreateTables(ctx context.Context, nodeURL string, tables []*models.DataTable) error

	// AppendRows inserts rows into the datatable's table in batches.
	AppendRows(ctx context.Context, nodeURL string, table *models.DataTable, rows [][]any) error

	// IngestFromDatasource copies the rows of tables out of ds.
	// Datasources without a live database behind them are skipped.
	IngestFromDatasource(ctx context.Context, nodeURL string, ds *models.Datasource, tables []*models.DataTable) error
}

type gateway struct {
	sessions    compute.SessionFactory
	adapters    datasource.AdapterFactory
	tableFormat string
	batchSize   int
	logger      *zap.Logger
}

// NewGateway creates a compute gateway.
func NewGateway(
	sessions compute.SessionFactory,
	adapters datasource.AdapterFactory,
	tableFormat string,
	batchSize int,
	logger *zap.Logger,
) Gateway {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &gateway{
		sessions:    sessions,
		adapters:    adapters,
		tableFormat: tableFormat,
		batchSize:   batchSize,
		logger:      logger.Named("gateway"),
	}
}

// withSession opens a session, runs fn and closes the session on every path.
func (g *gateway) withSession(ctx context.Context, nodeURL string, fn func(s compute.Session) error) error {
	session, err := g.sessions.Open(ctx, nodeURL)
	if err != nil {
		return apperrors.External(err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			g.logger.Warn("Failed to close compute session", zap.Error(cerr))
		}
	}()

	if err := fn(session); err != nil {
		return apperrors.External(err)
	}
	return nil
}

func (g *gateway) Validate(ctx context.Context, nodeURL, query string) error {
	return g.withSession(ctx, nodeURL, func(s compute.Session) error {
		_, err := s.Execute(ctx, "EXPLAIN "+query)
		return err
	})
}

func (g *gateway) Run(ctx context.Context, nodeURL, query string) (*compute.Result, error) {
	var result *compute.Result
	err := g.withSession(ctx, nodeURL, func(s compute.Session) error {
		var err error
		result, err = s.Execute(ctx, query)
		return err
	})
	if err != nil {
		g.logger.Info("Query failed",
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}
	return result, nil
}

func (g *gateway) CreateTables(ctx context.Context, nodeURL string, tables []*models.DataTable) error {
	return g.withSession(ctx, nodeURL, func(s compute.Session) error {
		for _, t := range tables {
			stmt, err := compute.CreateTableStatement(t.Name, t.Columns, g.tableFormat)
			if err != nil {
				return err
			}
			if _, err := s.Execute(ctx, stmt); err != nil {
				return err
			}
			g.logger.Info("Created table on compute cluster",
				zap.String("datatable_id", t.ID.String()),
				zap.String("table", t.Name))
		}
		return nil
	})
}

func (g *gateway) AppendRows(ctx context.Context, nodeURL string, table *models.DataTable, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	return g.withSession(ctx, nodeURL, func(s compute.Session) error {
		return g.insert(ctx, s, table, rows)
	})
}

func (g *gateway) insert(ctx context.Context, s compute.Session, table *models.DataTable, rows [][]any) error {
	stmts, err := compute.InsertStatements(table.Name, table.Columns, rows, g.batchSize)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *gateway) IngestFromDatasource(ctx context.Context, nodeURL string, ds *models.Datasource, tables []*models.DataTable) error {
	if !ds.DSType.IsExternal() || len(tables) == 0 {
		return nil
	}

	introspector, err := g.adapters.NewIntrospector(ctx, ds)
	if err != nil {
		return apperrors.External(err)
	}
	defer introspector.Close()

	reader, ok := introspector.(datasource.TableReader)
	if !ok {
		return apperrors.External(fmt.Errorf("datasource type %s cannot be read", ds.DSType))
	}

	return g.withSession(ctx, nodeURL, func(s compute.Session) error {
		for _, t := range tables {
			count := 0
			batch := make([][]any, 0, g.batchSize)
			err := reader.ReadRows(ctx, t.Name, t.Columns, func(values []any) error {
				batch = append(batch, values)
				if len(batch) < g.batchSize {
					return nil
				}
				count += len(batch)
				err := g.insert(ctx, s, t, batch)
				batch = batch[:0]
				return err
			})
			if err != nil {
				return err
			}
			if len(batch) > 0 {
				count += len(batch)
				if err := g.insert(ctx, s, t, batch); err != nil {
					return err
				}
			}
			g.logger.Info("Ingested datasource table",
				zap.String("datasource_id", ds.ID.String()),
				zap.String("table", t.Name),
				zap.Int("rows", count))
		}
		return nil
	})
}

var _ Gateway = (*gateway)(nil)
