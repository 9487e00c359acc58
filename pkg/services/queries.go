package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
	sqlguard "github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// ErrInvalidFileFormat is returned for uploads that are neither CSV nor JSON.
var ErrInvalidFileFormat = apperrors.BadRequest("Invalid file format. Only CSV and JSON formats are available.")

// QueryResult is a result set in response form.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// WriteRequest asks for rows to be appended to a datatable's table.
// File is nil when the rows should come from the datatable's datasource.
type WriteRequest struct {
	ProjectID   uuid.UUID
	DataTableID uuid.UUID
	FileName    string
	File        io.Reader
}

// QueryService runs statements against a project's compute cluster.
type QueryService interface {
	// Query validates and runs any single statement.
	Query(ctx context.Context, userID, projectID uuid.UUID, query string) (*QueryResult, error)

	// Read is Query restricted to read statements.
	Read(ctx context.Context, userID, projectID uuid.UUID, query string) (*QueryResult, error)

	Write(ctx context.Context, userID uuid.UUID, req *WriteRequest) error
}

type queryService struct {
	projects    repositories.ProjectRepository
	datatables  repositories.DataTableRepository
	datasources repositories.DatasourceRepository
	gateway     Gateway
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
}

// NewQueryService creates a query service.
func NewQueryService(
	projects repositories.ProjectRepository,
	datatables repositories.DataTableRepository,
	datasources repositories.DatasourceRepository,
	gateway Gateway,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) QueryService {
	return &queryService{
		projects:    projects,
		datatables:  datatables,
		datasources: datasources,
		gateway:     gateway,
		auditor:     auditor,
		logger:      logger.Named("queries"),
	}
}

func (s *queryService) ownedProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	if projectID == uuid.Nil {
		return nil, apperrors.BadRequest("project_id is required")
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CreatedBy != userID {
		return nil, apperrors.ErrUnauthorized
	}
	return project, nil
}

func (s *queryService) Query(ctx context.Context, userID, projectID uuid.UUID, query string) (*QueryResult, error) {
	return s.run(ctx, userID, projectID, query, false)
}

func (s *queryService) Read(ctx context.Context, userID, projectID uuid.UUID, query string) (*QueryResult, error) {
	return s.run(ctx, userID, projectID, query, true)
}

func (s *queryService) run(ctx context.Context, userID, projectID uuid.UUID, query string, readOnly bool) (*QueryResult, error) {
	project, err := s.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	normalized, err := sqlguard.ValidateAndNormalize(query)
	if err != nil {
		s.auditor.LogStatementRejected(ctx, project.ID, query, err.Error())
		return nil, apperrors.BadRequest(err.Error())
	}
	if readOnly && !sqlguard.IsReadStatement(normalized) {
		s.auditor.LogStatementRejected(ctx, project.ID, normalized, sqlguard.ErrNotReadStatement.Error())
		return nil, apperrors.BadRequest(sqlguard.ErrNotReadStatement.Error())
	}

	if err := s.gateway.Validate(ctx, project.NodeURL, normalized); err != nil {
		return nil, err
	}
	result, err := s.gateway.Run(ctx, project.NodeURL, normalized)
	if err != nil {
		return nil, err
	}

	s.auditor.LogQueryExecution(ctx, project.ID, normalized, len(result.Rows))

	rows := result.Records()
	if rows == nil {
		rows = []map[string]any{}
	}
	return &QueryResult{Columns: result.Columns, Rows: rows}, nil
}

func (s *queryService) Write(ctx context.Context, userID uuid.UUID, req *WriteRequest) error {
	project, err := s.ownedProject(ctx, userID, req.ProjectID)
	if err != nil {
		return err
	}

	var format string
	if req.File != nil {
		if format, err = uploadFormat(req.FileName); err != nil {
			return err
		}
	}

	if req.DataTableID == uuid.Nil {
		return apperrors.BadRequest("datatable_id is required")
	}
	table, err := s.datatables.GetByID(ctx, req.DataTableID)
	if err != nil {
		return err
	}
	owner, err := s.datatables.GetProjectID(ctx, table.ID)
	if err != nil {
		return err
	}
	if owner != project.ID {
		return apperrors.BadRequest(fmt.Sprintf("DataTable(id=%s) does not belong to Project(id=%s)", table.ID, project.ID))
	}

	if req.File == nil {
		ds, err := s.datasources.GetByID(ctx, table.DatasourceID)
		if err != nil {
			return err
		}
		if !ds.DSType.IsExternal() {
			return apperrors.BadRequest(fmt.Sprintf("Datasource(id=%s) of type %s has no live data; upload a file", ds.ID, ds.DSType))
		}
		return s.gateway.IngestFromDatasource(ctx, project.NodeURL, ds, []*models.DataTable{table})
	}

	rows, err := ParseRows(req.File, format, table.Columns)
	if err != nil {
		return apperrors.BadRequest(err.Error())
	}
	if err := s.gateway.AppendRows(ctx, project.NodeURL, table, rows); err != nil {
		return err
	}

	s.logger.Info("Rows appended from upload",
		zap.String("datatable_id", table.ID.String()),
		zap.String("format", format),
		zap.Int("rows", len(rows)))
	return nil
}

// uploadFormat maps an uploaded file name to csv or json.
func uploadFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv":
		return "csv", nil
	case "json":
		return "json", nil
	}
	return "", ErrInvalidFileFormat
}

// ParseRows reads a CSV document with a header row, or a JSON array of objects,
// and returns its rows ordered and coerced to columns. Fields missing from a
// record become NULL; fields not named by a column are ignored.
func ParseRows(r io.Reader, format string, columns []models.Column) ([][]any, error) {
	var records []map[string]any
	var err error
	switch format {
	case "csv":
		records, err = readCSV(r)
	case "json":
		records, err = readJSON(r)
	default:
		return nil, ErrInvalidFileFormat
	}
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			v, err := compute.Coerce(rec[col.Name], col.Type)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", i+1, col.Name, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}

	var records []map[string]any
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}
		rec := make(map[string]any, len(header))
		for i, name := range header {
			rec[strings.TrimSpace(name)] = fields[i]
		}
		records = append(records, rec)
	}
}

func readJSON(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid JSON: expected an array of objects: %w", err)
	}
	return records, nil
}

var _ QueryService = (*queryService)(nil)
