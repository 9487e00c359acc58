package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
	sqlguard "github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// DataTableService manages datatables directly, outside of datasource reconciliation.
type DataTableService interface {
	// List returns the caller's datatables, or those of one datasource when datasourceID is set.
	List(ctx context.Context, userID uuid.UUID, datasourceID *uuid.UUID, offset, limit int) ([]*models.DataTable, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.DataTable, error)
	Create(ctx context.Context, userID uuid.UUID, req *models.DataTableCreate) (*models.DataTable, error)
	Update(ctx context.Context, userID, id uuid.UUID, update *models.DataTableUpdate) (*models.DataTable, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type dataTableService struct {
	datatables  repositories.DataTableRepository
	datasources repositories.DatasourceRepository
	logger      *zap.Logger
}

// NewDataTableService creates a datatable service.
func NewDataTableService(
	datatables repositories.DataTableRepository,
	datasources repositories.DatasourceRepository,
	logger *zap.Logger,
) DataTableService {
	return &dataTableService{
		datatables:  datatables,
		datasources: datasources,
		logger:      logger.Named("datatables"),
	}
}

func (s *dataTableService) List(ctx context.Context, userID uuid.UUID, datasourceID *uuid.UUID, offset, limit int) ([]*models.DataTable, error) {
	if datasourceID == nil {
		return s.datatables.ListByOwner(ctx, userID, offset, limit)
	}
	if err := requireOwner(ctx, s.datasources.GetOwner, *datasourceID, userID); err != nil {
		return nil, err
	}
	return s.datatables.ListPageByDatasource(ctx, *datasourceID, offset, limit)
}

func (s *dataTableService) Get(ctx context.Context, userID, id uuid.UUID) (*models.DataTable, error) {
	if err := requireOwner(ctx, s.datatables.GetOwner, id, userID); err != nil {
		return nil, err
	}
	return s.datatables.GetByID(ctx, id)
}

func validateTableName(name string) error {
	if name == "" {
		return apperrors.BadRequest("name is required")
	}
	if err := sqlguard.CheckIdentifier("datatable", name); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	return nil
}

func (s *dataTableService) Create(ctx context.Context, userID uuid.UUID, req *models.DataTableCreate) (*models.DataTable, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateTableName(name); err != nil {
		return nil, err
	}
	if err := models.ValidateColumns(req.Columns); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	if req.DatasourceID == uuid.Nil {
		return nil, apperrors.BadRequest("datasource_id is required")
	}
	if err := requireOwner(ctx, s.datasources.GetOwner, req.DatasourceID, userID); err != nil {
		return nil, err
	}

	dt := &models.DataTable{Name: name, DatasourceID: req.DatasourceID, Columns: req.Columns}
	if err := s.datatables.Create(ctx, dt); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.BadRequest(fmt.Sprintf("DataTable(name=%s) already exists in Datasource(id=%s)", name, req.DatasourceID))
		}
		return nil, err
	}

	s.logger.Info("DataTable created",
		zap.String("datatable_id", dt.ID.String()),
		zap.String("datasource_id", dt.DatasourceID.String()))
	return dt, nil
}

func (s *dataTableService) Update(ctx context.Context, userID, id uuid.UUID, update *models.DataTableUpdate) (*models.DataTable, error) {
	if err := requireOwner(ctx, s.datatables.GetOwner, id, userID); err != nil {
		return nil, err
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if err := validateTableName(trimmed); err != nil {
			return nil, err
		}
		update.Name = &trimmed
	}
	if update.Columns != nil {
		if err := models.ValidateColumns(update.Columns); err != nil {
			return nil, apperrors.BadRequest(err.Error())
		}
	}

	dt, err := s.datatables.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.BadRequest(fmt.Sprintf("DataTable(name=%s) already exists in its datasource", *update.Name))
		}
		return nil, err
	}

	s.logger.Info("DataTable updated", zap.String("datatable_id", id.String()))
	return dt, nil
}

func (s *dataTableService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := requireOwner(ctx, s.datatables.GetOwner, id, userID); err != nil {
		return err
	}
	deleted, err := s.datatables.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrNotFound
	}

	s.logger.Info("DataTable deleted", zap.String("datatable_id", id.String()))
	return nil
}

var _ DataTableService = (*dataTableService)(nil)
