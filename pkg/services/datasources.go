package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/audit"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
	sqlguard "github.com/ekaya-inc/ekaya-lakehouse/pkg/sql"
)

// DatasourceService manages datasources and keeps their datatables in step
// with what the datasource reports.
type DatasourceService interface {
	List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Datasource, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Datasource, error)

	// ListTables returns the datatables recorded for the datasource.
	ListTables(ctx context.Context, userID, id uuid.UUID) ([]*models.DataTable, error)

	// Create introspects the datasource, then stores it with one datatable per
	// reported table in a single transaction.
	Create(ctx context.Context, userID uuid.UUID, req *models.DatasourceCreate) (*models.Datasource, error)

	// Update applies a partial update, re-introspects and reconciles datatables
	// additively in a single transaction.
	Update(ctx context.Context, userID, id uuid.UUID, update *models.DatasourceUpdate) (*models.Datasource, error)

	Delete(ctx context.Context, userID, id uuid.UUID) error

	// ListTypes returns the supported datasource types.
	ListTypes() []datasource.AdapterInfo
}

type datasourceService struct {
	datasources repositories.DatasourceRepository
	datatables  repositories.DataTableRepository
	projects    repositories.ProjectRepository
	adapters    datasource.AdapterFactory
	inTx        TxFunc
	auditor     *audit.SecurityAuditor
	logger      *zap.Logger
}

// NewDatasourceService creates a datasource service.
func NewDatasourceService(
	datasources repositories.DatasourceRepository,
	datatables repositories.DataTableRepository,
	projects repositories.ProjectRepository,
	adapters datasource.AdapterFactory,
	inTx TxFunc,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) DatasourceService {
	return &datasourceService{
		datasources: datasources,
		datatables:  datatables,
		projects:    projects,
		adapters:    adapters,
		inTx:        inTx,
		auditor:     auditor,
		logger:      logger.Named("datasources"),
	}
}

func (s *datasourceService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Datasource, error) {
	return s.datasources.ListByOwner(ctx, userID, offset, limit)
}

func (s *datasourceService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Datasource, error) {
	if err := requireOwner(ctx, s.datasources.GetOwner, id, userID); err != nil {
		return nil, err
	}
	return s.datasources.GetByID(ctx, id)
}

func (s *datasourceService) ListTables(ctx context.Context, userID, id uuid.UUID) ([]*models.DataTable, error) {
	if err := requireOwner(ctx, s.datasources.GetOwner, id, userID); err != nil {
		return nil, err
	}
	return s.datatables.ListByDatasource(ctx, id)
}

func (s *datasourceService) ListTypes() []datasource.AdapterInfo {
	return s.adapters.ListTypes()
}

// validate checks the shape of a datasource before anything touches the network.
func (s *datasourceService) validate(ctx context.Context, ds *models.Datasource) error {
	if strings.TrimSpace(ds.Name) == "" {
		return apperrors.BadRequest("name is required")
	}
	if !ds.DSType.IsValid() {
		return apperrors.BadRequest(fmt.Sprintf("Unsupported ds_type %q", ds.DSType))
	}
	if ds.Config == nil {
		ds.Config = map[string]any{}
	}
	if err := s.adapters.ValidateConfig(ds.Name, ds.DSType, ds.Config); err != nil {
		return apperrors.BadRequest(fmt.Sprintf("Invalid config for %s: %s", ds.DSType, err.Error()))
	}

	// SQL datasources interpolate table names into statements.
	if ds.DSType.IsExternal() && ds.DSType != models.DatasourceMongoDB {
		tables, _ := datasource.TableList(ds.Config)
		if err := sqlguard.CheckIdentifiers("table", tables); err != nil {
			var injection *sqlguard.InjectionError
			if errors.As(err, &injection) {
				s.auditor.LogInjectionAttempt(ctx, ds.ProjectID, audit.InjectionDetails{
					Kind: injection.Kind, Name: injection.Name, Fingerprint: injection.Fingerprint,
				})
			}
			return apperrors.BadRequest(err.Error())
		}
	}
	return nil
}

// introspect connects to the datasource and describes its requested tables.
func (s *datasourceService) introspect(ctx context.Context, ds *models.Datasource) ([]models.TableDescriptor, error) {
	introspector, err := s.adapters.NewIntrospector(ctx, ds)
	if err != nil {
		return nil, apperrors.External(err)
	}
	defer introspector.Close()

	tables, err := datasource.TableList(ds.Config)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	descriptors, err := datasource.Introspect(ctx, introspector, tables)
	if err != nil {
		return nil, apperrors.External(err)
	}
	return descriptors, nil
}

// reconcile matches descriptors to the datasource's datatables by name.
// Matched tables get the new columns, unmatched ones are inserted, none are deleted.
func (s *datasourceService) reconcile(ctx context.Context, datasourceID uuid.UUID, descriptors []models.TableDescriptor) (created, updated int, err error) {
	for _, d := range descriptors {
		existing, err := s.datatables.GetByName(ctx, datasourceID, d.TableName)
		if errors.Is(err, apperrors.ErrNotFound) {
			dt := &models.DataTable{Name: d.TableName, DatasourceID: datasourceID, Columns: d.Columns}
			if err := s.datatables.Create(ctx, dt); err != nil {
				return created, updated, err
			}
			created++
			continue
		}
		if err != nil {
			return created, updated, err
		}
		if columnsEqual(existing.Columns, d.Columns) {
			continue
		}
		if err := s.datatables.UpdateColumns(ctx, existing.ID, d.Columns); err != nil {
			return created, updated, err
		}
		updated++
	}
	return created, updated, nil
}

func columnsEqual(a, b []models.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *datasourceService) Create(ctx context.Context, userID uuid.UUID, req *models.DatasourceCreate) (*models.Datasource, error) {
	ds := &models.Datasource{
		Name:      strings.TrimSpace(req.Name),
		ProjectID: req.ProjectID,
		DSType:    req.DSType,
		Config:    req.Config,
	}
	if ds.ProjectID == uuid.Nil {
		return nil, apperrors.BadRequest("project_id is required")
	}
	if err := s.validate(ctx, ds); err != nil {
		return nil, err
	}
	if err := requireOwner(ctx, s.projects.GetOwner, ds.ProjectID, userID); err != nil {
		return nil, err
	}

	descriptors, err := s.introspect(ctx, ds)
	if err != nil {
		s.logger.Info("Datasource introspection failed",
			zap.String("project_id", ds.ProjectID.String()),
			zap.String("ds_type", string(ds.DSType)))
		return nil, err
	}

	var created int
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.datasources.Create(ctx, ds); err != nil {
			return err
		}
		var rerr error
		created, _, rerr = s.reconcile(ctx, ds.ID, descriptors)
		return rerr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Datasource created",
		zap.String("datasource_id", ds.ID.String()),
		zap.String("project_id", ds.ProjectID.String()),
		zap.String("ds_type", string(ds.DSType)),
		zap.Int("datatables_created", created))
	return ds, nil
}

func (s *datasourceService) Update(ctx context.Context, userID, id uuid.UUID, update *models.DatasourceUpdate) (*models.Datasource, error) {
	if err := requireOwner(ctx, s.datasources.GetOwner, id, userID); err != nil {
		return nil, err
	}
	current, err := s.datasources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}

	candidate := update.Apply(current)
	if err := s.validate(ctx, candidate); err != nil {
		return nil, err
	}
	if update.ProjectID != nil && *update.ProjectID != current.ProjectID {
		if err := requireOwner(ctx, s.projects.GetOwner, *update.ProjectID, userID); err != nil {
			return nil, err
		}
	}

	descriptors, err := s.introspect(ctx, candidate)
	if err != nil {
		return nil, err
	}

	var stored *models.Datasource
	var created, updated int
	err = s.inTx(ctx, func(ctx context.Context) error {
		var err error
		if stored, err = s.datasources.Update(ctx, id, update); err != nil {
			return err
		}
		created, updated, err = s.reconcile(ctx, id, descriptors)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Datasource updated",
		zap.String("datasource_id", id.String()),
		zap.Int("datatables_created", created),
		zap.Int("datatables_updated", updated))
	return stored, nil
}

func (s *datasourceService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := requireOwner(ctx, s.datasources.GetOwner, id, userID); err != nil {
		return err
	}
	deleted, err := s.datasources.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrNotFound
	}

	s.logger.Info("Datasource deleted", zap.String("datasource_id", id.String()))
	return nil
}

var _ DatasourceService = (*datasourceService)(nil)
