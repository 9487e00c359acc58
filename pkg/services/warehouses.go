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
)

var errTooManyFacts = apperrors.BadRequest("A warehouse can have at most one fact table")

// WarehouseService manages warehouses and the role of each datatable in them.
type WarehouseService interface {
	List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Warehouse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.WarehouseDetails, error)

	// Create stores the warehouse and its links, then builds and fills the tables
	// on the project's compute cluster. A cluster failure undoes the whole creation.
	Create(ctx context.Context, userID uuid.UUID, req *models.WarehouseCreate) (*models.Warehouse, error)

	// Update renames the warehouse and overwrites the roles of the given datatables,
	// linking those not yet in the warehouse.
	Update(ctx context.Context, userID, id uuid.UUID, update *models.WarehouseUpdate) (*models.Warehouse, error)

	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type warehouseService struct {
	warehouses  repositories.WarehouseRepository
	links       repositories.WarehouseDataTableRepository
	datatables  repositories.DataTableRepository
	datasources repositories.DatasourceRepository
	projects    repositories.ProjectRepository
	gateway     Gateway
	inTx        TxFunc
	logger      *zap.Logger
}

// NewWarehouseService creates a warehouse service.
func NewWarehouseService(
	warehouses repositories.WarehouseRepository,
	links repositories.WarehouseDataTableRepository,
	datatables repositories.DataTableRepository,
	datasources repositories.DatasourceRepository,
	projects repositories.ProjectRepository,
	gateway Gateway,
	inTx TxFunc,
	logger *zap.Logger,
) WarehouseService {
	return &warehouseService{
		warehouses:  warehouses,
		links:       links,
		datatables:  datatables,
		datasources: datasources,
		projects:    projects,
		gateway:     gateway,
		inTx:        inTx,
		logger:      logger.Named("warehouses"),
	}
}

func (s *warehouseService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Warehouse, error) {
	return s.warehouses.ListByOwner(ctx, userID, offset, limit)
}

func (s *warehouseService) Get(ctx context.Context, userID, id uuid.UUID) (*models.WarehouseDetails, error) {
	if err := requireOwner(ctx, s.warehouses.GetOwner, id, userID); err != nil {
		return nil, err
	}
	wh, err := s.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	links, err := s.links.ListByWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.WarehouseDetails{Warehouse: wh, DataTables: links}, nil
}

// roleEntry is one (datatable, role) pair from a role assignment.
type roleEntry struct {
	id   uuid.UUID
	role models.DataTableRole
}

// flatten validates a role assignment and returns its entries, dimensions first.
func flatten(assign models.RoleAssignment) ([]roleEntry, error) {
	seen := make(map[uuid.UUID]models.DataTableRole)
	var dims, facts []roleEntry
	for role, ids := range assign {
		if !role.IsValid() {
			return nil, apperrors.BadRequest(fmt.Sprintf("Unknown datatable role %q (expected fact or dimension)", role))
		}
		for _, id := range ids {
			if prev, ok := seen[id]; ok {
				if prev != role {
					return nil, apperrors.BadRequest(fmt.Sprintf("DataTable(id=%s) is assigned more than one role", id))
				}
				continue
			}
			seen[id] = role
			if role == models.RoleFact {
				facts = append(facts, roleEntry{id, role})
			} else {
				dims = append(dims, roleEntry{id, role})
			}
		}
	}
	if len(facts) > 1 {
		return nil, errTooManyFacts
	}
	return append(dims, facts...), nil
}

// loadTables checks that every entry names an existing datatable of projectID.
func (s *warehouseService) loadTables(ctx context.Context, projectID uuid.UUID, entries []roleEntry) (map[uuid.UUID]*models.DataTable, error) {
	tables := make(map[uuid.UUID]*models.DataTable, len(entries))
	for _, e := range entries {
		dt, err := s.datatables.GetByID(ctx, e.id)
		if err != nil {
			return nil, err
		}
		owner, err := s.datatables.GetProjectID(ctx, e.id)
		if err != nil {
			return nil, err
		}
		if owner != projectID {
			return nil, apperrors.BadRequest(fmt.Sprintf("DataTable(id=%s) does not belong to Project(id=%s)", e.id, projectID))
		}
		tables[e.id] = dt
	}
	return tables, nil
}

func (s *warehouseService) Create(ctx context.Context, userID uuid.UUID, req *models.WarehouseCreate) (*models.Warehouse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest("name is required")
	}
	if req.ProjectID == uuid.Nil {
		return nil, apperrors.BadRequest("project_id is required")
	}
	project, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.CreatedBy != userID {
		return nil, apperrors.ErrUnauthorized
	}

	if _, err := s.warehouses.GetByProject(ctx, project.ID); err == nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("Project(id=%s) already has a warehouse", project.ID))
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	entries, err := flatten(req.DataTables)
	if err != nil {
		return nil, err
	}
	tables, err := s.loadTables(ctx, project.ID, entries)
	if err != nil {
		return nil, err
	}

	wh := &models.Warehouse{Name: name, ProjectID: project.ID}
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.warehouses.Create(ctx, wh); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return apperrors.BadRequest(fmt.Sprintf("Project(id=%s) already has a warehouse", project.ID))
			}
			return err
		}

		linked := make([]*models.DataTable, 0, len(entries))
		for _, e := range entries {
			if _, err := s.links.Get(ctx, wh.ID, e.id); err == nil {
				continue
			} else if !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			link := &models.WarehouseDataTable{WarehouseID: wh.ID, DataTableID: e.id, DTType: e.role}
			if err := s.links.Create(ctx, link); err != nil {
				if errors.Is(err, apperrors.ErrConflict) {
					return errTooManyFacts
				}
				return err
			}
			linked = append(linked, tables[e.id])
		}

		return s.buildOnCluster(ctx, project.NodeURL, linked)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Warehouse created",
		zap.String("warehouse_id", wh.ID.String()),
		zap.String("project_id", project.ID.String()),
		zap.Int("datatables", len(entries)))
	return wh, nil
}

// buildOnCluster creates the tables on the compute cluster and ingests the rows
// of every live datasource behind them.
func (s *warehouseService) buildOnCluster(ctx context.Context, nodeURL string, tables []*models.DataTable) error {
	if len(tables) == 0 {
		return nil
	}
	if err := s.gateway.CreateTables(ctx, nodeURL, tables); err != nil {
		return err
	}

	var order []uuid.UUID
	byDatasource := make(map[uuid.UUID][]*models.DataTable)
	for _, t := range tables {
		if _, ok := byDatasource[t.DatasourceID]; !ok {
			order = append(order, t.DatasourceID)
		}
		byDatasource[t.DatasourceID] = append(byDatasource[t.DatasourceID], t)
	}

	for _, dsID := range order {
		ds, err := s.datasources.GetByID(ctx, dsID)
		if err != nil {
			return err
		}
		if err := s.gateway.IngestFromDatasource(ctx, nodeURL, ds, byDatasource[dsID]); err != nil {
			return err
		}
	}
	return nil
}

func (s *warehouseService) Update(ctx context.Context, userID, id uuid.UUID, update *models.WarehouseUpdate) (*models.Warehouse, error) {
	if err := requireOwner(ctx, s.warehouses.GetOwner, id, userID); err != nil {
		return nil, err
	}
	wh, err := s.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var name string
	if update.Name != nil {
		if name = strings.TrimSpace(*update.Name); name == "" {
			return nil, apperrors.BadRequest("name must not be empty")
		}
	}
	entries, err := flatten(update.DataTables)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadTables(ctx, wh.ProjectID, entries); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if update.Name != nil {
			updated, err := s.warehouses.UpdateName(ctx, id, name)
			if err != nil {
				return err
			}
			wh = updated
		}

		// Entries arrive dimensions first, so a fact is demoted before its
		// replacement is promoted and the single-fact index never trips mid-update.
		for _, e := range entries {
			link, err := s.links.Get(ctx, id, e.id)
			switch {
			case errors.Is(err, apperrors.ErrNotFound):
				err = s.links.Create(ctx, &models.WarehouseDataTable{WarehouseID: id, DataTableID: e.id, DTType: e.role})
			case err != nil:
				return err
			case link.DTType != e.role:
				err = s.links.UpdateRole(ctx, link.ID, e.role)
			}
			if errors.Is(err, apperrors.ErrConflict) {
				return errTooManyFacts
			}
			if err != nil {
				return err
			}
		}

		facts, err := s.links.CountFacts(ctx, id)
		if err != nil {
			return err
		}
		if facts > 1 {
			return errTooManyFacts
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Warehouse updated",
		zap.String("warehouse_id", id.String()),
		zap.Int("roles_assigned", len(entries)))
	return wh, nil
}

func (s *warehouseService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := requireOwner(ctx, s.warehouses.GetOwner, id, userID); err != nil {
		return err
	}
	deleted, err := s.warehouses.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrNotFound
	}

	s.logger.Info("Warehouse deleted", zap.String("warehouse_id", id.String()))
	return nil
}

var _ WarehouseService = (*warehouseService)(nil)
