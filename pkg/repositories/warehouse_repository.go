package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// WarehouseRepository defines data access for warehouses.
type WarehouseRepository interface {
	// Create inserts the warehouse. A second warehouse for the same project yields apperrors.ErrConflict.
	Create(ctx context.Context, wh *models.Warehouse) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Warehouse, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Warehouse, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Warehouse, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type warehouseRepository struct{}

// NewWarehouseRepository creates a new warehouse repository.
func NewWarehouseRepository() WarehouseRepository {
	return &warehouseRepository{}
}

const warehouseColumns = `w.id, w.name, w.project_id, w.created_at, w.updated_at`

func scanWarehouse(row pgx.Row) (*models.Warehouse, error) {
	var wh models.Warehouse
	if err := row.Scan(&wh.ID, &wh.Name, &wh.ProjectID, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
		return nil, err
	}
	return &wh, nil
}

func (r *warehouseRepository) Create(ctx context.Context, wh *models.Warehouse) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if wh.ID == uuid.Nil {
		wh.ID = uuid.New()
	}

	err = q.QueryRow(ctx, `
		INSERT INTO warehouses (id, project_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		wh.ID, wh.ProjectID, wh.Name,
	).Scan(&wh.CreatedAt, &wh.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperrors.ErrConflict
		case isForeignKeyViolation(err):
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to create warehouse: %w", err)
	}
	return nil
}

func (r *warehouseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	wh, err := scanWarehouse(q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses w WHERE w.id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get warehouse")
	}
	return wh, nil
}

// GetByProject returns the project's warehouse or apperrors.ErrNotFound.
func (r *warehouseRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Warehouse, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	wh, err := scanWarehouse(q.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses w WHERE w.project_id = $1`, projectID))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get project warehouse")
	}
	return wh, nil
}

func (r *warehouseRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Warehouse, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+warehouseColumns+`
		FROM warehouses w
		JOIN projects p ON p.id = w.project_id
		WHERE p.created_by = $1
		ORDER BY w.seq
		OFFSET $2 LIMIT $3`,
		ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Warehouse, 0)
	for rows.Next() {
		wh, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		out = append(out, wh)
	}
	return out, rows.Err()
}

func (r *warehouseRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Warehouse, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	wh, err := scanWarehouse(q.QueryRow(ctx, `
		UPDATE warehouses w
		SET name = $2, updated_at = now()
		WHERE w.id = $1
		RETURNING `+warehouseColumns,
		id, name))
	if err != nil {
		return nil, wrapNotFound(err, "failed to update warehouse")
	}
	return wh, nil
}

func (r *warehouseRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return false, err
	}

	tag, err := q.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete warehouse: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *warehouseRepository) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var owner uuid.UUID
	err = q.QueryRow(ctx, `
		SELECT p.created_by
		FROM warehouses w
		JOIN projects p ON p.id = w.project_id
		WHERE w.id = $1`, id).Scan(&owner)
	if err != nil {
		return uuid.Nil, wrapNotFound(err, "failed to get warehouse owner")
	}
	return owner, nil
}
