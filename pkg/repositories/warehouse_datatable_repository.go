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

// WarehouseDataTableRepository defines data access for warehouse/datatable links.
type WarehouseDataTableRepository interface {
	// Create inserts a link. A duplicate link or a second fact yields apperrors.ErrConflict.
	Create(ctx context.Context, link *models.WarehouseDataTable) error
	Get(ctx context.Context, warehouseID, dataTableID uuid.UUID) (*models.WarehouseDataTable, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*models.WarehouseDataTable, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.DataTableRole) error
	CountFacts(ctx context.Context, warehouseID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type warehouseDataTableRepository struct{}

// NewWarehouseDataTableRepository creates a new link repository.
func NewWarehouseDataTableRepository() WarehouseDataTableRepository {
	return &warehouseDataTableRepository{}
}

const linkColumns = `id, warehouse_id, datatable_id, dt_type, created_at`

func scanLink(row pgx.Row) (*models.WarehouseDataTable, error) {
	var l models.WarehouseDataTable
	if err := row.Scan(&l.ID, &l.WarehouseID, &l.DataTableID, &l.DTType, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *warehouseDataTableRepository) Create(ctx context.Context, link *models.WarehouseDataTable) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}

	err = q.QueryRow(ctx, `
		INSERT INTO warehouse_datatables (id, warehouse_id, datatable_id, dt_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		link.ID, link.WarehouseID, link.DataTableID, link.DTType,
	).Scan(&link.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperrors.ErrConflict
		case isForeignKeyViolation(err):
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to create warehouse datatable: %w", err)
	}
	return nil
}

func (r *warehouseDataTableRepository) Get(ctx context.Context, warehouseID, dataTableID uuid.UUID) (*models.WarehouseDataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	link, err := scanLink(q.QueryRow(ctx, `
		SELECT `+linkColumns+`
		FROM warehouse_datatables
		WHERE warehouse_id = $1 AND datatable_id = $2`,
		warehouseID, dataTableID))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get warehouse datatable")
	}
	return link, nil
}

func (r *warehouseDataTableRepository) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*models.WarehouseDataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+linkColumns+`
		FROM warehouse_datatables
		WHERE warehouse_id = $1
		ORDER BY seq`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouse datatables: %w", err)
	}
	defer rows.Close()

	out := make([]*models.WarehouseDataTable, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse datatable: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *warehouseDataTableRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.DataTableRole) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE warehouse_datatables SET dt_type = $2 WHERE id = $1`, id, role)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update warehouse datatable role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *warehouseDataTableRepository) CountFacts(ctx context.Context, warehouseID uuid.UUID) (int, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = q.QueryRow(ctx, `
		SELECT count(*)
		FROM warehouse_datatables
		WHERE warehouse_id = $1 AND dt_type = 'fact'`, warehouseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count fact tables: %w", err)
	}
	return n, nil
}

func (r *warehouseDataTableRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return false, err
	}

	tag, err := q.Exec(ctx, `DELETE FROM warehouse_datatables WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete warehouse datatable: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
