package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// DataTableRepository defines data access for datatables.
type DataTableRepository interface {
	Create(ctx context.Context, dt *models.DataTable) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataTable, error)
	GetByName(ctx context.Context, datasourceID uuid.UUID, name string) (*models.DataTable, error)
	ListByDatasource(ctx context.Context, datasourceID uuid.UUID) ([]*models.DataTable, error)
	ListPageByDatasource(ctx context.Context, datasourceID uuid.UUID, offset, limit int) ([]*models.DataTable, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.DataTable, error)
	Update(ctx context.Context, id uuid.UUID, update *models.DataTableUpdate) (*models.DataTable, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, columns []models.Column) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	// GetProjectID returns the project of the datasource that holds the datatable.
	GetProjectID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type dataTableRepository struct{}

// NewDataTableRepository creates a new datatable repository.
func NewDataTableRepository() DataTableRepository {
	return &dataTableRepository{}
}

const dataTableColumns = `t.id, t.name, t.datasource_id, t.columns, t.created_at, t.updated_at`

func scanDataTable(row pgx.Row) (*models.DataTable, error) {
	var (
		dt  models.DataTable
		raw []byte
	)
	if err := row.Scan(&dt.ID, &dt.Name, &dt.DatasourceID, &raw, &dt.CreatedAt, &dt.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &dt.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	if dt.Columns == nil {
		dt.Columns = []models.Column{}
	}
	return &dt, nil
}

func collectDataTables(rows pgx.Rows) ([]*models.DataTable, error) {
	defer rows.Close()

	out := make([]*models.DataTable, 0)
	for rows.Next() {
		dt, err := scanDataTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan datatable: %w", err)
		}
		out = append(out, dt)
	}
	return out, rows.Err()
}

func marshalColumns(columns []models.Column) ([]byte, error) {
	if columns == nil {
		columns = []models.Column{}
	}
	raw, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal columns: %w", err)
	}
	return raw, nil
}

// Create inserts a datatable. A duplicate name under the same datasource yields
// apperrors.ErrConflict; a missing datasource yields apperrors.ErrNotFound.
func (r *dataTableRepository) Create(ctx context.Context, dt *models.DataTable) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if dt.ID == uuid.Nil {
		dt.ID = uuid.New()
	}
	raw, err := marshalColumns(dt.Columns)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO datatables (id, datasource_id, name, columns)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		dt.ID, dt.DatasourceID, dt.Name, raw,
	).Scan(&dt.CreatedAt, &dt.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperrors.ErrConflict
		case isForeignKeyViolation(err):
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to create datatable: %w", err)
	}
	return nil
}

func (r *dataTableRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	dt, err := scanDataTable(q.QueryRow(ctx, `SELECT `+dataTableColumns+` FROM datatables t WHERE t.id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get datatable")
	}
	return dt, nil
}

func (r *dataTableRepository) GetByName(ctx context.Context, datasourceID uuid.UUID, name string) (*models.DataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	dt, err := scanDataTable(q.QueryRow(ctx, `
		SELECT `+dataTableColumns+`
		FROM datatables t
		WHERE t.datasource_id = $1 AND t.name = $2`,
		datasourceID, name))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get datatable by name")
	}
	return dt, nil
}

func (r *dataTableRepository) ListByDatasource(ctx context.Context, datasourceID uuid.UUID) ([]*models.DataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+dataTableColumns+`
		FROM datatables t
		WHERE t.datasource_id = $1
		ORDER BY t.seq`, datasourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datatables: %w", err)
	}
	return collectDataTables(rows)
}

func (r *dataTableRepository) ListPageByDatasource(ctx context.Context, datasourceID uuid.UUID, offset, limit int) ([]*models.DataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+dataTableColumns+`
		FROM datatables t
		WHERE t.datasource_id = $1
		ORDER BY t.seq
		OFFSET $2 LIMIT $3`,
		datasourceID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datatables: %w", err)
	}
	return collectDataTables(rows)
}

func (r *dataTableRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.DataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+dataTableColumns+`
		FROM datatables t
		JOIN datasources d ON d.id = t.datasource_id
		JOIN projects p ON p.id = d.project_id
		WHERE p.created_by = $1
		ORDER BY t.seq
		OFFSET $2 LIMIT $3`,
		ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datatables: %w", err)
	}
	return collectDataTables(rows)
}

func (r *dataTableRepository) Update(ctx context.Context, id uuid.UUID, update *models.DataTableUpdate) (*models.DataTable, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if update.Columns != nil {
		if raw, err = marshalColumns(update.Columns); err != nil {
			return nil, err
		}
	}

	dt, err := scanDataTable(q.QueryRow(ctx, `
		UPDATE datatables t
		SET name = COALESCE($2, t.name),
		    columns = COALESCE($3::jsonb, t.columns),
		    updated_at = now()
		WHERE t.id = $1
		RETURNING `+dataTableColumns,
		id, update.Name, raw))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict
		}
		return nil, wrapNotFound(err, "failed to update datatable")
	}
	return dt, nil
}

// UpdateColumns overwrites the column list of a datatable.
func (r *dataTableRepository) UpdateColumns(ctx context.Context, id uuid.UUID, columns []models.Column) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	raw, err := marshalColumns(columns)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `UPDATE datatables SET columns = $2, updated_at = now() WHERE id = $1`, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update datatable columns: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *dataTableRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return false, err
	}

	tag, err := q.Exec(ctx, `DELETE FROM datatables WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete datatable: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *dataTableRepository) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var owner uuid.UUID
	err = q.QueryRow(ctx, `
		SELECT p.created_by
		FROM datatables t
		JOIN datasources d ON d.id = t.datasource_id
		JOIN projects p ON p.id = d.project_id
		WHERE t.id = $1`, id).Scan(&owner)
	if err != nil {
		return uuid.Nil, wrapNotFound(err, "failed to get datatable owner")
	}
	return owner, nil
}

func (r *dataTableRepository) GetProjectID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var projectID uuid.UUID
	err = q.QueryRow(ctx, `
		SELECT d.project_id
		FROM datatables t
		JOIN datasources d ON d.id = t.datasource_id
		WHERE t.id = $1`, id).Scan(&projectID)
	if err != nil {
		return uuid.Nil, wrapNotFound(err, "failed to get datatable project")
	}
	return projectID, nil
}
