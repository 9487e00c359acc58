package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/crypto"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// DatasourceRepository defines data access for datasources.
// Configs are encrypted before they reach the database and decrypted on read.
type DatasourceRepository interface {
	Create(ctx context.Context, ds *models.Datasource) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Datasource, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Datasource, error)
	Update(ctx context.Context, id uuid.UUID, update *models.DatasourceUpdate) (*models.Datasource, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type datasourceRepository struct {
	encryptor *crypto.ConfigEncryptor
}

// NewDatasourceRepository creates a datasource repository that seals configs with encryptor.
func NewDatasourceRepository(encryptor *crypto.ConfigEncryptor) DatasourceRepository {
	return &datasourceRepository{encryptor: encryptor}
}

const datasourceColumns = `d.id, d.project_id, d.name, d.ds_type, d.config, d.created_at, d.updated_at`

func (r *datasourceRepository) scan(row pgx.Row) (*models.Datasource, error) {
	var (
		ds     models.Datasource
		sealed string
	)
	if err := row.Scan(&ds.ID, &ds.ProjectID, &ds.Name, &ds.DSType, &sealed, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
		return nil, err
	}
	config, err := r.encryptor.DecryptConfig(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt config of datasource %s: %w", ds.ID, err)
	}
	ds.Config = config
	return &ds, nil
}

func (r *datasourceRepository) collect(rows pgx.Rows) ([]*models.Datasource, error) {
	defer rows.Close()

	out := make([]*models.Datasource, 0)
	for rows.Next() {
		ds, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan datasource: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// Create inserts the datasource. A missing project yields apperrors.ErrNotFound.
func (r *datasourceRepository) Create(ctx context.Context, ds *models.Datasource) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}

	sealed, err := r.encryptor.EncryptConfig(ds.Config)
	if err != nil {
		return fmt.Errorf("failed to encrypt datasource config: %w", err)
	}

	err = q.QueryRow(ctx, `
		INSERT INTO datasources (id, project_id, name, ds_type, config)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		ds.ID, ds.ProjectID, ds.Name, ds.DSType, sealed,
	).Scan(&ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to create datasource: %w", err)
	}
	return nil
}

func (r *datasourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	ds, err := r.scan(q.QueryRow(ctx, `SELECT `+datasourceColumns+` FROM datasources d WHERE d.id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get datasource")
	}
	return ds, nil
}

// ListByOwner returns datasources of every project the user owns, in creation order.
func (r *datasourceRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Datasource, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+datasourceColumns+`
		FROM datasources d
		JOIN projects p ON p.id = d.project_id
		WHERE p.created_by = $1
		ORDER BY d.seq
		OFFSET $2 LIMIT $3`,
		ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	return r.collect(rows)
}

func (r *datasourceRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Datasource, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+datasourceColumns+`
		FROM datasources d
		WHERE d.project_id = $1
		ORDER BY d.seq`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project datasources: %w", err)
	}
	return r.collect(rows)
}

// Update applies the non-nil fields of update. A nil Config keeps the stored config.
func (r *datasourceRepository) Update(ctx context.Context, id uuid.UUID, update *models.DatasourceUpdate) (*models.Datasource, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	var sealed *string
	if update.Config != nil {
		s, err := r.encryptor.EncryptConfig(update.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt datasource config: %w", err)
		}
		sealed = &s
	}

	ds, err := r.scan(q.QueryRow(ctx, `
		UPDATE datasources d
		SET name = COALESCE($2, d.name),
		    project_id = COALESCE($3, d.project_id),
		    ds_type = COALESCE($4, d.ds_type),
		    config = COALESCE($5, d.config),
		    updated_at = now()
		WHERE d.id = $1
		RETURNING `+datasourceColumns,
		id, update.Name, update.ProjectID, update.DSType, sealed))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapNotFound(err, "failed to update datasource")
	}
	return ds, nil
}

func (r *datasourceRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return false, err
	}

	tag, err := q.Exec(ctx, `DELETE FROM datasources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete datasource: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetOwner returns the owner of the project the datasource belongs to.
func (r *datasourceRepository) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var owner uuid.UUID
	err = q.QueryRow(ctx, `
		SELECT p.created_by
		FROM datasources d
		JOIN projects p ON p.id = d.project_id
		WHERE d.id = $1`, id).Scan(&owner)
	if err != nil {
		return uuid.Nil, wrapNotFound(err, "failed to get datasource owner")
	}
	return owner, nil
}
