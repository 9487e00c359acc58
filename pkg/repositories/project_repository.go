package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/database"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// ProjectRepository defines data access for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Project, error)
	Update(ctx context.Context, id uuid.UUID, update *models.ProjectUpdate) (*models.Project, error)
	// Delete removes the project and, through cascades, its datasources and warehouse.
	// Returns false when no project has the id.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

const projectColumns = `id, name, node_url, created_by, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	if err := row.Scan(&p.ID, &p.Name, &p.NodeURL, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return err
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	err = q.QueryRow(ctx, `
		INSERT INTO projects (id, name, node_url, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		project.ID, project.Name, project.NodeURL, project.CreatedBy,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	project, err := scanProject(q.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNotFound(err, "failed to get project")
	}
	return project, nil
}

func (r *projectRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Project, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE created_by = $1
		ORDER BY seq
		OFFSET $2 LIMIT $3`,
		ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Update applies the non-nil fields of update and returns the stored project.
func (r *projectRepository) Update(ctx context.Context, id uuid.UUID, update *models.ProjectUpdate) (*models.Project, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return nil, err
	}

	project, err := scanProject(q.QueryRow(ctx, `
		UPDATE projects
		SET name = COALESCE($2, name),
		    node_url = COALESCE($3, node_url),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+projectColumns,
		id, update.Name, update.NodeURL))
	if err != nil {
		return nil, wrapNotFound(err, "failed to update project")
	}
	return project, nil
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return false, err
	}

	tag, err := q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetOwner returns the id of the user who created the project.
func (r *projectRepository) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	q, err := database.QuerierFrom(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var owner uuid.UUID
	if err := q.QueryRow(ctx, `SELECT created_by FROM projects WHERE id = $1`, id).Scan(&owner); err != nil {
		return uuid.Nil, wrapNotFound(err, "failed to get project owner")
	}
	return owner, nil
}
