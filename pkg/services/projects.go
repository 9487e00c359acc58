package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
)

// ProjectService manages projects and their ownership.
type ProjectService interface {
	List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Project, error)

	// GetContent returns the project with its warehouse and datasources.
	GetContent(ctx context.Context, userID, id uuid.UUID) (*models.ProjectContent, error)

	Create(ctx context.Context, userID uuid.UUID, name, nodeURL string) (*models.Project, error)
	Update(ctx context.Context, userID, id uuid.UUID, update *models.ProjectUpdate) (*models.Project, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// Authorize returns the project when userID owns it.
	Authorize(ctx context.Context, userID, id uuid.UUID) (*models.Project, error)
}

type projectService struct {
	projects    repositories.ProjectRepository
	warehouses  repositories.WarehouseRepository
	datasources repositories.DatasourceRepository
	logger      *zap.Logger
}

// NewProjectService creates a project service.
func NewProjectService(
	projects repositories.ProjectRepository,
	warehouses repositories.WarehouseRepository,
	datasources repositories.DatasourceRepository,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projects:    projects,
		warehouses:  warehouses,
		datasources: datasources,
		logger:      logger.Named("projects"),
	}
}

func (s *projectService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Project, error) {
	return s.projects.ListByOwner(ctx, userID, offset, limit)
}

func (s *projectService) Authorize(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.CreatedBy != userID {
		return nil, apperrors.ErrUnauthorized
	}
	return project, nil
}

func (s *projectService) GetContent(ctx context.Context, userID, id uuid.UUID) (*models.ProjectContent, error) {
	project, err := s.Authorize(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	content := &models.ProjectContent{Project: project}
	wh, err := s.warehouses.GetByProject(ctx, id)
	switch {
	case err == nil:
		content.Warehouse = wh
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	if content.Datasources, err = s.datasources.ListByProject(ctx, id); err != nil {
		return nil, err
	}
	return content, nil
}

func validateNodeURL(nodeURL string) error {
	nodeURL = strings.TrimSpace(nodeURL)
	if nodeURL == "" {
		return apperrors.BadRequest("node_url is required")
	}
	if err := compute.ValidateNodeURL(nodeURL); err != nil {
		return apperrors.BadRequest(err.Error())
	}
	return nil
}

func (s *projectService) Create(ctx context.Context, userID uuid.UUID, name, nodeURL string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.BadRequest("name is required")
	}
	if err := validateNodeURL(nodeURL); err != nil {
		return nil, err
	}

	project := &models.Project{Name: name, NodeURL: strings.TrimSpace(nodeURL), CreatedBy: userID}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("user_id", userID.String()))
	return project, nil
}

func (s *projectService) Update(ctx context.Context, userID, id uuid.UUID, update *models.ProjectUpdate) (*models.Project, error) {
	if _, err := s.Authorize(ctx, userID, id); err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.BadRequest("name must not be empty")
		}
		update.Name = &name
	}
	if update.NodeURL != nil {
		if err := validateNodeURL(*update.NodeURL); err != nil {
			return nil, err
		}
		nodeURL := strings.TrimSpace(*update.NodeURL)
		update.NodeURL = &nodeURL
	}

	project, err := s.projects.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Project updated", zap.String("project_id", id.String()))
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := requireOwner(ctx, s.projects.GetOwner, id, userID); err != nil {
		return err
	}
	deleted, err := s.projects.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.ErrNotFound
	}

	s.logger.Info("Project deleted", zap.String("project_id", id.String()))
	return nil
}

var _ ProjectService = (*projectService)(nil)
