package handlers

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

type mockUserService struct {
	user   *models.User
	users  []*models.User
	token  *services.AccessToken
	err    error
	offset int
	limit  int
}

func (m *mockUserService) SignUp(ctx context.Context, username, email, password string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: uuid.New(), Username: username, Email: email}, nil
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*services.AccessToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

func (m *mockUserService) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	m.offset, m.limit = offset, limit
	return m.users, m.err
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, apperrors.ErrNotFound
	}
	return m.user, nil
}

type mockProjectService struct {
	content  *models.ProjectContent
	projects []*models.Project
	err      error

	createdName string
	createdURL  string
	update      *models.ProjectUpdate
}

func (m *mockProjectService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Project, error) {
	return m.projects, m.err
}

func (m *mockProjectService) GetContent(ctx context.Context, userID, id uuid.UUID) (*models.ProjectContent, error) {
	return m.content, m.err
}

func (m *mockProjectService) Create(ctx context.Context, userID uuid.UUID, name, nodeURL string) (*models.Project, error) {
	m.createdName, m.createdURL = name, nodeURL
	if m.err != nil {
		return nil, m.err
	}
	return &models.Project{ID: uuid.New(), Name: name, NodeURL: nodeURL, CreatedBy: userID}, nil
}

func (m *mockProjectService) Update(ctx context.Context, userID, id uuid.UUID, update *models.ProjectUpdate) (*models.Project, error) {
	m.update = update
	if m.err != nil {
		return nil, m.err
	}
	return &models.Project{ID: id}, nil
}

func (m *mockProjectService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.err
}

func (m *mockProjectService) Authorize(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	return nil, m.err
}

type mockDatasourceService struct {
	datasource  *models.Datasource
	datasources []*models.Datasource
	tables      []*models.DataTable
	err         error

	createReq *models.DatasourceCreate
	update    *models.DatasourceUpdate
}

func (m *mockDatasourceService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Datasource, error) {
	return m.datasources, m.err
}

func (m *mockDatasourceService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Datasource, error) {
	return m.datasource, m.err
}

func (m *mockDatasourceService) ListTables(ctx context.Context, userID, id uuid.UUID) ([]*models.DataTable, error) {
	return m.tables, m.err
}

func (m *mockDatasourceService) Create(ctx context.Context, userID uuid.UUID, req *models.DatasourceCreate) (*models.Datasource, error) {
	m.createReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Datasource{ID: uuid.New(), Name: req.Name}, nil
}

func (m *mockDatasourceService) Update(ctx context.Context, userID, id uuid.UUID, update *models.DatasourceUpdate) (*models.Datasource, error) {
	m.update = update
	if m.err != nil {
		return nil, m.err
	}
	return &models.Datasource{ID: id}, nil
}

func (m *mockDatasourceService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.err
}

func (m *mockDatasourceService) ListTypes() []datasource.AdapterInfo {
	return []datasource.AdapterInfo{{Type: models.DatasourceMySQL, DisplayName: "MySQL"}}
}

type mockDataTableService struct {
	tables       []*models.DataTable
	err          error
	datasourceID *uuid.UUID
}

func (m *mockDataTableService) List(ctx context.Context, userID uuid.UUID, datasourceID *uuid.UUID, offset, limit int) ([]*models.DataTable, error) {
	m.datasourceID = datasourceID
	return m.tables, m.err
}

func (m *mockDataTableService) Get(ctx context.Context, userID, id uuid.UUID) (*models.DataTable, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.DataTable{ID: id}, nil
}

func (m *mockDataTableService) Create(ctx context.Context, userID uuid.UUID, req *models.DataTableCreate) (*models.DataTable, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.DataTable{ID: uuid.New(), Name: req.Name}, nil
}

func (m *mockDataTableService) Update(ctx context.Context, userID, id uuid.UUID, update *models.DataTableUpdate) (*models.DataTable, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.DataTable{ID: id}, nil
}

func (m *mockDataTableService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.err
}

type mockWarehouseService struct {
	details *models.WarehouseDetails
	err     error
	req     *models.WarehouseCreate
	update  *models.WarehouseUpdate
}

func (m *mockWarehouseService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Warehouse, error) {
	return nil, m.err
}

func (m *mockWarehouseService) Get(ctx context.Context, userID, id uuid.UUID) (*models.WarehouseDetails, error) {
	return m.details, m.err
}

func (m *mockWarehouseService) Create(ctx context.Context, userID uuid.UUID, req *models.WarehouseCreate) (*models.Warehouse, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Warehouse{ID: uuid.New(), Name: req.Name, ProjectID: req.ProjectID}, nil
}

func (m *mockWarehouseService) Update(ctx context.Context, userID, id uuid.UUID, update *models.WarehouseUpdate) (*models.Warehouse, error) {
	m.update = update
	if m.err != nil {
		return nil, m.err
	}
	return &models.Warehouse{ID: id}, nil
}

func (m *mockWarehouseService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.err
}

type mockQueryService struct {
	result *services.QueryResult
	err    error

	query     string
	readOnly  bool
	write     *services.WriteRequest
	fileBytes string
}

func (m *mockQueryService) Query(ctx context.Context, userID, projectID uuid.UUID, query string) (*services.QueryResult, error) {
	m.query = query
	return m.result, m.err
}

func (m *mockQueryService) Read(ctx context.Context, userID, projectID uuid.UUID, query string) (*services.QueryResult, error) {
	m.query, m.readOnly = query, true
	return m.result, m.err
}

func (m *mockQueryService) Write(ctx context.Context, userID uuid.UUID, req *services.WriteRequest) error {
	m.write = req
	if req.File != nil {
		b, err := io.ReadAll(req.File)
		if err != nil {
			return err
		}
		m.fileBytes = string(b)
	}
	return m.err
}

var (
	_ services.UserService       = (*mockUserService)(nil)
	_ services.ProjectService    = (*mockProjectService)(nil)
	_ services.DatasourceService = (*mockDatasourceService)(nil)
	_ services.DataTableService  = (*mockDataTableService)(nil)
	_ services.WarehouseService  = (*mockWarehouseService)(nil)
	_ services.QueryService      = (*mockQueryService)(nil)
)
