package services

import (
	"context"
	"errors"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/compute"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/repositories"
)

// memStore is an in-memory stand-in for the metadata database. Its inTx
// snapshots every table and restores them when fn fails.
type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*models.User
	projects    map[uuid.UUID]*models.Project
	datasources map[uuid.UUID]*models.Datasource
	datatables  map[uuid.UUID]*models.DataTable
	warehouses  map[uuid.UUID]*models.Warehouse
	links       map[uuid.UUID]*models.WarehouseDataTable
	txCount     int
	pagedLists  int
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uuid.UUID]*models.User{},
		projects:    map[uuid.UUID]*models.Project{},
		datasources: map[uuid.UUID]*models.Datasource{},
		datatables:  map[uuid.UUID]*models.DataTable{},
		warehouses:  map[uuid.UUID]*models.Warehouse{},
		links:       map[uuid.UUID]*models.WarehouseDataTable{},
	}
}

func (s *memStore) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.txCount++
	users, projects := maps.Clone(s.users), maps.Clone(s.projects)
	datasources, datatables := maps.Clone(s.datasources), maps.Clone(s.datatables)
	warehouses, links := maps.Clone(s.warehouses), maps.Clone(s.links)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users, s.projects = users, projects
		s.datasources, s.datatables = datasources, datatables
		s.warehouses, s.links = warehouses, links
		s.mu.Unlock()
		return err
	}
	return nil
}

// seed helpers

func (s *memStore) addProject(owner uuid.UUID, nodeURL string) *models.Project {
	p := &models.Project{ID: uuid.New(), Name: "sales", NodeURL: nodeURL, CreatedBy: owner}
	s.projects[p.ID] = p
	return p
}

func (s *memStore) addDatasource(projectID uuid.UUID, dsType models.DatasourceType) *models.Datasource {
	ds := &models.Datasource{ID: uuid.New(), ProjectID: projectID, Name: "src", DSType: dsType, Config: map[string]any{}}
	s.datasources[ds.ID] = ds
	return ds
}

func (s *memStore) addDataTable(datasourceID uuid.UUID, name string, cols ...models.Column) *models.DataTable {
	if len(cols) == 0 {
		cols = []models.Column{{Name: "id", Type: models.ColumnInt}}
	}
	dt := &models.DataTable{ID: uuid.New(), Name: name, DatasourceID: datasourceID, Columns: cols}
	s.datatables[dt.ID] = dt
	return dt
}

func (s *memStore) tablesOf(datasourceID uuid.UUID) []*models.DataTable {
	var out []*models.DataTable
	for _, dt := range s.datatables {
		if dt.DatasourceID == datasourceID {
			out = append(out, dt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *memStore) linksOf(warehouseID uuid.UUID) map[uuid.UUID]models.DataTableRole {
	out := map[uuid.UUID]models.DataTableRole{}
	for _, l := range s.links {
		if l.WarehouseID == warehouseID {
			out[l.DataTableID] = l.DTType
		}
	}
	return out
}

func (s *memStore) projectOwner(id uuid.UUID) (uuid.UUID, error) {
	p, ok := s.projects[id]
	if !ok {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return p.CreatedBy, nil
}

// users

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return apperrors.ErrConflict
		}
	}
	user.ID = uuid.New()
	r.s.users[user.ID] = user
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	for _, u := range r.s.users {
		if u.Email == email || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r memUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, error) {
	var out []*models.User
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, offset, limit), nil
}

// projects

type memProjectRepo struct{ s *memStore }

func (r memProjectRepo) Create(ctx context.Context, project *models.Project) error {
	project.ID = uuid.New()
	r.s.projects[project.ID] = project
	return nil
}

func (r memProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if p, ok := r.s.projects[id]; ok {
		return p, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memProjectRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range r.s.projects {
		if p.CreatedBy == ownerID {
			out = append(out, p)
		}
	}
	return page(out, offset, limit), nil
}

func (r memProjectRepo) Update(ctx context.Context, id uuid.UUID, update *models.ProjectUpdate) (*models.Project, error) {
	p, ok := r.s.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	if update.Name != nil {
		cp.Name = *update.Name
	}
	if update.NodeURL != nil {
		cp.NodeURL = *update.NodeURL
	}
	r.s.projects[id] = &cp
	return &cp, nil
}

func (r memProjectRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := r.s.projects[id]; !ok {
		return false, nil
	}
	delete(r.s.projects, id)
	return true, nil
}

func (r memProjectRepo) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return r.s.projectOwner(id)
}

// datasources

type memDatasourceRepo struct{ s *memStore }

func (r memDatasourceRepo) Create(ctx context.Context, ds *models.Datasource) error {
	ds.ID = uuid.New()
	r.s.datasources[ds.ID] = ds
	return nil
}

func (r memDatasourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error) {
	if ds, ok := r.s.datasources[id]; ok {
		return ds, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memDatasourceRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Datasource, error) {
	var out []*models.Datasource
	for _, ds := range r.s.datasources {
		if owner, _ := r.s.projectOwner(ds.ProjectID); owner == ownerID {
			out = append(out, ds)
		}
	}
	return page(out, offset, limit), nil
}

func (r memDatasourceRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Datasource, error) {
	var out []*models.Datasource
	for _, ds := range r.s.datasources {
		if ds.ProjectID == projectID {
			out = append(out, ds)
		}
	}
	return out, nil
}

func (r memDatasourceRepo) Update(ctx context.Context, id uuid.UUID, update *models.DatasourceUpdate) (*models.Datasource, error) {
	ds, ok := r.s.datasources[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	updated := update.Apply(ds)
	r.s.datasources[id] = updated
	return updated, nil
}

func (r memDatasourceRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := r.s.datasources[id]; !ok {
		return false, nil
	}
	delete(r.s.datasources, id)
	return true, nil
}

func (r memDatasourceRepo) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	ds, ok := r.s.datasources[id]
	if !ok {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return r.s.projectOwner(ds.ProjectID)
}

// datatables

type memDataTableRepo struct{ s *memStore }

func (r memDataTableRepo) Create(ctx context.Context, dt *models.DataTable) error {
	for _, existing := range r.s.datatables {
		if existing.DatasourceID == dt.DatasourceID && existing.Name == dt.Name {
			return apperrors.ErrConflict
		}
	}
	dt.ID = uuid.New()
	r.s.datatables[dt.ID] = dt
	return nil
}

func (r memDataTableRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DataTable, error) {
	if dt, ok := r.s.datatables[id]; ok {
		return dt, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memDataTableRepo) GetByName(ctx context.Context, datasourceID uuid.UUID, name string) (*models.DataTable, error) {
	for _, dt := range r.s.datatables {
		if dt.DatasourceID == datasourceID && dt.Name == name {
			return dt, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memDataTableRepo) ListByDatasource(ctx context.Context, datasourceID uuid.UUID) ([]*models.DataTable, error) {
	return r.s.tablesOf(datasourceID), nil
}

func (r memDataTableRepo) ListPageByDatasource(ctx context.Context, datasourceID uuid.UUID, offset, limit int) ([]*models.DataTable, error) {
	r.s.pagedLists++
	return page(r.s.tablesOf(datasourceID), offset, limit), nil
}

func (r memDataTableRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.DataTable, error) {
	var out []*models.DataTable
	for _, dt := range r.s.datatables {
		if owner, err := r.GetOwner(ctx, dt.ID); err == nil && owner == ownerID {
			out = append(out, dt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, offset, limit), nil
}

func (r memDataTableRepo) Update(ctx context.Context, id uuid.UUID, update *models.DataTableUpdate) (*models.DataTable, error) {
	dt, ok := r.s.datatables[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *dt
	if update.Name != nil {
		if other, err := r.GetByName(ctx, dt.DatasourceID, *update.Name); err == nil && other.ID != id {
			return nil, apperrors.ErrConflict
		}
		cp.Name = *update.Name
	}
	if update.Columns != nil {
		cp.Columns = update.Columns
	}
	r.s.datatables[id] = &cp
	return &cp, nil
}

func (r memDataTableRepo) UpdateColumns(ctx context.Context, id uuid.UUID, columns []models.Column) error {
	dt, ok := r.s.datatables[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	cp := *dt
	cp.Columns = columns
	r.s.datatables[id] = &cp
	return nil
}

func (r memDataTableRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := r.s.datatables[id]; !ok {
		return false, nil
	}
	delete(r.s.datatables, id)
	return true, nil
}

func (r memDataTableRepo) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	projectID, err := r.GetProjectID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return r.s.projectOwner(projectID)
}

func (r memDataTableRepo) GetProjectID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	dt, ok := r.s.datatables[id]
	if !ok {
		return uuid.Nil, apperrors.ErrNotFound
	}
	ds, ok := r.s.datasources[dt.DatasourceID]
	if !ok {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return ds.ProjectID, nil
}

// warehouses

type memWarehouseRepo struct{ s *memStore }

func (r memWarehouseRepo) Create(ctx context.Context, wh *models.Warehouse) error {
	for _, existing := range r.s.warehouses {
		if existing.ProjectID == wh.ProjectID {
			return apperrors.ErrConflict
		}
	}
	wh.ID = uuid.New()
	r.s.warehouses[wh.ID] = wh
	return nil
}

func (r memWarehouseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	if wh, ok := r.s.warehouses[id]; ok {
		return wh, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memWarehouseRepo) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Warehouse, error) {
	for _, wh := range r.s.warehouses {
		if wh.ProjectID == projectID {
			return wh, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memWarehouseRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*models.Warehouse, error) {
	var out []*models.Warehouse
	for _, wh := range r.s.warehouses {
		if owner, _ := r.s.projectOwner(wh.ProjectID); owner == ownerID {
			out = append(out, wh)
		}
	}
	return page(out, offset, limit), nil
}

func (r memWarehouseRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Warehouse, error) {
	wh, ok := r.s.warehouses[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *wh
	cp.Name = name
	r.s.warehouses[id] = &cp
	return &cp, nil
}

func (r memWarehouseRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := r.s.warehouses[id]; !ok {
		return false, nil
	}
	delete(r.s.warehouses, id)
	return true, nil
}

func (r memWarehouseRepo) GetOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	wh, ok := r.s.warehouses[id]
	if !ok {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return r.s.projectOwner(wh.ProjectID)
}

// warehouse links; the single-fact partial unique index is enforced on write

type memLinkRepo struct{ s *memStore }

func (r memLinkRepo) hasOtherFact(warehouseID, except uuid.UUID) bool {
	for _, l := range r.s.links {
		if l.WarehouseID == warehouseID && l.ID != except && l.DTType == models.RoleFact {
			return true
		}
	}
	return false
}

func (r memLinkRepo) Create(ctx context.Context, link *models.WarehouseDataTable) error {
	if _, err := r.Get(ctx, link.WarehouseID, link.DataTableID); err == nil {
		return apperrors.ErrConflict
	}
	if link.DTType == models.RoleFact && r.hasOtherFact(link.WarehouseID, uuid.Nil) {
		return apperrors.ErrConflict
	}
	link.ID = uuid.New()
	r.s.links[link.ID] = link
	return nil
}

func (r memLinkRepo) Get(ctx context.Context, warehouseID, dataTableID uuid.UUID) (*models.WarehouseDataTable, error) {
	for _, l := range r.s.links {
		if l.WarehouseID == warehouseID && l.DataTableID == dataTableID {
			return l, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memLinkRepo) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*models.WarehouseDataTable, error) {
	var out []*models.WarehouseDataTable
	for _, l := range r.s.links {
		if l.WarehouseID == warehouseID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r memLinkRepo) UpdateRole(ctx context.Context, id uuid.UUID, role models.DataTableRole) error {
	l, ok := r.s.links[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if role == models.RoleFact && r.hasOtherFact(l.WarehouseID, id) {
		return apperrors.ErrConflict
	}
	cp := *l
	cp.DTType = role
	r.s.links[id] = &cp
	return nil
}

func (r memLinkRepo) CountFacts(ctx context.Context, warehouseID uuid.UUID) (int, error) {
	n := 0
	for _, l := range r.s.links {
		if l.WarehouseID == warehouseID && l.DTType == models.RoleFact {
			n++
		}
	}
	return n, nil
}

func (r memLinkRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, ok := r.s.links[id]; !ok {
		return false, nil
	}
	delete(r.s.links, id)
	return true, nil
}

var (
	_ repositories.UserRepository               = memUserRepo{}
	_ repositories.ProjectRepository            = memProjectRepo{}
	_ repositories.DatasourceRepository         = memDatasourceRepo{}
	_ repositories.DataTableRepository          = memDataTableRepo{}
	_ repositories.WarehouseRepository          = memWarehouseRepo{}
	_ repositories.WarehouseDataTableRepository = memLinkRepo{}
)

// mockGateway records what the services ask the cluster to do.
type mockGateway struct {
	validateErr error
	runErr      error
	createErr   error
	appendErr   error
	ingestErr   error
	result      *compute.Result

	validated []string
	ran       []string
	created   []string
	appended  map[string][][]any
	ingested  []string
}

func (g *mockGateway) Validate(ctx context.Context, nodeURL, query string) error {
	g.validated = append(g.validated, query)
	return g.validateErr
}

func (g *mockGateway) Run(ctx context.Context, nodeURL, query string) (*compute.Result, error) {
	g.ran = append(g.ran, query)
	if g.runErr != nil {
		return nil, g.runErr
	}
	if g.result == nil {
		return &compute.Result{}, nil
	}
	return g.result, nil
}

func (g *mockGateway) CreateTables(ctx context.Context, nodeURL string, tables []*models.DataTable) error {
	if g.createErr != nil {
		return g.createErr
	}
	for _, t := range tables {
		g.created = append(g.created, t.Name)
	}
	return nil
}

func (g *mockGateway) AppendRows(ctx context.Context, nodeURL string, table *models.DataTable, rows [][]any) error {
	if g.appendErr != nil {
		return g.appendErr
	}
	if g.appended == nil {
		g.appended = map[string][][]any{}
	}
	g.appended[table.Name] = append(g.appended[table.Name], rows...)
	return nil
}

func (g *mockGateway) IngestFromDatasource(ctx context.Context, nodeURL string, ds *models.Datasource, tables []*models.DataTable) error {
	if g.ingestErr != nil {
		return g.ingestErr
	}
	for _, t := range tables {
		g.ingested = append(g.ingested, t.Name)
	}
	return nil
}

var _ Gateway = (*mockGateway)(nil)

// fakeIntrospector serves a fixed set of tables and rows.
type fakeIntrospector struct {
	tables  map[string][]models.Column
	rows    map[string][][]any
	readErr error
	closed  bool
}

func (f *fakeIntrospector) ListTables(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeIntrospector) DescribeColumns(ctx context.Context, table string) ([]models.Column, error) {
	cols, ok := f.tables[table]
	if !ok {
		return nil, errors.New(`relation "` + table + `" does not exist`)
	}
	return cols, nil
}

func (f *fakeIntrospector) ReadRows(ctx context.Context, table string, columns []models.Column, fn datasource.RowFunc) error {
	if f.readErr != nil {
		return f.readErr
	}
	for _, row := range f.rows[table] {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeIntrospector) Close() error {
	f.closed = true
	return nil
}

// mockAdapterFactory hands out introspector and validates with validateErr.
type mockAdapterFactory struct {
	introspector *fakeIntrospector
	connectErr   error
	validateErr  error
	opened       int
}

func (m *mockAdapterFactory) ValidateConfig(name string, dsType models.DatasourceType, config map[string]any) error {
	return m.validateErr
}

func (m *mockAdapterFactory) NewIntrospector(ctx context.Context, ds *models.Datasource) (datasource.SchemaIntrospector, error) {
	m.opened++
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return m.introspector, nil
}

func (m *mockAdapterFactory) ListTypes() []datasource.AdapterInfo {
	return []datasource.AdapterInfo{{Type: models.DatasourcePostgreSQL, DisplayName: "PostgreSQL"}}
}

var _ datasource.AdapterFactory = (*mockAdapterFactory)(nil)

// mockSession records statements and fails those containing failOn.
type mockSession struct {
	statements []string
	failOn     string
	result     *compute.Result
	closed     bool
}

func (m *mockSession) Execute(ctx context.Context, stmt string) (*compute.Result, error) {
	m.statements = append(m.statements, stmt)
	if m.failOn != "" && strings.Contains(stmt, m.failOn) {
		return nil, errors.New("[TABLE_OR_VIEW_NOT_FOUND] The table or view cannot be found")
	}
	if m.result != nil {
		return m.result, nil
	}
	return &compute.Result{}, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

type mockSessionFactory struct {
	session *mockSession
	openErr error
}

func (m *mockSessionFactory) Open(ctx context.Context, nodeURL string) (compute.Session, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.session, nil
}

var _ compute.SessionFactory = (*mockSessionFactory)(nil)

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
