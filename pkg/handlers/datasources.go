package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/logging"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// DatasourcesHandler handles datasource CRUD and introspection.
type DatasourcesHandler struct {
	datasources services.DatasourceService
	logger      *zap.Logger
}

// NewDatasourcesHandler creates a datasources handler.
func NewDatasourcesHandler(datasources services.DatasourceService, logger *zap.Logger) *DatasourcesHandler {
	return &DatasourcesHandler{datasources: datasources, logger: logger}
}

// RegisterRoutes registers the datasource routes. The type listing is public.
func (h *DatasourcesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /datasources/types", h.ListTypes)
	mux.HandleFunc("GET /datasources", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /datasources", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /datasources/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /datasources/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /datasources/{id}", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("GET /datasources/{id}/tables", authMiddleware.RequireAuth(h.ListTables))
}

// redactDatasource returns a copy of ds whose config has secrets masked.
func redactDatasource(ds *models.Datasource) *models.Datasource {
	out := *ds
	out.Config = logging.SanitizeConfig(ds.Config)
	return &out
}

// ListTypes handles GET /datasources/types.
func (h *DatasourcesHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	writeDetails(w, http.StatusOK, h.datasources.ListTypes(), h.logger)
}

// List handles GET /datasources.
func (h *DatasourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	page, ok := ParsePagination(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.datasources.List(r.Context(), user.ID, page.Offset, page.Limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	out := make([]*models.Datasource, len(list))
	for i, ds := range list {
		out[i] = redactDatasource(ds)
	}
	writeDetails(w, http.StatusOK, out, h.logger)
}

// Get handles GET /datasources/{id}.
func (h *DatasourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	ds, err := h.datasources.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, redactDatasource(ds), h.logger)
}

// ListTables handles GET /datasources/{id}/tables.
func (h *DatasourcesHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	tables, err := h.datasources.ListTables(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, tables, h.logger)
}

// Create handles POST /datasources. The datasource is introspected before it is stored.
func (h *DatasourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req models.DatasourceCreate
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	ds, err := h.datasources.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, created("Datasource", ds.ID)+", tables added", h.logger)
}

// Update handles PUT /datasources/{id}.
func (h *DatasourcesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var update models.DatasourceUpdate
	if !decodeJSON(w, r, &update, h.logger) {
		return
	}

	if _, err := h.datasources.Update(r.Context(), user.ID, id, &update); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, fmt.Sprintf("Datasource(id=%s) columns updated", id), h.logger)
}

// Delete handles DELETE /datasources/{id}.
func (h *DatasourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.datasources.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, deleted("Datasource", id), h.logger)
}
