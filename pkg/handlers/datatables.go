package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// DataTablesHandler handles direct datatable CRUD.
type DataTablesHandler struct {
	datatables services.DataTableService
	logger     *zap.Logger
}

// NewDataTablesHandler creates a datatables handler.
func NewDataTablesHandler(datatables services.DataTableService, logger *zap.Logger) *DataTablesHandler {
	return &DataTablesHandler{datatables: datatables, logger: logger}
}

// RegisterRoutes registers the datatable routes.
func (h *DataTablesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /datatables", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /datatables", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /datatables/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /datatables/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /datatables/{id}", authMiddleware.RequireAuth(h.Delete))
}

// List handles GET /datatables, optionally filtered by ?datasource_id=.
func (h *DataTablesHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	page, ok := ParsePagination(w, r, h.logger)
	if !ok {
		return
	}

	var datasourceID *uuid.UUID
	if raw := r.URL.Query().Get("datasource_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeDetails(w, http.StatusBadRequest, "Invalid datasource_id format", h.logger)
			return
		}
		datasourceID = &id
	}

	tables, err := h.datatables.List(r.Context(), user.ID, datasourceID, page.Offset, page.Limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, tables, h.logger)
}

// Get handles GET /datatables/{id}.
func (h *DataTablesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	dt, err := h.datatables.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, dt, h.logger)
}

// Create handles POST /datatables.
func (h *DataTablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req models.DataTableCreate
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	dt, err := h.datatables.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, created("DataTable", dt.ID), h.logger)
}

// Update handles PUT /datatables/{id}.
func (h *DataTablesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var update models.DataTableUpdate
	if !decodeJSON(w, r, &update, h.logger) {
		return
	}

	if _, err := h.datatables.Update(r.Context(), user.ID, id, &update); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, updated("DataTable", id), h.logger)
}

// Delete handles DELETE /datatables/{id}.
func (h *DataTablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.datatables.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, deleted("DataTable", id), h.logger)
}
