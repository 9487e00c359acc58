package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// WarehousesHandler handles warehouse CRUD.
type WarehousesHandler struct {
	warehouses services.WarehouseService
	logger     *zap.Logger
}

// NewWarehousesHandler creates a warehouses handler.
func NewWarehousesHandler(warehouses services.WarehouseService, logger *zap.Logger) *WarehousesHandler {
	return &WarehousesHandler{warehouses: warehouses, logger: logger}
}

// RegisterRoutes registers the warehouse routes.
func (h *WarehousesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /warehouses", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /warehouses", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /warehouses/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /warehouses/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /warehouses/{id}", authMiddleware.RequireAuth(h.Delete))
}

// List handles GET /warehouses.
func (h *WarehousesHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	page, ok := ParsePagination(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.warehouses.List(r.Context(), user.ID, page.Offset, page.Limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, list, h.logger)
}

// Get handles GET /warehouses/{id}.
func (h *WarehousesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	details, err := h.warehouses.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, details, h.logger)
}

// Create handles POST /warehouses. Tables are built on the compute cluster before the response.
func (h *WarehousesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req models.WarehouseCreate
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	wh, err := h.warehouses.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, created("Warehouse", wh.ID), h.logger)
}

// Update handles PUT /warehouses/{id}.
func (h *WarehousesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var update models.WarehouseUpdate
	if !decodeJSON(w, r, &update, h.logger) {
		return
	}

	if _, err := h.warehouses.Update(r.Context(), user.ID, id, &update); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, fmt.Sprintf("Warehouse(id=%s) updated, data table types changed", id), h.logger)
}

// Delete handles DELETE /warehouses/{id}.
func (h *WarehousesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.warehouses.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, deleted("Warehouse", id), h.logger)
}
