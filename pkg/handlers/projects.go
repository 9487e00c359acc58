package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// ProjectCreateRequest is the body of POST /projects.
type ProjectCreateRequest struct {
	Name    string `json:"name"`
	NodeURL string `json:"node_url"`
}

// ProjectsHandler handles project-related HTTP requests.
type ProjectsHandler struct {
	projects services.ProjectService
	logger   *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projects services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, logger: logger}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /projects", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /projects", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /projects/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /projects/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /projects/{id}", authMiddleware.RequireAuth(h.Delete))
}

// List handles GET /projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	page, ok := ParsePagination(w, r, h.logger)
	if !ok {
		return
	}

	projects, err := h.projects.List(r.Context(), user.ID, page.Offset, page.Limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, projects, h.logger)
}

// Get handles GET /projects/{id} and returns the project with its warehouse and datasources.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	content, err := h.projects.GetContent(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	for i, ds := range content.Datasources {
		content.Datasources[i] = redactDatasource(ds)
	}
	writeDetails(w, http.StatusOK, content, h.logger)
}

// Create handles POST /projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req ProjectCreateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	project, err := h.projects.Create(r.Context(), user.ID, req.Name, req.NodeURL)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, created("Project", project.ID), h.logger)
}

// Update handles PUT /projects/{id}. Absent fields are left unchanged.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var update models.ProjectUpdate
	if !decodeJSON(w, r, &update, h.logger) {
		return
	}

	project, err := h.projects.Update(r.Context(), user.ID, id, &update)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, project, h.logger)
}

// Delete handles DELETE /projects/{id}. Datasources and the warehouse go with it.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), user.ID, id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, deleted("Project", id), h.logger)
}
