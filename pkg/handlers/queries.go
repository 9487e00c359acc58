package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// multipartMemory is how much of an upload is held in memory before spilling to disk.
const multipartMemory = 8 << 20

// QueryRequest is the body of POST /query/ and /query/read.
type QueryRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	Query     string    `json:"query"`
}

// QueriesHandler runs statements and uploads against a project's compute cluster.
type QueriesHandler struct {
	queries        services.QueryService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewQueriesHandler creates a queries handler. Upload bodies above maxUploadMB are rejected.
func NewQueriesHandler(queries services.QueryService, maxUploadMB int64, logger *zap.Logger) *QueriesHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 64
	}
	return &QueriesHandler{
		queries:        queries,
		maxUploadBytes: maxUploadMB << 20,
		logger:         logger,
	}
}

// RegisterRoutes registers the query routes.
func (h *QueriesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /query/{$}", authMiddleware.RequireAuth(h.Query))
	mux.HandleFunc("POST /query/read", authMiddleware.RequireAuth(h.Read))
	mux.HandleFunc("POST /query/write", authMiddleware.RequireAuth(h.Write))
}

type queryFunc func(ctx context.Context, userID, projectID uuid.UUID, query string) (*services.QueryResult, error)

// Query handles POST /query/.
func (h *QueriesHandler) Query(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.queries.Query)
}

// Read handles POST /query/read. Only read statements are accepted.
func (h *QueriesHandler) Read(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.queries.Read)
}

func (h *QueriesHandler) run(w http.ResponseWriter, r *http.Request, fn queryFunc) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	var req QueryRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := fn(r.Context(), user.ID, req.ProjectID, req.Query)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, result, h.logger)
}

// Write handles POST /query/write, a multipart form with project_id, datatable_id
// and an optional user_file. Without a file the datatable is refilled from its datasource.
func (h *QueriesHandler) Write(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetails(w, http.StatusBadRequest, fmt.Sprintf("Upload exceeds %d MB", h.maxUploadBytes>>20), h.logger)
			return
		}
		writeDetails(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error(), h.logger)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warn("Failed to remove upload temp files", zap.Error(err))
		}
	}()

	projectID, err := uuid.Parse(r.FormValue("project_id"))
	if err != nil {
		writeDetails(w, http.StatusBadRequest, "Invalid project_id format", h.logger)
		return
	}
	dataTableID, err := uuid.Parse(r.FormValue("datatable_id"))
	if err != nil {
		writeDetails(w, http.StatusBadRequest, "Invalid datatable_id format", h.logger)
		return
	}

	req := &services.WriteRequest{ProjectID: projectID, DataTableID: dataTableID}
	file, header, err := r.FormFile("user_file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeDetails(w, http.StatusBadRequest, "Invalid user_file: "+err.Error(), h.logger)
		return
	default:
		defer closeUpload(file, h.logger)
		req.File = file
		req.FileName = header.Filename
	}

	if err := h.queries.Write(r.Context(), user.ID, req); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, "Data is written", h.logger)
}

func closeUpload(f multipart.File, logger *zap.Logger) {
	if err := f.Close(); err != nil {
		logger.Warn("Failed to close upload", zap.Error(err))
	}
}
