package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// UsersHandler serves account listings for authenticated callers.
type UsersHandler struct {
	users  services.UserService
	logger *zap.Logger
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(users services.UserService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: logger}
}

// RegisterRoutes registers the users routes.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /users", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /users/me", authMiddleware.RequireAuth(h.Me))
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := ParsePagination(w, r, h.logger)
	if !ok {
		return
	}
	users, err := h.users.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusOK, users, h.logger)
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}
	writeDetails(w, http.StatusOK, user, h.logger)
}
