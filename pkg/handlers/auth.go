package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// SignUpRequest is the body of POST /auth/sign_up.
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthHandler serves the public account endpoints.
type AuthHandler struct {
	users  services.UserService
	logger *zap.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger}
}

// RegisterRoutes registers the auth routes. Neither requires a token.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/sign_up", h.SignUp)
	mux.HandleFunc("POST /auth/login", h.Login)
}

// SignUp handles POST /auth/sign_up.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	user, err := h.users.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeDetails(w, http.StatusCreated, fmt.Sprintf("User(email=%s) created", user.Email), h.logger)
}

// Login handles POST /auth/login. The token is returned at the top level.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	if err := WriteJSON(w, http.StatusOK, token); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
