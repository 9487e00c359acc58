package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// UserResolver loads the user named by a token subject.
type UserResolver interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Middleware guards routes with a bearer token.
type Middleware struct {
	authService AuthService
	users       UserResolver
	logger      *zap.Logger
}

// NewMiddleware creates auth middleware.
func NewMiddleware(authService AuthService, users UserResolver, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		users:       users,
		logger:      logger,
	}
}

// RequireAuth validates the token, resolves the user and stores both in the context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authService.ValidateRequest(r)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				m.unauthorized(w, "Token expired")
				return
			}
			m.unauthorized(w, "Could not validate credentials")
			return
		}

		user, err := m.users.GetByEmail(r.Context(), claims.Email())
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				m.logger.Warn("Token subject has no user", zap.String("email", claims.Email()))
			} else {
				m.logger.Error("Failed to resolve token subject", zap.Error(err))
			}
			m.unauthorized(w, "Could not validate credentials")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user, claims)))
	}
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"details": message})
}
