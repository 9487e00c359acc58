package auth

import (
	"context"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

type contextKey string

const (
	// ClaimsKey is the context key for validated token claims.
	ClaimsKey contextKey = "claims"
	// UserKey is the context key for the authenticated user.
	UserKey contextKey = "user"
)

// GetClaims retrieves token claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetUser retrieves the authenticated user from the request context.
func GetUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

// WithUser stores the authenticated user and its claims in the context.
func WithUser(ctx context.Context, user *models.User, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, UserKey, user)
}
