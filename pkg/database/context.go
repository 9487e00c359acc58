package database

import "context"

type contextKey string

const (
	// ScopeKey is the context key for the request's database scope.
	ScopeKey contextKey = "dbScope"
)

// GetScope retrieves the request's database scope from context.
// Returns nil and false if not present.
func GetScope(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(ScopeKey).(*Scope)
	return scope, ok
}

// SetScope stores the database scope in context.
func SetScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}
