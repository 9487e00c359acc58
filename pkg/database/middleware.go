package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// WithScope wraps the handler so each request owns one pooled connection.
// The connection is released after the handler returns, on every path.
func WithScope(db *DB, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := db.Acquire(r.Context())
			if err != nil {
				logger.Error("Failed to acquire database connection", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"details": "Database connection error"})
				return
			}
			defer scope.Close()

			next.ServeHTTP(w, r.WithContext(SetScope(r.Context(), scope)))
		})
	}
}
