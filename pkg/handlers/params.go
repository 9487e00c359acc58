package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// ParseID extracts and validates the {id} path parameter.
// Returns uuid.Nil and false after writing a 400 when it is not a UUID.
func ParseID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeDetails(w, http.StatusBadRequest, "Invalid id format", logger)
		return uuid.Nil, false
	}
	return id, true
}

// Pagination is the offset and limit of a list request.
type Pagination struct {
	Offset int
	Limit  int
}

// ParsePagination reads offset (default 0) and limit (default 100, at most 1000).
// Returns false after writing a 400 on malformed values.
func ParsePagination(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (Pagination, bool) {
	p := Pagination{Offset: 0, Limit: defaultLimit}
	q := r.URL.Query()

	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeDetails(w, http.StatusBadRequest, fmt.Sprintf("Invalid offset %q", raw), logger)
			return p, false
		}
		p.Offset = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			writeDetails(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit %q (expected 1 to %d)", raw, maxLimit), logger)
			return p, false
		}
		p.Limit = n
	}
	return p, true
}

// currentUser returns the authenticated user. Routes behind RequireAuth always have one.
func currentUser(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*models.User, bool) {
	user, ok := auth.GetUser(r.Context())
	if !ok {
		writeDetails(w, http.StatusUnauthorized, "Could not validate credentials", logger)
		return nil, false
	}
	return user, true
}
