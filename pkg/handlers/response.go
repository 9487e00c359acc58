package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/services"
)

// Response is the envelope of every API response.
type Response struct {
	Details any `json:"details"`
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeDetails wraps details in the response envelope.
func writeDetails(w http.ResponseWriter, statusCode int, details any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, Response{Details: details}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeServiceError maps a service error to its status code.
// Unexpected errors are logged and reported without their text.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeDetails(w, http.StatusNotFound, "Not found", logger)
	case errors.Is(err, apperrors.ErrUnauthorized):
		writeDetails(w, http.StatusUnauthorized, "Unauthorized", logger)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeDetails(w, http.StatusUnauthorized, err.Error(), logger)
	case errors.Is(err, apperrors.ErrBadRequest):
		msg, ok := apperrors.Message(err)
		if !ok {
			msg = "Bad request"
		}
		writeDetails(w, http.StatusBadRequest, msg, logger)
	default:
		logger.Error("Request failed", zap.Error(err))
		writeDetails(w, http.StatusInternalServerError, "Internal server error", logger)
	}
}

// decodeJSON reads the request body into dst. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "Invalid request body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		writeDetails(w, http.StatusBadRequest, msg, logger)
		return false
	}
	return true
}

func created(entity string, id fmt.Stringer) string {
	return fmt.Sprintf("%s(id=%s) created", entity, id)
}

func updated(entity string, id fmt.Stringer) string {
	return fmt.Sprintf("%s(id=%s) updated", entity, id)
}

func deleted(entity string, id fmt.Stringer) string {
	return fmt.Sprintf("%s(id=%s) deleted", entity, id)
}
