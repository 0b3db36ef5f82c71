package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tempus-hq/timetracker-engine/pkg/apperrors"
	"github.com/tempus-hq/timetracker-engine/pkg/authz"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeDecision maps a deny decision onto its status code. The 404 branch is
// deliberately identical to a genuinely missing resource.
func writeDecision(w http.ResponseWriter, logger *zap.Logger, d authz.Decision) {
	var err error
	switch d {
	case authz.Unauthenticated:
		err = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
	case authz.NotFound:
		err = ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	default:
		err = ErrorResponse(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
	}
	if err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps service and repository errors onto status codes.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var werr error
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		werr = ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrDuplicateContributor):
		werr = ErrorResponse(w, http.StatusConflict, "duplicate_contributor", "User is already a contributor on this project")
	case errors.Is(err, apperrors.ErrConflict):
		werr = ErrorResponse(w, http.StatusConflict, "conflict", "Resource already exists")
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrProjectMismatch):
		werr = ErrorResponse(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		werr = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
	if werr != nil {
		logger.Error("Failed to write error response", zap.Error(werr))
	}
}
