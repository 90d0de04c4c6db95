// Package handlers contains HTTP request handlers for the complaint
// portal API. Handlers parse requests, call services, and return JSON
// responses; error sentinels from the services map onto status codes
// here and nowhere else.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sudhaar/complaint-server/internal/apperror"
)

// respondJSON writes data as a JSON response body.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error payload.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps a service error onto an HTTP status. Unrecognized
// errors become 500s with a generic message so internals never leak.
func respondAppError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperror.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperror.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, apperror.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperror.ErrDuplicateEmail),
		errors.Is(err, apperror.ErrVersionConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		logger.Errorw("Unhandled error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
