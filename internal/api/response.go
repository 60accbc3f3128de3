package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"shape/internal/domain"
	"shape/pkg/logger"
)

type ErrorResponse struct {
	Detail interface{} `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, detail interface{}) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeDomainError is the single place where errors become status codes.
func writeDomainError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	var reqErr *requestError
	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &reqErr):
		writeError(w, http.StatusUnprocessableEntity, reqErr.detail())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusUnprocessableEntity, validationErr.Message)
	case errors.Is(err, domain.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, errorMessage(err, domain.ErrDuplicateEmail))
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, errorMessage(err, domain.ErrUserNotFound))
	case errors.Is(err, domain.ErrStorageUnavailable):
		log.ErrorContext(ctx, "Storage unavailable", map[string]interface{}{"error": err})
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.ErrorContext(ctx, "Unhandled error", map[string]interface{}{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// errorMessage returns the message of the typed error wrapping sentinel,
// without any outer wrapping context.
func errorMessage(err, sentinel error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.Unwrap(e) == sentinel {
			return e.Error()
		}
	}
	return err.Error()
}
