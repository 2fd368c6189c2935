package api

import (
	"errors"
	"net/http"

	"github.com/fynch/toast-export-api/internal/domain"
	"github.com/fynch/toast-export-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var validationErr *domain.ValidationError

	switch {
	// Bad request errors
	case errors.As(err, &validationErr):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()

	case errors.Is(err, task.ErrTaskNotFound):
		return "Export task not found"

	default:
		return "An unexpected error occurred"
	}
}
