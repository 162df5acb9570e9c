package api

import (
	"errors"
	"net/http"

	"github.com/promptdeck/ingest-api/internal/ingestion"
	"github.com/promptdeck/ingest-api/internal/resilience"
	"github.com/promptdeck/ingest-api/internal/service"
	"github.com/promptdeck/ingest-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrImportNotFound),
		errors.Is(err, service.ErrRowNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Rejected uploads
	case errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrOwnerNotFound):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Upstream dependency failures
	case errors.Is(err, service.ErrReferenceUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusBadGateway

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

	switch {
	case errors.Is(err, service.ErrImportNotFound):
		return "Import not found"

	case errors.Is(err, service.ErrRowNotFound):
		return "Row not found"

	case errors.Is(err, service.ErrEmptyFile):
		return "Uploaded file is empty"

	case errors.Is(err, service.ErrOwnerNotFound):
		return "Owner could not be verified"

	case errors.Is(err, ingestion.ErrUnsupportedFormat):
		return "Unsupported file format; expected csv, xlsx, or json"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, service.ErrReferenceUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen):
		return "Reference service is currently unavailable"

	default:
		return "An unexpected error occurred"
	}
}
