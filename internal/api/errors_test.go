package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/promptdeck/ingest-api/internal/ingestion"
	"github.com/promptdeck/ingest-api/internal/resilience"
	"github.com/promptdeck/ingest-api/internal/service"
	"github.com/promptdeck/ingest-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"import not found", service.ErrImportNotFound, http.StatusNotFound},
		{"row not found", service.ErrRowNotFound, http.StatusNotFound},
		{"wrapped store not found", fmt.Errorf("ctx: %w", store.ErrNotFound), http.StatusNotFound},
		{"empty file", service.ErrEmptyFile, http.StatusUnprocessableEntity},
		{"owner not found", service.ErrOwnerNotFound, http.StatusUnprocessableEntity},
		{"unsupported format", ingestion.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"reference unavailable", service.ErrReferenceUnavailable, http.StatusBadGateway},
		{"circuit open", resilience.ErrCircuitOpen, http.StatusBadGateway},
		{"unknown error", errors.New("mystery"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	t.Run("known errors get specific messages", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "Import not found", GetSafeErrorMessage(service.ErrImportNotFound))
		assert.Equal(t, "Row not found", GetSafeErrorMessage(service.ErrRowNotFound))
	})

	t.Run("unknown errors never leak details", func(t *testing.T) {
		t.Parallel()

		leaky := errors.New("pq: connection to postgres://user:secret@db:5432 failed")
		msg := GetSafeErrorMessage(leaky)
		assert.Equal(t, "An unexpected error occurred", msg)
	})

	t.Run("nil error gets a generic message", func(t *testing.T) {
		t.Parallel()
		assert.NotEmpty(t, GetSafeErrorMessage(nil))
	})
}
