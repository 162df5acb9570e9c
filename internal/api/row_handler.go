package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/api/shared"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/service"
)

// RowHandler handles row-level HTTP requests.
type RowHandler struct {
	importService service.ImportService
	logger        *slog.Logger
}

// NewRowHandler creates a new RowHandler.
func NewRowHandler(importService service.ImportService, logger *slog.Logger) *RowHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RowHandler{
		importService: importService,
		logger:        logger.With(slog.String("component", "row_handler")),
	}
}

// GetRow handles GET /api/rows/{id}.
func (h *RowHandler) GetRow(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid ID format")
		return
	}

	row, err := h.importService.GetRow(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRowResponse(row))
}

// ListRows handles GET /api/rows?status=.
func (h *RowHandler) ListRows(w http.ResponseWriter, r *http.Request) {
	status, ok := parseRowStatus(w, r)
	if !ok {
		return
	}

	page, err := shared.ParsePagination(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.importService.ListRowsByProcessingStatus(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRowListResponse(rows, page.Limit, page.Offset))
}

// parseRowStatus reads and validates the status query parameter.
func parseRowStatus(w http.ResponseWriter, r *http.Request) (domain.RowProcessingStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "status query parameter is required")
		return "", false
	}

	status := domain.RowProcessingStatus(raw)
	switch status {
	case domain.RowStatusPending, domain.RowStatusError, domain.RowStatusLabeled,
		domain.RowStatusSkipped, domain.RowStatusReviewed:
		return status, true
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown row processing status")
		return "", false
	}
}
