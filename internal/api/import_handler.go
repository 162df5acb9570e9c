// Package api implements the HTTP handlers for the import service.
package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/api/shared"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/ingestion"
	"github.com/promptdeck/ingest-api/internal/service"
)

// multipartMemoryLimit caps the in-memory portion of multipart parsing;
// larger parts spill to temp files.
const multipartMemoryLimit = 4 << 20

// ImportHandler handles import-related HTTP requests.
type ImportHandler struct {
	importService service.ImportService
	logger        *slog.Logger
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService service.ImportService, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		importService: importService,
		logger:        logger.With(slog.String("component", "import_handler")),
	}
}

// CreateImport handles POST /api/imports.
// It accepts a multipart form with a "file" part and an "owner_id" field,
// and responds 202 Accepted with the pending import record.
func (h *ImportHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	// Bound the whole request body; the per-file limit is enforced again
	// during validation.
	r.Body = http.MaxBytesReader(w, r.Body, ingestion.MaxFileSizeBytes+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Request must be a multipart form with a file", err)
		return
	}

	ownerID := r.FormValue("owner_id")
	if ownerID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "owner_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"A file part named 'file' is required", err)
		return
	}
	defer func() { _ = file.Close() }()

	fileContent, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"Failed to read uploaded file", err)
		return
	}

	if len(fileContent) > ingestion.MaxFileSizeBytes {
		shared.RespondWithError(w, r, http.StatusRequestEntityTooLarge,
			"Uploaded file exceeds the 10 MiB limit")
		return
	}

	record, err := h.importService.CreateImport(r.Context(), ownerID, header.Filename, fileContent)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, NewImportResponse(record))
}

// GetImport handles GET /api/imports/{id}.
func (h *ImportHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	record, err := h.importService.GetImport(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewImportResponse(record))
}

// ListImports handles GET /api/imports?status=.
func (h *ImportHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	status, ok := parseImportStatus(w, r)
	if !ok {
		return
	}

	page, err := shared.ParsePagination(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.importService.ListImportsByStatus(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewImportListResponse(records, page.Limit, page.Offset))
}

// ListImportRows handles GET /api/imports/{id}/rows.
func (h *ImportHandler) ListImportRows(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	page, err := shared.ParsePagination(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.importService.ListRowsByImport(r.Context(), id, page.Limit, page.Offset)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewRowListResponse(rows, page.Limit, page.Offset))
}

// parseID reads a UUID path parameter, responding 400 on garbage.
func (h *ImportHandler) parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// parseImportStatus reads and validates the status query parameter.
func parseImportStatus(w http.ResponseWriter, r *http.Request) (domain.ImportStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "status query parameter is required")
		return "", false
	}

	status := domain.ImportStatus(raw)
	switch status {
	case domain.ImportStatusPending, domain.ImportStatusProcessing,
		domain.ImportStatusSuccess, domain.ImportStatusFailed:
		return status, true
	default:
		shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown import status")
		return "", false
	}
}
