package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
)

// ImportResponse is the API representation of an import record.
type ImportResponse struct {
	ImportID         uuid.UUID `json:"import_id"`
	OwnerID          string    `json:"owner_id"`
	FileName         string    `json:"file_name"`
	Format           string    `json:"format,omitempty"`
	TotalRecords     int       `json:"total_records"`
	ProcessedRecords int       `json:"processed_records"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ImportedAt       time.Time `json:"imported_at"`
}

// NewImportResponse converts a domain record into its API shape.
func NewImportResponse(record *domain.ImportRecord) ImportResponse {
	return ImportResponse{
		ImportID:         record.ID,
		OwnerID:          record.OwnerID,
		FileName:         record.FileName,
		Format:           string(record.Format),
		TotalRecords:     record.TotalRecords,
		ProcessedRecords: record.ProcessedRecords,
		Status:           string(record.Status),
		ErrorMessage:     record.ErrorMessage,
		ImportedAt:       record.CreatedAt,
	}
}

// RowResponse is the API representation of an imported row.
type RowResponse struct {
	RowID             uuid.UUID `json:"row_id"`
	ImportID          uuid.UUID `json:"import_id"`
	Prompt            string    `json:"prompt"`
	Response          string    `json:"response"`
	OriginalRowNumber int       `json:"original_row_number"`
	ProcessingStatus  string    `json:"processing_status"`
	Metadata          string    `json:"metadata,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewRowResponse converts a domain row into its API shape.
func NewRowResponse(row *domain.RowRecord) RowResponse {
	return RowResponse{
		RowID:             row.ID,
		ImportID:          row.ImportID,
		Prompt:            row.Prompt,
		Response:          row.Response,
		OriginalRowNumber: row.OriginalRowNumber,
		ProcessingStatus:  string(row.ProcessingStatus),
		Metadata:          row.Metadata,
		CreatedAt:         row.CreatedAt,
	}
}

// RowListResponse is a paginated list of rows.
type RowListResponse struct {
	Rows   []RowResponse `json:"rows"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// NewRowListResponse converts a page of domain rows.
func NewRowListResponse(rows []*domain.RowRecord, limit, offset int) RowListResponse {
	out := RowListResponse{
		Rows:   make([]RowResponse, 0, len(rows)),
		Limit:  limit,
		Offset: offset,
	}
	for _, row := range rows {
		out.Rows = append(out.Rows, NewRowResponse(row))
	}
	return out
}

// ImportListResponse is a paginated list of imports.
type ImportListResponse struct {
	Imports []ImportResponse `json:"imports"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// NewImportListResponse converts a page of domain import records.
func NewImportListResponse(records []*domain.ImportRecord, limit, offset int) ImportListResponse {
	out := ImportListResponse{
		Imports: make([]ImportResponse, 0, len(records)),
		Limit:   limit,
		Offset:  offset,
	}
	for _, record := range records {
		out.Imports = append(out.Imports, NewImportResponse(record))
	}
	return out
}
