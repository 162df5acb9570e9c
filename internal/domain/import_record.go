package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileFormat identifies the parser family used for an uploaded file.
type FileFormat string

// Supported file formats
const (
	FileFormatDelimitedText FileFormat = "DELIMITED_TEXT"
	FileFormatSpreadsheet   FileFormat = "SPREADSHEET"
	FileFormatJSONArray     FileFormat = "JSON_ARRAY"
)

// ImportStatus represents the processing state of an import
type ImportStatus string

// Possible import status values
const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusSuccess    ImportStatus = "success"
	ImportStatusFailed     ImportStatus = "failed"
)

// Common validation errors for ImportRecord
var (
	ErrEmptyImportID       = errors.New("import ID cannot be empty")
	ErrEmptyImportOwnerID  = errors.New("import owner ID cannot be empty")
	ErrEmptyImportFileName = errors.New("import file name cannot be empty")
	ErrInvalidImportStatus = errors.New("invalid import status")
	ErrInvalidFileFormat   = errors.New("invalid file format")
)

// ErrTerminalImportStatus is returned when a status transition is attempted
// on an import that has already reached success or failed.
var ErrTerminalImportStatus = errors.New("import status is terminal")

// ImportRecord tracks one upload-and-ingest operation. It owns the status
// state machine; row records reference it by ID but are never mutated
// through it.
type ImportRecord struct {
	ID               uuid.UUID    `json:"id"`
	OwnerID          string       `json:"owner_id"`
	FileName         string       `json:"file_name"`
	Format           FileFormat   `json:"format"`
	TotalRecords     int          `json:"total_records"`
	ProcessedRecords int          `json:"processed_records"`
	Status           ImportStatus `json:"status"`
	ErrorMessage     string       `json:"error_message,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewImportRecord creates a new ImportRecord in pending status for the given
// owner and file. The format is left empty until resolution; an import can
// fail before its format is known.
// Returns an error if validation fails.
func NewImportRecord(ownerID, fileName string) (*ImportRecord, error) {
	record := &ImportRecord{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		FileName:  fileName,
		Status:    ImportStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the ImportRecord has valid data.
// Returns an error if any field fails validation.
func (r *ImportRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyImportID
	}

	if r.OwnerID == "" {
		return ErrEmptyImportOwnerID
	}

	if r.FileName == "" {
		return ErrEmptyImportFileName
	}

	if !isValidImportStatus(r.Status) {
		return ErrInvalidImportStatus
	}

	if r.Format != "" && !isValidFileFormat(r.Format) {
		return ErrInvalidFileFormat
	}

	return nil
}

// TransitionTo moves the import to the given status and updates the
// UpdatedAt timestamp. The state machine only moves forward through
// pending -> processing -> {success, failed}; success and failed are
// terminal.
func (r *ImportRecord) TransitionTo(status ImportStatus) error {
	if !isValidImportStatus(status) {
		return ErrInvalidImportStatus
	}

	if r.Status == ImportStatusSuccess || r.Status == ImportStatusFailed {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrTerminalImportStatus, r.Status, status)
	}

	if statusRank(status) < statusRank(r.Status) {
		return fmt.Errorf("%w: cannot move from %s back to %s", ErrInvalidImportStatus, r.Status, status)
	}

	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailed transitions the import to failed and records the reason.
func (r *ImportRecord) MarkFailed(reason string) error {
	if err := r.TransitionTo(ImportStatusFailed); err != nil {
		return err
	}
	r.ErrorMessage = reason
	return nil
}

// MarkSuccess transitions the import to success and records the final row
// counts. Row-level errors do not fail the batch, so success is legal even
// when processed < total.
func (r *ImportRecord) MarkSuccess(totalRecords, processedRecords int) error {
	if err := r.TransitionTo(ImportStatusSuccess); err != nil {
		return err
	}
	r.TotalRecords = totalRecords
	r.ProcessedRecords = processedRecords
	return nil
}

// IsTerminal reports whether the import has reached a final status.
func (r *ImportRecord) IsTerminal() bool {
	return r.Status == ImportStatusSuccess || r.Status == ImportStatusFailed
}

func isValidImportStatus(status ImportStatus) bool {
	switch status {
	case ImportStatusPending, ImportStatusProcessing, ImportStatusSuccess, ImportStatusFailed:
		return true
	default:
		return false
	}
}

func isValidFileFormat(format FileFormat) bool {
	switch format {
	case FileFormatDelimitedText, FileFormatSpreadsheet, FileFormatJSONArray:
		return true
	default:
		return false
	}
}

// statusRank orders the non-terminal statuses so transitions can be checked
// for forward movement. Terminal statuses share the highest rank.
func statusRank(status ImportStatus) int {
	switch status {
	case ImportStatusPending:
		return 0
	case ImportStatusProcessing:
		return 1
	default:
		return 2
	}
}
