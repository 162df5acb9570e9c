package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field length bounds shared by every import format.
const (
	MaxPromptLength   = 4000
	MaxResponseLength = 8000
)

// RowProcessingStatus represents the state of a single converted row.
type RowProcessingStatus string

// Possible row processing status values. Import only ever assigns pending;
// the remaining states belong to the downstream labeling workflow.
const (
	RowStatusPending  RowProcessingStatus = "pending"
	RowStatusError    RowProcessingStatus = "error"
	RowStatusLabeled  RowProcessingStatus = "labeled"
	RowStatusSkipped  RowProcessingStatus = "skipped"
	RowStatusReviewed RowProcessingStatus = "reviewed"
)

// Common validation errors for RowRecord
var (
	ErrEmptyRowID       = errors.New("row ID cannot be empty")
	ErrEmptyRowImportID = errors.New("row import ID cannot be empty")
	ErrBlankPrompt      = errors.New("prompt cannot be blank")
	ErrBlankResponse    = errors.New("response cannot be blank")
	ErrPromptTooLong    = errors.New("prompt exceeds maximum length")
	ErrResponseTooLong  = errors.New("response exceeds maximum length")
	ErrInvalidRowNumber = errors.New("original row number must be positive")
	ErrInvalidRowStatus = errors.New("invalid row processing status")
)

// RowRecord is one prompt/response pair extracted from an import. The
// OriginalRowNumber preserves the row's 1-based position among attempted
// rows in the source file, so gaps appear when neighboring rows failed
// conversion.
type RowRecord struct {
	ID                uuid.UUID           `json:"id"`
	ImportID          uuid.UUID           `json:"import_id"`
	Prompt            string              `json:"prompt"`
	Response          string              `json:"response"`
	OriginalRowNumber int                 `json:"original_row_number"`
	ProcessingStatus  RowProcessingStatus `json:"processing_status"`
	Metadata          string              `json:"metadata,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// NewRowRecord creates a pending RowRecord for the given import.
// Returns an error if validation fails.
func NewRowRecord(importID uuid.UUID, prompt, response string, rowNumber int) (*RowRecord, error) {
	row := &RowRecord{
		ID:                uuid.New(),
		ImportID:          importID,
		Prompt:            prompt,
		Response:          response,
		OriginalRowNumber: rowNumber,
		ProcessingStatus:  RowStatusPending,
		CreatedAt:         time.Now().UTC(),
	}

	if err := row.Validate(); err != nil {
		return nil, err
	}

	return row, nil
}

// Validate checks if the RowRecord has valid data.
// Rows in error status are exempt from the prompt/response field bounds.
func (r *RowRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRowID
	}

	if r.ImportID == uuid.Nil {
		return ErrEmptyRowImportID
	}

	if r.OriginalRowNumber <= 0 {
		return ErrInvalidRowNumber
	}

	if !isValidRowStatus(r.ProcessingStatus) {
		return ErrInvalidRowStatus
	}

	if r.ProcessingStatus != RowStatusError {
		if err := ValidateFields(r.Prompt, r.Response); err != nil {
			return err
		}
	}

	return nil
}

// ValidateFields applies the field bounds shared by every import format:
// prompt non-blank and at most MaxPromptLength characters, response
// non-blank and at most MaxResponseLength characters.
func ValidateFields(prompt, response string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrBlankPrompt
	}
	if len([]rune(prompt)) > MaxPromptLength {
		return ErrPromptTooLong
	}
	if strings.TrimSpace(response) == "" {
		return ErrBlankResponse
	}
	if len([]rune(response)) > MaxResponseLength {
		return ErrResponseTooLong
	}
	return nil
}

func isValidRowStatus(status RowProcessingStatus) bool {
	switch status {
	case RowStatusPending, RowStatusError, RowStatusLabeled, RowStatusSkipped, RowStatusReviewed:
		return true
	default:
		return false
	}
}
