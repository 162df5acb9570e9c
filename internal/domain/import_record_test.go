package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewImportRecord(t *testing.T) {
	t.Parallel()

	record, err := NewImportRecord("client-42", "pairs.csv")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if record.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if record.OwnerID != "client-42" {
		t.Errorf("Expected owner ID client-42, got %s", record.OwnerID)
	}

	if record.Status != ImportStatusPending {
		t.Errorf("Expected status %s, got %s", ImportStatusPending, record.Status)
	}

	if record.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Missing owner
	_, err = NewImportRecord("", "pairs.csv")
	if !errors.Is(err, ErrEmptyImportOwnerID) {
		t.Errorf("Expected error %v, got %v", ErrEmptyImportOwnerID, err)
	}

	// Missing file name
	_, err = NewImportRecord("client-42", "")
	if !errors.Is(err, ErrEmptyImportFileName) {
		t.Errorf("Expected error %v, got %v", ErrEmptyImportFileName, err)
	}
}

func TestImportRecordTransitions(t *testing.T) {
	t.Parallel()

	record, err := NewImportRecord("client-42", "pairs.csv")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := record.TransitionTo(ImportStatusProcessing); err != nil {
		t.Fatalf("Expected pending -> processing to succeed, got %v", err)
	}

	// Backward transition is rejected
	if err := record.TransitionTo(ImportStatusPending); err == nil {
		t.Error("Expected processing -> pending to fail")
	}

	if err := record.MarkSuccess(3, 2); err != nil {
		t.Fatalf("Expected processing -> success to succeed, got %v", err)
	}

	if record.TotalRecords != 3 || record.ProcessedRecords != 2 {
		t.Errorf("Expected counts 3/2, got %d/%d", record.TotalRecords, record.ProcessedRecords)
	}

	if !record.IsTerminal() {
		t.Error("Expected success status to be terminal")
	}

	// Terminal status is frozen
	err = record.TransitionTo(ImportStatusFailed)
	if !errors.Is(err, ErrTerminalImportStatus) {
		t.Errorf("Expected error %v, got %v", ErrTerminalImportStatus, err)
	}
}

func TestImportRecordMarkFailed(t *testing.T) {
	t.Parallel()

	record, err := NewImportRecord("client-42", "pairs.xlsx")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Failing straight from pending is legal: format resolution can fail
	// before processing ever starts.
	if err := record.MarkFailed("unsupported file format: .pdf"); err != nil {
		t.Fatalf("Expected pending -> failed to succeed, got %v", err)
	}

	if record.Status != ImportStatusFailed {
		t.Errorf("Expected status %s, got %s", ImportStatusFailed, record.Status)
	}

	if record.ErrorMessage == "" {
		t.Error("Expected error message to be recorded")
	}

	err = record.MarkFailed("again")
	if !errors.Is(err, ErrTerminalImportStatus) {
		t.Errorf("Expected error %v, got %v", ErrTerminalImportStatus, err)
	}
}

func TestImportRecordValidateFormat(t *testing.T) {
	t.Parallel()

	record, err := NewImportRecord("client-42", "pairs.json")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	record.Format = FileFormatJSONArray
	if err := record.Validate(); err != nil {
		t.Errorf("Expected valid format to pass, got %v", err)
	}

	record.Format = FileFormat("PARQUET")
	if !errors.Is(record.Validate(), ErrInvalidFileFormat) {
		t.Error("Expected invalid format to fail validation")
	}
}

func TestNewRowRecord(t *testing.T) {
	t.Parallel()

	importID := uuid.New()
	row, err := NewRowRecord(importID, "What is Go?", "A programming language.", 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if row.ImportID != importID {
		t.Errorf("Expected import ID %s, got %s", importID, row.ImportID)
	}

	if row.ProcessingStatus != RowStatusPending {
		t.Errorf("Expected status %s, got %s", RowStatusPending, row.ProcessingStatus)
	}

	if row.OriginalRowNumber != 1 {
		t.Errorf("Expected row number 1, got %d", row.OriginalRowNumber)
	}

	_, err = NewRowRecord(importID, "prompt", "response", 0)
	if !errors.Is(err, ErrInvalidRowNumber) {
		t.Errorf("Expected error %v, got %v", ErrInvalidRowNumber, err)
	}
}

func TestValidateFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		prompt   string
		response string
		wantErr  error
	}{
		{"valid", "prompt", "response", nil},
		{"blank prompt", "   ", "response", ErrBlankPrompt},
		{"blank response", "prompt", "", ErrBlankResponse},
		{"prompt too long", strings.Repeat("p", MaxPromptLength+1), "response", ErrPromptTooLong},
		{"response too long", "prompt", strings.Repeat("r", MaxResponseLength+1), ErrResponseTooLong},
		{"prompt at limit", strings.Repeat("p", MaxPromptLength), "response", nil},
		{"response at limit", "prompt", strings.Repeat("r", MaxResponseLength), nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateFields(tc.prompt, tc.response)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}
