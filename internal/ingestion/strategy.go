// Package ingestion converts uploaded prompt/response files into row
// records. Each supported file format has its own Strategy implementation;
// all of them share the field bounds defined in the domain package and the
// partial-failure contract: a row that cannot be converted is counted and
// skipped, never aborting the rows after it.
package ingestion

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
)

// Maximum accepted payload size and row counts shared by all strategies.
const (
	MaxFileSizeBytes = 10 << 20 // 10 MiB
	MinRows          = 1
	MaxRows          = 10000
)

// Required column/field names, matched case-insensitively after trimming.
const (
	promptField   = "prompt"
	responseField = "response"
	metadataField = "metadata"
)

// ErrUnsupportedFormat is returned when an uploaded file's extension does
// not map to a supported format.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileValidationError is a fatal, whole-import validation failure carrying
// a human-readable reason (missing headers, bad structure, row count out of
// bounds, oversized file).
type FileValidationError struct {
	Reason string
}

func (e *FileValidationError) Error() string {
	return "file validation failed: " + e.Reason
}

// NewFileValidationError creates a FileValidationError with the given reason.
func NewFileValidationError(format string, args ...any) *FileValidationError {
	return &FileValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Result carries the outcome of processing one file.
type Result struct {
	// Rows holds the successfully converted records, in source order.
	Rows []*domain.RowRecord

	// ProcessedCount is the number of rows converted successfully.
	ProcessedCount int

	// ErrorCount is the number of attempted rows that failed conversion.
	ErrorCount int
}

// AttemptedCount returns the number of source rows the strategy attempted
// to convert.
func (r Result) AttemptedCount() int {
	return r.ProcessedCount + r.ErrorCount
}

// Strategy parses and converts one file format.
//
// Validate is read-only and idempotent: the same input always yields the
// same result, and no shared state is touched. Process converts each
// source row independently, assigning OriginalRowNumber as a 1-based
// counter over attempted rows, so gaps in the persisted sequence are
// expected when some rows fail.
type Strategy interface {
	// Format returns the file format this strategy handles.
	Format() domain.FileFormat

	// Validate checks the payload's size, structural shape, and row count.
	// A nil error means the file may be processed.
	Validate(fileBytes []byte) error

	// Process converts the payload into row records for the given import.
	Process(fileBytes []byte, importID uuid.UUID) (Result, error)
}

// Registry maps file formats to strategy instances. It is assembled once
// at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	strategies map[domain.FileFormat]Strategy
}

// NewRegistry builds a registry from the given strategies. Registering two
// strategies for the same format is a programming error and panics.
func NewRegistry(strategies ...Strategy) *Registry {
	m := make(map[domain.FileFormat]Strategy, len(strategies))
	for _, s := range strategies {
		if _, exists := m[s.Format()]; exists {
			panic(fmt.Sprintf("duplicate strategy registered for format %s", s.Format()))
		}
		m[s.Format()] = s
	}
	return &Registry{strategies: m}
}

// DefaultRegistry returns a registry covering every supported format.
func DefaultRegistry(metrics MetricsSink) *Registry {
	return NewRegistry(
		NewCSVStrategy(metrics),
		NewExcelStrategy(metrics),
		NewJSONStrategy(metrics),
	)
}

// Get returns the strategy for the given format. A missing entry is an
// internal configuration error, not a user error.
func (r *Registry) Get(format domain.FileFormat) (Strategy, error) {
	s, ok := r.strategies[format]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for format %s: misconfigured registry", format)
	}
	return s, nil
}

// validateSize rejects payloads over the configured maximum.
func validateSize(fileBytes []byte) error {
	if len(fileBytes) > MaxFileSizeBytes {
		return NewFileValidationError("file size %d bytes exceeds maximum of %d bytes", len(fileBytes), MaxFileSizeBytes)
	}
	return nil
}

// validateRowCount rejects files outside the [MinRows, MaxRows] bounds.
func validateRowCount(count int) error {
	if count < MinRows {
		return NewFileValidationError("file contains no data rows")
	}
	if count > MaxRows {
		return NewFileValidationError("file contains %d rows, exceeding the maximum of %d", count, MaxRows)
	}
	return nil
}

// convertRow applies the shared field validation and builds a RowRecord.
// A nil record with a nil error never occurs; failures return an error the
// caller counts rather than propagates.
func convertRow(importID uuid.UUID, prompt, response, metadata string, rowNumber int) (*domain.RowRecord, error) {
	if err := domain.ValidateFields(prompt, response); err != nil {
		return nil, fmt.Errorf("row %d: %w", rowNumber, err)
	}

	row, err := domain.NewRowRecord(importID, prompt, response, rowNumber)
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", rowNumber, err)
	}
	row.Metadata = metadata
	return row, nil
}
