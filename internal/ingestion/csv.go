package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// CSVStrategy parses delimited-text files. The first row is a header;
// header names are trimmed and matched case-insensitively, and data rows
// are mapped through a header-name to column-index table built once per
// file.
type CSVStrategy struct {
	metrics MetricsSink
}

// NewCSVStrategy creates a strategy for delimited-text files.
func NewCSVStrategy(metrics MetricsSink) *CSVStrategy {
	return &CSVStrategy{metrics: metrics}
}

var _ Strategy = (*CSVStrategy)(nil)

// Format implements Strategy.Format.
func (s *CSVStrategy) Format() domain.FileFormat {
	return domain.FileFormatDelimitedText
}

// Validate implements Strategy.Validate. It checks the payload size, the
// presence of the required headers, and the data row count.
func (s *CSVStrategy) Validate(fileBytes []byte) error {
	if err := validateSize(fileBytes); err != nil {
		return err
	}

	records, err := readCSV(fileBytes)
	if err != nil {
		return NewFileValidationError("malformed csv: %v", err)
	}
	if len(records) == 0 {
		return NewFileValidationError("file is empty")
	}

	if _, err := buildColumnIndex(records[0]); err != nil {
		return err
	}

	return validateRowCount(len(records) - 1)
}

// Process implements Strategy.Process. Each data row is converted
// independently; a conversion failure increments the error count and the
// row is excluded from the result set.
func (s *CSVStrategy) Process(fileBytes []byte, importID uuid.UUID) (Result, error) {
	started := time.Now()

	records, err := readCSV(fileBytes)
	if err != nil {
		return Result{}, NewFileValidationError("malformed csv: %v", err)
	}
	if len(records) == 0 {
		return Result{}, NewFileValidationError("file is empty")
	}

	columns, err := buildColumnIndex(records[0])
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i, record := range records[1:] {
		rowNumber := i + 1

		prompt := cellAt(record, columns[promptField])
		response := cellAt(record, columns[responseField])
		metadata := ""
		if idx, ok := columns[metadataField]; ok {
			metadata = cellAt(record, idx)
		}

		row, convErr := convertRow(importID, prompt, response, metadata, rowNumber)
		if convErr != nil {
			result.ErrorCount++
			continue
		}

		result.Rows = append(result.Rows, row)
		result.ProcessedCount++
	}

	s.metrics.RowsProcessed(s.Format(), result.ProcessedCount)
	s.metrics.RowsErrored(s.Format(), result.ErrorCount)
	s.metrics.ProcessingDuration(s.Format(), time.Since(started))

	return result, nil
}

// readCSV parses the payload, stripping a UTF-8 byte order mark if present.
func readCSV(fileBytes []byte) ([][]string, error) {
	reader := bufio.NewReader(bytes.NewReader(fileBytes))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	return csvReader.ReadAll()
}

// buildColumnIndex maps normalized header names to column positions and
// verifies the required headers are all present, listing the missing ones.
func buildColumnIndex(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := columns[normalized]; !exists {
			columns[normalized] = idx
		}
	}

	var missing []string
	for _, required := range []string{promptField, responseField} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, NewFileValidationError("missing required headers: %s", strings.Join(missing, ", "))
	}

	return columns, nil
}

// cellAt returns the trimmed cell value at the given index, tolerating
// short rows.
func cellAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
