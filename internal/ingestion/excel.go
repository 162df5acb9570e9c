package ingestion

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/promptdeck/ingest-api/internal/domain"
)

// ExcelStrategy parses spreadsheet files through excelize. Only the first
// sheet is read; its first row is the header row, matched with the same
// trimmed, case-insensitive rule as delimited text. A "metadata" column,
// if present, is copied verbatim into the row record.
type ExcelStrategy struct {
	metrics MetricsSink
}

// NewExcelStrategy creates a strategy for spreadsheet files.
func NewExcelStrategy(metrics MetricsSink) *ExcelStrategy {
	return &ExcelStrategy{metrics: metrics}
}

var _ Strategy = (*ExcelStrategy)(nil)

// Format implements Strategy.Format.
func (s *ExcelStrategy) Format() domain.FileFormat {
	return domain.FileFormatSpreadsheet
}

// Validate implements Strategy.Validate.
func (s *ExcelStrategy) Validate(fileBytes []byte) error {
	if err := validateSize(fileBytes); err != nil {
		return err
	}

	rows, err := readWorkbook(fileBytes)
	if err != nil {
		return err
	}

	if _, err := buildColumnIndex(rows[0]); err != nil {
		return err
	}

	return validateRowCount(len(rows) - 1)
}

// Process implements Strategy.Process.
func (s *ExcelStrategy) Process(fileBytes []byte, importID uuid.UUID) (Result, error) {
	started := time.Now()

	rows, err := readWorkbook(fileBytes)
	if err != nil {
		return Result{}, err
	}

	columns, err := buildColumnIndex(rows[0])
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i, record := range rows[1:] {
		rowNumber := i + 1

		prompt := coerceCell(cellAt(record, columns[promptField]))
		response := coerceCell(cellAt(record, columns[responseField]))
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

// readWorkbook opens the payload and returns the first sheet's rows.
// excelize resolves cell values for us: text cells come back as strings,
// numeric cells as decimal strings, and formula cells as their cached
// result (falling back to the raw numeric value).
func readWorkbook(fileBytes []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, NewFileValidationError("malformed spreadsheet: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewFileValidationError("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, NewFileValidationError("failed to read rows from spreadsheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, NewFileValidationError("spreadsheet has no header row")
	}

	return rows, nil
}

// coerceCell normalizes resolved cell text. Boolean cells surface from
// excelize as "TRUE"/"FALSE"; the stored form is lowercase.
func coerceCell(value string) string {
	switch value {
	case "TRUE":
		return "true"
	case "FALSE":
		return "false"
	default:
		return value
	}
}
