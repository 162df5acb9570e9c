package ingestion

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
)

// JSONStrategy parses JSON-array files. The root value must be an array of
// objects carrying string "prompt" and "response" fields. An optional
// "metadata" field must be a JSON object; a scalar or array there fails
// validation for the whole file.
type JSONStrategy struct {
	metrics MetricsSink
}

// NewJSONStrategy creates a strategy for JSON-array files.
func NewJSONStrategy(metrics MetricsSink) *JSONStrategy {
	return &JSONStrategy{metrics: metrics}
}

var _ Strategy = (*JSONStrategy)(nil)

// jsonEntry is one element of the root array. Prompt and response stay raw
// so a non-string value is detected per row instead of failing the decode.
type jsonEntry struct {
	Prompt   json.RawMessage `json:"prompt"`
	Response json.RawMessage `json:"response"`
	Metadata json.RawMessage `json:"metadata"`
}

// Format implements Strategy.Format.
func (s *JSONStrategy) Format() domain.FileFormat {
	return domain.FileFormatJSONArray
}

// Validate implements Strategy.Validate.
func (s *JSONStrategy) Validate(fileBytes []byte) error {
	if err := validateSize(fileBytes); err != nil {
		return err
	}

	entries, err := decodeEntries(fileBytes)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if len(entry.Metadata) > 0 && !isJSONObject(entry.Metadata) {
			return NewFileValidationError("entry %d: metadata must be a JSON object", i+1)
		}
	}

	return validateRowCount(len(entries))
}

// Process implements Strategy.Process.
func (s *JSONStrategy) Process(fileBytes []byte, importID uuid.UUID) (Result, error) {
	started := time.Now()

	entries, err := decodeEntries(fileBytes)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i, entry := range entries {
		rowNumber := i + 1

		prompt, promptOK := decodeString(entry.Prompt)
		response, responseOK := decodeString(entry.Response)
		if !promptOK || !responseOK {
			result.ErrorCount++
			continue
		}

		metadata := ""
		if len(entry.Metadata) > 0 && isJSONObject(entry.Metadata) {
			metadata = string(entry.Metadata)
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

// decodeEntries unmarshals the payload, requiring a root-level array of
// objects.
func decodeEntries(fileBytes []byte) ([]jsonEntry, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(fileBytes, &probe); err != nil {
		return nil, NewFileValidationError("malformed json: %v", err)
	}
	if !isJSONArray(probe) {
		return nil, NewFileValidationError("root value must be a JSON array")
	}

	var entries []jsonEntry
	if err := json.Unmarshal(probe, &entries); err != nil {
		return nil, NewFileValidationError("array elements must be JSON objects: %v", err)
	}

	return entries, nil
}

// decodeString unmarshals a raw value that must be a JSON string.
func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isJSONObject(raw json.RawMessage) bool {
	return firstByte(raw) == '{'
}

func isJSONArray(raw json.RawMessage) bool {
	return firstByte(raw) == '['
}

// firstByte returns the first non-whitespace byte of the raw value.
func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}
