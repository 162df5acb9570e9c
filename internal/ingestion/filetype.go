package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/promptdeck/ingest-api/internal/domain"
)

// ResolveFileFormat maps a filename extension to a supported file format.
// The extension comparison is case-insensitive. Unsupported or missing
// extensions return ErrUnsupportedFormat. Pure function, no side effects.
func ResolveFileFormat(fileName string) (domain.FileFormat, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "csv":
		return domain.FileFormatDelimitedText, nil
	case "json", "jsonl":
		return domain.FileFormatJSONArray, nil
	case "xlsx", "xls":
		return domain.FileFormatSpreadsheet, nil
	case "":
		return "", fmt.Errorf("%w: file %q has no extension", ErrUnsupportedFormat, fileName)
	default:
		return "", fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
}
