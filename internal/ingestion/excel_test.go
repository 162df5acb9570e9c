package ingestion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes the given rows to the first sheet of an in-memory
// workbook and returns the serialized bytes.
func buildWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestExcelValidate(t *testing.T) {
	t.Parallel()

	strategy := NewExcelStrategy(NewLogMetricsSink(nil))

	t.Run("valid workbook", func(t *testing.T) {
		t.Parallel()
		data := buildWorkbook(t, [][]any{
			{"prompt", "response"},
			{"What is Go?", "A language."},
		})
		assert.NoError(t, strategy.Validate(data))
	})

	t.Run("missing headers", func(t *testing.T) {
		t.Parallel()
		data := buildWorkbook(t, [][]any{
			{"question", "answer"},
			{"q", "a"},
		})
		err := strategy.Validate(data)
		require.Error(t, err)

		var validationErr *FileValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Reason, "prompt")
		assert.Contains(t, validationErr.Reason, "response")
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		data := buildWorkbook(t, [][]any{{"prompt", "response"}})
		assert.Error(t, strategy.Validate(data))
	})

	t.Run("not a workbook", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, strategy.Validate([]byte("prompt,response\nq,a\n")))
	})
}

func TestExcelProcess(t *testing.T) {
	t.Parallel()

	strategy := NewExcelStrategy(NewLogMetricsSink(nil))
	importID := uuid.New()

	t.Run("cell values are coerced to text", func(t *testing.T) {
		t.Parallel()
		data := buildWorkbook(t, [][]any{
			{"prompt", "response"},
			{"What is the answer?", 42},
			{true, "yes"},
		})

		result, err := strategy.Process(data, importID)
		require.NoError(t, err)

		assert.Equal(t, 2, result.ProcessedCount)
		assert.Equal(t, 0, result.ErrorCount)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "42", result.Rows[0].Response)
		assert.Equal(t, "true", result.Rows[1].Prompt)
	})

	t.Run("metadata column is copied verbatim", func(t *testing.T) {
		t.Parallel()
		data := buildWorkbook(t, [][]any{
			{"prompt", "response", "metadata"},
			{"q", "a", "batch-7"},
		})

		result, err := strategy.Process(data, importID)
		require.NoError(t, err)

		require.Len(t, result.Rows, 1)
		assert.Equal(t, "batch-7", result.Rows[0].Metadata)
	})

	t.Run("empty cells are row errors", func(t *testing.T) {
		t.Parallel()
		data := buildWorkbook(t, [][]any{
			{"prompt", "response"},
			{"q1", "a1"},
			{"", "a2"},
			{"q3", "a3"},
		})

		result, err := strategy.Process(data, importID)
		require.NoError(t, err)

		assert.Equal(t, 2, result.ProcessedCount)
		assert.Equal(t, 1, result.ErrorCount)
		require.Len(t, result.Rows, 2)
		assert.Equal(t, 1, result.Rows[0].OriginalRowNumber)
		assert.Equal(t, 3, result.Rows[1].OriginalRowNumber)
	})
}
