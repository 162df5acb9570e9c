package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockImportProcessor records the import IDs it was asked to process.
type mockImportProcessor struct {
	processed []uuid.UUID
	err       error
}

func (m *mockImportProcessor) ProcessImport(ctx context.Context, importID uuid.UUID) error {
	m.processed = append(m.processed, importID)
	return m.err
}

func TestNewImportProcessingTaskValidation(t *testing.T) {
	t.Parallel()

	_, err := NewImportProcessingTask(uuid.Nil, &mockImportProcessor{}, nil)
	assert.Error(t, err, "nil import ID should be rejected")

	_, err = NewImportProcessingTask(uuid.New(), nil, nil)
	assert.Error(t, err, "nil processor should be rejected")
}

func TestImportProcessingTaskPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	importID := uuid.New()
	processor := &mockImportProcessor{}

	task, err := NewImportProcessingTask(importID, processor, nil)
	require.NoError(t, err)

	assert.Equal(t, TaskTypeImportProcessing, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())

	var payload ImportProcessingPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, importID, payload.ImportID)

	rebuilt, err := ImportProcessingTaskFromPayload(task.Payload(), processor, nil)
	require.NoError(t, err)
	assert.Equal(t, importID, rebuilt.importID)
	assert.NotEqual(t, task.ID(), rebuilt.ID(), "rebuilt task gets a fresh ID")
}

func TestImportProcessingTaskFromPayloadRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ImportProcessingTaskFromPayload([]byte("not json"), &mockImportProcessor{}, nil)
	assert.Error(t, err)
}

func TestImportProcessingTaskExecute(t *testing.T) {
	t.Parallel()

	t.Run("delegates to the processor", func(t *testing.T) {
		t.Parallel()

		importID := uuid.New()
		processor := &mockImportProcessor{}
		task, err := NewImportProcessingTask(importID, processor, nil)
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))
		require.Len(t, processor.processed, 1)
		assert.Equal(t, importID, processor.processed[0])
	})

	t.Run("propagates processor failure", func(t *testing.T) {
		t.Parallel()

		processor := &mockImportProcessor{err: errors.New("pipeline broke")}
		task, err := NewImportProcessingTask(uuid.New(), processor, nil)
		require.NoError(t, err)

		err = task.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline broke")
	})
}
