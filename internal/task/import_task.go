package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ImportProcessor defines the interface for running the import pipeline.
// It is implemented by the import service and consumed here to avoid a
// dependency cycle between the task and service packages.
type ImportProcessor interface {
	// ProcessImport parses the stored file for the given import, persists
	// the extracted rows, and moves the import to a terminal status. Row
	// level failures are absorbed; a returned error means the import as a
	// whole failed.
	ProcessImport(ctx context.Context, importID uuid.UUID) error
}

// ImportProcessingPayload contains the data needed for the import
// processing task.
type ImportProcessingPayload struct {
	ImportID uuid.UUID `json:"import_id"`
}

// ImportProcessingTask implements the Task interface for processing an
// uploaded import file in the background.
type ImportProcessingTask struct {
	id        uuid.UUID
	importID  uuid.UUID
	processor ImportProcessor
	status    TaskStatus
	logger    *slog.Logger
}

// NewImportProcessingTask creates a new task for processing an import.
func NewImportProcessingTask(
	importID uuid.UUID,
	processor ImportProcessor,
	logger *slog.Logger,
) (*ImportProcessingTask, error) {
	if importID == uuid.Nil {
		return nil, fmt.Errorf("import ID cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("import processor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ImportProcessingTask{
		id:        uuid.New(),
		importID:  importID,
		processor: processor,
		status:    TaskStatusPending,
		logger:    logger.With(slog.String("component", "import_processing_task")),
	}, nil
}

// ImportProcessingTaskFromPayload rebuilds a task from a persisted
// payload. Used by the recovery resolver.
func ImportProcessingTaskFromPayload(
	payload []byte,
	processor ImportProcessor,
	logger *slog.Logger,
) (*ImportProcessingTask, error) {
	var p ImportProcessingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import processing payload: %w", err)
	}
	return NewImportProcessingTask(p.ImportID, processor, logger)
}

// ID returns the task's unique identifier.
func (t *ImportProcessingTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier.
func (t *ImportProcessingTask) Type() string {
	return TaskTypeImportProcessing
}

// Payload returns the task's payload as a serialized JSON byte slice.
func (t *ImportProcessingTask) Payload() []byte {
	payload := ImportProcessingPayload{ImportID: t.importID}

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("failed to marshal task payload",
			slog.String("task_id", t.id.String()),
			slog.String("import_id", t.importID.String()),
			slog.String("error", err.Error()))
		return []byte{}
	}

	return data
}

// Status returns the current task status.
func (t *ImportProcessingTask) Status() TaskStatus {
	return t.status
}

// Execute runs the import pipeline for the task's import record.
func (t *ImportProcessingTask) Execute(ctx context.Context) error {
	log := t.logger.With(
		slog.String("task_id", t.id.String()),
		slog.String("import_id", t.importID.String()),
	)
	log.Info("starting import processing")

	if err := t.processor.ProcessImport(ctx, t.importID); err != nil {
		log.Error("import processing failed",
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to process import %s: %w", t.importID, err)
	}

	log.Info("import processing completed")
	return nil
}
