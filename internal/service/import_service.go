// Package service provides the application-level import orchestrator.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/ingestion"
	"github.com/promptdeck/ingest-api/internal/refsvc"
	"github.com/promptdeck/ingest-api/internal/store"
	"github.com/promptdeck/ingest-api/internal/task"
)

// Common sentinel errors for ImportService. The API layer maps these to
// HTTP status codes.
var (
	// ErrImportNotFound indicates that the import does not exist.
	ErrImportNotFound = errors.New("import not found")

	// ErrRowNotFound indicates that the row does not exist.
	ErrRowNotFound = errors.New("row not found")

	// ErrOwnerNotFound indicates the owner could not be confirmed against
	// the reference service.
	ErrOwnerNotFound = errors.New("owner not found in reference service")

	// ErrEmptyFile indicates an upload with no content.
	ErrEmptyFile = errors.New("uploaded file is empty")

	// ErrReferenceUnavailable indicates the reference service could not
	// answer the owner lookup, so the import cannot be accepted.
	ErrReferenceUnavailable = errors.New("reference service unavailable")
)

// ReferenceClient is the subset of the reference service client the
// orchestrator needs: confirming that an owner exists before accepting
// an import.
type ReferenceClient interface {
	GetClientReference(ctx context.Context, id string) (*refsvc.ClientReference, error)
}

// TaskRunner defines the interface for submitting background tasks.
type TaskRunner interface {
	// Submit adds a task to the processing queue
	Submit(ctx context.Context, t task.Task) error
}

// ImportService provides import-related operations. CreateImport is the
// synchronous half of the pipeline; ProcessImport is invoked by the
// background task runner and drives the record to a terminal status.
type ImportService interface {
	// CreateImport accepts an uploaded file, creates a pending import
	// record, and enqueues background processing. It returns the record
	// immediately; processing outcome is observed via GetImport.
	CreateImport(ctx context.Context, ownerID, fileName string, fileContent []byte) (*domain.ImportRecord, error)

	// ProcessImport runs the parse/validate/persist pipeline for a
	// previously created import. Implements task.ImportProcessor.
	ProcessImport(ctx context.Context, importID uuid.UUID) error

	// GetImport retrieves an import record by ID.
	GetImport(ctx context.Context, importID uuid.UUID) (*domain.ImportRecord, error)

	// ListImportsByStatus retrieves import records with the given status.
	ListImportsByStatus(ctx context.Context, status domain.ImportStatus, limit, offset int) ([]*domain.ImportRecord, error)

	// GetRow retrieves a single row record by ID.
	GetRow(ctx context.Context, rowID uuid.UUID) (*domain.RowRecord, error)

	// ListRowsByImport retrieves the rows belonging to an import.
	ListRowsByImport(ctx context.Context, importID uuid.UUID, limit, offset int) ([]*domain.RowRecord, error)

	// ListRowsByProcessingStatus retrieves rows with the given processing status.
	ListRowsByProcessingStatus(ctx context.Context, status domain.RowProcessingStatus, limit, offset int) ([]*domain.RowRecord, error)
}

// ImportServiceError wraps unexpected errors from the import service.
type ImportServiceError struct {
	// Operation is the operation that failed (e.g., "create_import")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ImportServiceError.
func (e *ImportServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("import service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ImportServiceError) Unwrap() error {
	return e.Err
}

// NewImportServiceError creates a new ImportServiceError.
// It returns known sentinel errors directly without wrapping.
func NewImportServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrImportNotFound) {
		return ErrImportNotFound
	}
	if errors.Is(err, ErrRowNotFound) {
		return ErrRowNotFound
	}

	// Map store-level sentinels to service-level ones
	if errors.Is(err, store.ErrImportNotFound) {
		return ErrImportNotFound
	}
	if errors.Is(err, store.ErrRowNotFound) {
		return ErrRowNotFound
	}

	return &ImportServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// importServiceImpl implements the ImportService interface
type importServiceImpl struct {
	db          *sql.DB
	importStore store.ImportStore
	rowStore    store.RowStore
	registry    *ingestion.Registry
	refClient   ReferenceClient
	taskRunner  TaskRunner
	logger      *slog.Logger

	// runInTx is store.RunInTransaction, replaceable in tests.
	runInTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewImportService creates a new ImportService.
// It returns an error if any of the required dependencies are nil.
func NewImportService(
	db *sql.DB,
	importStore store.ImportStore,
	rowStore store.RowStore,
	registry *ingestion.Registry,
	refClient ReferenceClient,
	taskRunner TaskRunner,
	logger *slog.Logger,
) (ImportService, error) {
	if db == nil {
		return nil, &ImportServiceError{Operation: "create_service", Message: "db cannot be nil"}
	}
	if importStore == nil {
		return nil, &ImportServiceError{Operation: "create_service", Message: "importStore cannot be nil"}
	}
	if rowStore == nil {
		return nil, &ImportServiceError{Operation: "create_service", Message: "rowStore cannot be nil"}
	}
	if registry == nil {
		return nil, &ImportServiceError{Operation: "create_service", Message: "registry cannot be nil"}
	}
	if refClient == nil {
		return nil, &ImportServiceError{Operation: "create_service", Message: "refClient cannot be nil"}
	}
	if taskRunner == nil {
		return nil, &ImportServiceError{Operation: "create_service", Message: "taskRunner cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &importServiceImpl{
		db:          db,
		importStore: importStore,
		rowStore:    rowStore,
		registry:    registry,
		refClient:   refClient,
		taskRunner:  taskRunner,
		logger:      logger.With("component", "import_service"),
		runInTx:     store.RunInTransaction,
	}, nil
}

// CreateImport validates the upload's surface properties, confirms the
// owner against the reference service, persists a pending record with the
// file bytes, and enqueues the processing task.
func (s *importServiceImpl) CreateImport(
	ctx context.Context,
	ownerID, fileName string,
	fileContent []byte,
) (*domain.ImportRecord, error) {
	if len(fileContent) == 0 {
		return nil, ErrEmptyFile
	}

	// Reject unknown extensions before touching the reference service.
	format, err := ingestion.ResolveFileFormat(fileName)
	if err != nil {
		return nil, err
	}

	// The owner must exist before an import is accepted.
	if _, err := s.refClient.GetClientReference(ctx, ownerID); err != nil {
		s.logger.Warn("owner lookup failed",
			"error", err,
			"owner_id", ownerID)

		if errors.Is(err, refsvc.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrReferenceUnavailable, err)
	}

	record, err := domain.NewImportRecord(ownerID, fileName)
	if err != nil {
		return nil, NewImportServiceError("create_import", "failed to create import record", err)
	}
	record.Format = format

	if err := s.importStore.Create(ctx, record, fileContent); err != nil {
		s.logger.Error("failed to save import record",
			"error", err,
			"import_id", record.ID,
			"owner_id", ownerID)
		return nil, NewImportServiceError("create_import", "failed to save import record", err)
	}

	processingTask, err := task.NewImportProcessingTask(record.ID, s, s.logger)
	if err != nil {
		return nil, NewImportServiceError("create_import", "failed to create processing task", err)
	}

	if err := s.taskRunner.Submit(ctx, processingTask); err != nil {
		s.logger.Error("failed to enqueue import processing task",
			"error", err,
			"import_id", record.ID)
		return nil, NewImportServiceError("create_import", "failed to enqueue processing task", err)
	}

	s.logger.Info("import accepted",
		"import_id", record.ID,
		"owner_id", ownerID,
		"file_name", fileName,
		"format", format)

	return record, nil
}

// ProcessImport drives one import through validate, process, and persist.
// It returns an error only when the pipeline could not reach a terminal
// status (e.g. the store is unavailable); an import that fails validation
// is marked failed and reported as a handled outcome.
func (s *importServiceImpl) ProcessImport(ctx context.Context, importID uuid.UUID) error {
	log := s.logger.With("import_id", importID)

	record, err := s.importStore.GetByID(ctx, importID)
	if err != nil {
		return NewImportServiceError("process_import", "failed to load import record", err)
	}

	// A requeued or duplicate task for a finished import is a no-op.
	if record.IsTerminal() {
		log.Info("import already in terminal status, skipping",
			"status", record.Status)
		return nil
	}

	if err := record.TransitionTo(domain.ImportStatusProcessing); err != nil {
		return NewImportServiceError("process_import", "failed to transition import to processing", err)
	}
	if err := s.importStore.Update(ctx, record); err != nil {
		return NewImportServiceError("process_import", "failed to persist processing status", err)
	}

	fileContent, err := s.importStore.GetFileContent(ctx, importID)
	if err != nil {
		return s.failImport(ctx, record, "stored file content could not be read", err)
	}

	strategy, err := s.registry.Get(record.Format)
	if err != nil {
		return s.failImport(ctx, record, "no parser available for file format", err)
	}

	if err := strategy.Validate(fileContent); err != nil {
		log.Info("import file failed validation", "error", err)
		return s.markFailed(ctx, record, err.Error())
	}

	result, err := strategy.Process(fileContent, record.ID)
	if err != nil {
		log.Error("import file processing failed", "error", err)
		return s.markFailed(ctx, record, err.Error())
	}

	// Persist the rows and the final counts atomically.
	err = s.runInTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if len(result.Rows) > 0 {
			if err := s.rowStore.WithTx(tx).CreateBatch(ctx, result.Rows); err != nil {
				return fmt.Errorf("failed to save rows: %w", err)
			}
		}

		if err := record.MarkSuccess(result.AttemptedCount(), result.ProcessedCount); err != nil {
			return fmt.Errorf("failed to finalize import: %w", err)
		}
		if err := s.importStore.WithTx(tx).Update(ctx, record); err != nil {
			return fmt.Errorf("failed to persist final import status: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.failImport(ctx, record, "failed to persist processed rows", err)
	}

	log.Info("import processed",
		"total_records", record.TotalRecords,
		"processed_records", record.ProcessedRecords,
		"error_count", result.ErrorCount)

	return nil
}

// markFailed moves the record to failed with the given reason. The failure
// is a handled outcome, so a nil error is returned when persisting works.
func (s *importServiceImpl) markFailed(ctx context.Context, record *domain.ImportRecord, reason string) error {
	if err := record.MarkFailed(reason); err != nil {
		return NewImportServiceError("process_import", "failed to mark import as failed", err)
	}
	if err := s.importStore.Update(ctx, record); err != nil {
		return NewImportServiceError("process_import", "failed to persist failed status", err)
	}
	return nil
}

// failImport marks the record failed because of an unexpected error and
// propagates that error so the task is recorded as failed too.
func (s *importServiceImpl) failImport(ctx context.Context, record *domain.ImportRecord, reason string, cause error) error {
	s.logger.Error("import processing hit an unexpected error",
		"import_id", record.ID,
		"reason", reason,
		"error", cause)

	if err := s.markFailed(ctx, record, reason); err != nil {
		s.logger.Error("failed to record import failure",
			"import_id", record.ID,
			"error", err)
	}
	return NewImportServiceError("process_import", reason, cause)
}

// GetImport retrieves an import record by its ID.
func (s *importServiceImpl) GetImport(ctx context.Context, importID uuid.UUID) (*domain.ImportRecord, error) {
	record, err := s.importStore.GetByID(ctx, importID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrImportNotFound
		}
		return nil, NewImportServiceError("get_import", "failed to retrieve import", err)
	}
	return record, nil
}

// ListImportsByStatus retrieves import records with the given status.
func (s *importServiceImpl) ListImportsByStatus(
	ctx context.Context,
	status domain.ImportStatus,
	limit, offset int,
) ([]*domain.ImportRecord, error) {
	records, err := s.importStore.FindByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, NewImportServiceError("list_imports", "failed to list imports", err)
	}
	return records, nil
}

// GetRow retrieves a single row record by its ID.
func (s *importServiceImpl) GetRow(ctx context.Context, rowID uuid.UUID) (*domain.RowRecord, error) {
	row, err := s.rowStore.GetByID(ctx, rowID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrRowNotFound
		}
		return nil, NewImportServiceError("get_row", "failed to retrieve row", err)
	}
	return row, nil
}

// ListRowsByImport retrieves the rows belonging to an import. The import
// must exist; querying rows of an unknown import is an error rather than
// an empty page.
func (s *importServiceImpl) ListRowsByImport(
	ctx context.Context,
	importID uuid.UUID,
	limit, offset int,
) ([]*domain.RowRecord, error) {
	if _, err := s.GetImport(ctx, importID); err != nil {
		return nil, err
	}

	rows, err := s.rowStore.FindByImportID(ctx, importID, limit, offset)
	if err != nil {
		return nil, NewImportServiceError("list_rows", "failed to list rows", err)
	}
	return rows, nil
}

// ListRowsByProcessingStatus retrieves rows with the given processing status.
func (s *importServiceImpl) ListRowsByProcessingStatus(
	ctx context.Context,
	status domain.RowProcessingStatus,
	limit, offset int,
) ([]*domain.RowRecord, error) {
	rows, err := s.rowStore.FindByProcessingStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, NewImportServiceError("list_rows", "failed to list rows", err)
	}
	return rows, nil
}
