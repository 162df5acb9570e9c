package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
)

// ImportStore defines the persistence gateway for import records. The
// uploaded file's bytes are stored alongside the record so background
// processing and crash recovery can re-read them.
type ImportStore interface {
	// Create saves a new import record and its file content to the store.
	Create(ctx context.Context, record *domain.ImportRecord, fileContent []byte) error

	// Update saves changes to an existing import record.
	// Returns ErrImportNotFound if the record does not exist.
	Update(ctx context.Context, record *domain.ImportRecord) error

	// GetByID retrieves an import record by its unique ID.
	// Returns ErrImportNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportRecord, error)

	// GetFileContent retrieves the stored file bytes for an import.
	// Returns ErrImportNotFound if the record does not exist.
	GetFileContent(ctx context.Context, id uuid.UUID) ([]byte, error)

	// FindByStatus retrieves import records with the given status,
	// most recent first.
	FindByStatus(ctx context.Context, status domain.ImportStatus, limit, offset int) ([]*domain.ImportRecord, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) ImportStore
}

// RowStore defines the persistence gateway for row records. Rows are
// written in one batch per import and never mutated by this subsystem
// afterwards.
type RowStore interface {
	// CreateBatch saves all given rows in a single operation.
	CreateBatch(ctx context.Context, rows []*domain.RowRecord) error

	// GetByID retrieves a row record by its unique ID.
	// Returns ErrRowNotFound if the row does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RowRecord, error)

	// FindByImportID retrieves the rows belonging to an import, ordered by
	// original row number.
	FindByImportID(ctx context.Context, importID uuid.UUID, limit, offset int) ([]*domain.RowRecord, error)

	// FindByProcessingStatus retrieves rows with the given processing
	// status, most recent first.
	FindByProcessingStatus(ctx context.Context, status domain.RowProcessingStatus, limit, offset int) ([]*domain.RowRecord, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) RowStore
}
