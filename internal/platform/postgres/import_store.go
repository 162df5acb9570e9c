package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/platform/logger"
	"github.com/promptdeck/ingest-api/internal/store"
)

// PostgresImportStore implements the store.ImportStore interface
// using a PostgreSQL database as the storage backend.
type PostgresImportStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresImportStore creates a new PostgreSQL implementation of the
// ImportStore interface. It accepts a database connection or transaction
// managed by the caller. If logger is nil, a default logger will be used.
func NewPostgresImportStore(db store.DBTX, logger *slog.Logger) *PostgresImportStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresImportStore{
		db:     db,
		logger: logger.With(slog.String("component", "import_store")),
	}
}

// Ensure PostgresImportStore implements store.ImportStore interface
var _ store.ImportStore = (*PostgresImportStore)(nil)

// WithTx returns a store instance bound to the given transaction.
func (s *PostgresImportStore) WithTx(tx *sql.Tx) store.ImportStore {
	return &PostgresImportStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ImportStore.Create
// It saves a new import record and its file content to the database.
func (s *PostgresImportStore) Create(
	ctx context.Context,
	record *domain.ImportRecord,
	fileContent []byte,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("import validation failed during create",
			slog.String("error", err.Error()),
			slog.String("import_id", record.ID.String()))
		return err
	}

	query := `
		INSERT INTO imports (id, owner_id, file_name, format, total_records,
			processed_records, status, error_message, file_content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.OwnerID,
		record.FileName,
		record.Format,
		record.TotalRecords,
		record.ProcessedRecords,
		record.Status,
		record.ErrorMessage,
		fileContent,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create import",
			slog.String("error", err.Error()),
			slog.String("import_id", record.ID.String()),
			slog.String("owner_id", record.OwnerID))
		return MapError(err)
	}

	log.Info("import created successfully",
		slog.String("import_id", record.ID.String()),
		slog.String("owner_id", record.OwnerID),
		slog.String("status", string(record.Status)))
	return nil
}

// Update implements store.ImportStore.Update
// Returns store.ErrImportNotFound if the record does not exist.
func (s *PostgresImportStore) Update(ctx context.Context, record *domain.ImportRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("import validation failed during update",
			slog.String("error", err.Error()),
			slog.String("import_id", record.ID.String()))
		return err
	}

	query := `
		UPDATE imports
		SET format = $1, total_records = $2, processed_records = $3,
			status = $4, error_message = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		record.Format,
		record.TotalRecords,
		record.ProcessedRecords,
		record.Status,
		record.ErrorMessage,
		record.UpdatedAt,
		record.ID,
	)

	if err != nil {
		log.Error("failed to update import",
			slog.String("error", err.Error()),
			slog.String("import_id", record.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("import_id", record.ID.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("import not found for update",
			slog.String("import_id", record.ID.String()))
		return store.ErrImportNotFound
	}

	log.Info("import updated successfully",
		slog.String("import_id", record.ID.String()),
		slog.String("status", string(record.Status)))
	return nil
}

// GetByID implements store.ImportStore.GetByID
// Returns store.ErrImportNotFound if the record does not exist.
func (s *PostgresImportStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, file_name, format, total_records, processed_records,
			status, error_message, created_at, updated_at
		FROM imports
		WHERE id = $1
	`

	record, err := scanImport(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("import not found", slog.String("import_id", id.String()))
			return nil, store.ErrImportNotFound
		}
		log.Error("failed to get import by ID",
			slog.String("error", err.Error()),
			slog.String("import_id", id.String()))
		return nil, err
	}

	return record, nil
}

// GetFileContent implements store.ImportStore.GetFileContent
// Returns store.ErrImportNotFound if the record does not exist.
func (s *PostgresImportStore) GetFileContent(ctx context.Context, id uuid.UUID) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT file_content FROM imports WHERE id = $1`

	var content []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrImportNotFound
		}
		log.Error("failed to get import file content",
			slog.String("error", err.Error()),
			slog.String("import_id", id.String()))
		return nil, err
	}

	return content, nil
}

// FindByStatus implements store.ImportStore.FindByStatus
// It retrieves imports with the specified status, most recent first.
// Returns an empty slice if no imports match the criteria.
func (s *PostgresImportStore) FindByStatus(
	ctx context.Context,
	status domain.ImportStatus,
	limit, offset int,
) ([]*domain.ImportRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit, offset = normalizePage(limit, offset)

	query := `
		SELECT id, owner_id, file_name, format, total_records, processed_records,
			status, error_message, created_at, updated_at
		FROM imports
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		log.Error("failed to query imports by status",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, err
	}
	defer closeRows(rows, log)

	records := []*domain.ImportRecord{}
	for rows.Next() {
		record, err := scanImport(rows)
		if err != nil {
			log.Error("failed to scan import row",
				slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return records, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanImport reads one import record from the given scanner.
func scanImport(sc rowScanner) (*domain.ImportRecord, error) {
	var record domain.ImportRecord
	var format, status string

	err := sc.Scan(
		&record.ID,
		&record.OwnerID,
		&record.FileName,
		&format,
		&record.TotalRecords,
		&record.ProcessedRecords,
		&status,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Format = domain.FileFormat(format)
	record.Status = domain.ImportStatus(status)
	return &record, nil
}

// normalizePage applies the default page size and clamps a negative offset.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// closeRows closes a result set and logs a failure to do so.
func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}
