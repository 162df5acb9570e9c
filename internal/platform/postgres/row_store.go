package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/platform/logger"
	"github.com/promptdeck/ingest-api/internal/store"
)

// batchInsertChunkSize bounds the number of rows per INSERT statement so
// the parameter count stays well under PostgreSQL's limit of 65535.
const batchInsertChunkSize = 1000

// PostgresRowStore implements the store.RowStore interface
// using a PostgreSQL database as the storage backend.
type PostgresRowStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRowStore creates a new PostgreSQL implementation of the
// RowStore interface. If logger is nil, a default logger will be used.
func NewPostgresRowStore(db store.DBTX, logger *slog.Logger) *PostgresRowStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRowStore{
		db:     db,
		logger: logger.With(slog.String("component", "row_store")),
	}
}

// Ensure PostgresRowStore implements store.RowStore interface
var _ store.RowStore = (*PostgresRowStore)(nil)

// WithTx returns a store instance bound to the given transaction.
func (s *PostgresRowStore) WithTx(tx *sql.Tx) store.RowStore {
	return &PostgresRowStore{
		db:     tx,
		logger: s.logger,
	}
}

// CreateBatch implements store.RowStore.CreateBatch
// It saves all given rows using multi-row INSERT statements, chunked to
// respect the parameter limit. Callers run this inside a transaction when
// atomicity across chunks matters.
func (s *PostgresRowStore) CreateBatch(ctx context.Context, rows []*domain.RowRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(rows) == 0 {
		return nil
	}

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			log.Warn("row validation failed during batch create",
				slog.String("error", err.Error()),
				slog.String("row_id", row.ID.String()))
			return err
		}
	}

	for start := 0; start < len(rows); start += batchInsertChunkSize {
		end := start + batchInsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.insertChunk(ctx, rows[start:end]); err != nil {
			log.Error("failed to insert row batch",
				slog.String("error", err.Error()),
				slog.Int("batch_start", start),
				slog.Int("batch_size", end-start))
			return MapError(err)
		}
	}

	log.Info("rows created successfully",
		slog.Int("count", len(rows)),
		slog.String("import_id", rows[0].ImportID.String()))
	return nil
}

// insertChunk builds and executes one multi-row INSERT.
func (s *PostgresRowStore) insertChunk(ctx context.Context, rows []*domain.RowRecord) error {
	const columns = 8

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO import_rows (id, import_id, prompt, response,
			original_row_number, processing_status, metadata, created_at)
		VALUES `)

	args := make([]any, 0, len(rows)*columns)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * columns
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args,
			row.ID,
			row.ImportID,
			row.Prompt,
			row.Response,
			row.OriginalRowNumber,
			row.ProcessingStatus,
			row.Metadata,
			row.CreatedAt,
		)
	}

	_, err := s.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// GetByID implements store.RowStore.GetByID
// Returns store.ErrRowNotFound if the row does not exist.
func (s *PostgresRowStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.RowRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, import_id, prompt, response, original_row_number,
			processing_status, metadata, created_at
		FROM import_rows
		WHERE id = $1
	`

	row, err := scanRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("row not found", slog.String("row_id", id.String()))
			return nil, store.ErrRowNotFound
		}
		log.Error("failed to get row by ID",
			slog.String("error", err.Error()),
			slog.String("row_id", id.String()))
		return nil, err
	}

	return row, nil
}

// FindByImportID implements store.RowStore.FindByImportID
// Rows come back ordered by their original row number.
func (s *PostgresRowStore) FindByImportID(
	ctx context.Context,
	importID uuid.UUID,
	limit, offset int,
) ([]*domain.RowRecord, error) {
	query := `
		SELECT id, import_id, prompt, response, original_row_number,
			processing_status, metadata, created_at
		FROM import_rows
		WHERE import_id = $1
		ORDER BY original_row_number ASC
		LIMIT $2 OFFSET $3
	`
	return s.findRows(ctx, query, importID, limit, offset)
}

// FindByProcessingStatus implements store.RowStore.FindByProcessingStatus
func (s *PostgresRowStore) FindByProcessingStatus(
	ctx context.Context,
	status domain.RowProcessingStatus,
	limit, offset int,
) ([]*domain.RowRecord, error) {
	query := `
		SELECT id, import_id, prompt, response, original_row_number,
			processing_status, metadata, created_at
		FROM import_rows
		WHERE processing_status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return s.findRows(ctx, query, status, limit, offset)
}

// findRows runs a paginated row query with one filter argument.
func (s *PostgresRowStore) findRows(
	ctx context.Context,
	query string,
	filter any,
	limit, offset int,
) ([]*domain.RowRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit, offset = normalizePage(limit, offset)

	rows, err := s.db.QueryContext(ctx, query, filter, limit, offset)
	if err != nil {
		log.Error("failed to query rows",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	records := []*domain.RowRecord{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			log.Error("failed to scan row record",
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

// scanRow reads one row record from the given scanner.
func scanRow(sc rowScanner) (*domain.RowRecord, error) {
	var record domain.RowRecord
	var status string

	err := sc.Scan(
		&record.ID,
		&record.ImportID,
		&record.Prompt,
		&record.Response,
		&record.OriginalRowNumber,
		&status,
		&record.Metadata,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ProcessingStatus = domain.RowProcessingStatus(status)
	return &record, nil
}
