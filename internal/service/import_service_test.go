package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/ingestion"
	"github.com/promptdeck/ingest-api/internal/refsvc"
	"github.com/promptdeck/ingest-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceFixture bundles the service under test with its mocks.
type serviceFixture struct {
	svc         *importServiceImpl
	importStore *mockImportStore
	rowStore    *mockRowStore
	refClient   *mockReferenceClient
	taskRunner  *mockTaskRunner
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		importStore: newMockImportStore(),
		rowStore:    newMockRowStore(),
		refClient:   &mockReferenceClient{},
		taskRunner:  &mockTaskRunner{},
	}

	svc, err := NewImportService(
		new(sql.DB),
		f.importStore,
		f.rowStore,
		ingestion.DefaultRegistry(ingestion.NewLogMetricsSink(nil)),
		f.refClient,
		f.taskRunner,
		nil,
	)
	require.NoError(t, err)

	f.svc = svc.(*importServiceImpl)
	// Bypass the real transaction machinery; the mocks ignore the tx.
	f.svc.runInTx = func(ctx context.Context, db *sql.DB, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	return f
}

const validCSV = "prompt,response\nWhat is Go?,A programming language.\nWhat is chi?,A router.\n"

func TestCreateImport(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid upload and enqueues processing", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		record, err := f.svc.CreateImport(context.Background(), "client-1", "data.csv", []byte(validCSV))
		require.NoError(t, err)

		assert.Equal(t, domain.ImportStatusPending, record.Status)
		assert.Equal(t, domain.FileFormatDelimitedText, record.Format)
		assert.Equal(t, "client-1", record.OwnerID)

		require.Len(t, f.taskRunner.submitted, 1)
		assert.Equal(t, []string{"client-1"}, f.refClient.lookups)
		assert.NotNil(t, f.importStore.get(record.ID))
	})

	t.Run("rejects an empty file", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.CreateImport(context.Background(), "client-1", "data.csv", nil)
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Empty(t, f.refClient.lookups, "reference service should not be consulted")
	})

	t.Run("rejects an unsupported extension", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.CreateImport(context.Background(), "client-1", "data.pdf", []byte("x"))
		assert.ErrorIs(t, err, ingestion.ErrUnsupportedFormat)
	})

	t.Run("rejects an unknown owner", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.refClient.err = refsvc.ErrNotFound

		_, err := f.svc.CreateImport(context.Background(), "ghost", "data.csv", []byte(validCSV))
		assert.ErrorIs(t, err, ErrOwnerNotFound)
		assert.Empty(t, f.taskRunner.submitted)
	})

	t.Run("surfaces reference service outage", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.refClient.err = refsvc.ErrRemoteService

		_, err := f.svc.CreateImport(context.Background(), "client-1", "data.csv", []byte(validCSV))
		assert.ErrorIs(t, err, ErrReferenceUnavailable)
	})

	t.Run("fails when the task queue rejects the submission", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.taskRunner.err = errors.New("queue is full")

		_, err := f.svc.CreateImport(context.Background(), "client-1", "data.csv", []byte(validCSV))
		require.Error(t, err)

		var svcErr *ImportServiceError
		assert.ErrorAs(t, err, &svcErr)
	})
}

func TestProcessImport(t *testing.T) {
	t.Parallel()

	createPending := func(t *testing.T, f *serviceFixture, fileName, content string) uuid.UUID {
		t.Helper()
		record, err := f.svc.CreateImport(context.Background(), "client-1", fileName, []byte(content))
		require.NoError(t, err)
		return record.ID
	}

	t.Run("drives a valid import to success", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		id := createPending(t, f, "data.csv", validCSV)

		require.NoError(t, f.svc.ProcessImport(context.Background(), id))

		record := f.importStore.get(id)
		assert.Equal(t, domain.ImportStatusSuccess, record.Status)
		assert.Equal(t, 2, record.TotalRecords)
		assert.Equal(t, 2, record.ProcessedRecords)
		assert.Equal(t, 2, f.rowStore.count())
	})

	t.Run("succeeds with partial row failures", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		// Second row has a blank response and is dropped.
		content := "prompt,response\ngood,answer\nbad,\n"
		id := createPending(t, f, "data.csv", content)

		require.NoError(t, f.svc.ProcessImport(context.Background(), id))

		record := f.importStore.get(id)
		assert.Equal(t, domain.ImportStatusSuccess, record.Status)
		assert.Equal(t, 2, record.TotalRecords)
		assert.Equal(t, 1, record.ProcessedRecords)
		assert.Equal(t, 1, f.rowStore.count())
	})

	t.Run("marks the import failed when validation fails", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		// Header only, no data rows.
		id := createPending(t, f, "data.csv", "prompt,response\n")

		require.NoError(t, f.svc.ProcessImport(context.Background(), id))

		record := f.importStore.get(id)
		assert.Equal(t, domain.ImportStatusFailed, record.Status)
		assert.NotEmpty(t, record.ErrorMessage)
		assert.Zero(t, f.rowStore.count())
	})

	t.Run("skips an import already in a terminal status", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		id := createPending(t, f, "data.csv", validCSV)

		require.NoError(t, f.svc.ProcessImport(context.Background(), id))
		updatesAfterFirst := f.importStore.updateCalls

		require.NoError(t, f.svc.ProcessImport(context.Background(), id))
		assert.Equal(t, updatesAfterFirst, f.importStore.updateCalls, "no further writes expected")
	})

	t.Run("returns an error for an unknown import", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		err := f.svc.ProcessImport(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrImportNotFound)
	})

	t.Run("marks failed and propagates when rows cannot be persisted", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		id := createPending(t, f, "data.csv", validCSV)
		f.rowStore.batchErr = errMockStore

		err := f.svc.ProcessImport(context.Background(), id)
		require.Error(t, err)

		record := f.importStore.get(id)
		assert.Equal(t, domain.ImportStatusFailed, record.Status)
	})
}

func TestQueryOperations(t *testing.T) {
	t.Parallel()

	t.Run("GetImport maps missing records to the sentinel", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.GetImport(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrImportNotFound)
	})

	t.Run("GetRow maps missing rows to the sentinel", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.GetRow(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrRowNotFound)
	})

	t.Run("ListRowsByImport requires an existing import", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.svc.ListRowsByImport(context.Background(), uuid.New(), 10, 0)
		assert.ErrorIs(t, err, ErrImportNotFound)
	})

	t.Run("rows are queryable after processing", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		record, err := f.svc.CreateImport(context.Background(), "client-1", "data.csv", []byte(validCSV))
		require.NoError(t, err)
		require.NoError(t, f.svc.ProcessImport(context.Background(), record.ID))

		rows, err := f.svc.ListRowsByImport(context.Background(), record.ID, 10, 0)
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		pending, err := f.svc.ListRowsByProcessingStatus(context.Background(), domain.RowStatusPending, 10, 0)
		require.NoError(t, err)
		assert.Len(t, pending, 2)
	})
}
