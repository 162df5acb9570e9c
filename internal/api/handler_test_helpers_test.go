package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/service"
	"github.com/stretchr/testify/require"
)

// mockImportService is a controllable service.ImportService for handler tests.
type mockImportService struct {
	createFn     func(ctx context.Context, ownerID, fileName string, fileContent []byte) (*domain.ImportRecord, error)
	getImportFn  func(ctx context.Context, importID uuid.UUID) (*domain.ImportRecord, error)
	listImports  func(ctx context.Context, status domain.ImportStatus, limit, offset int) ([]*domain.ImportRecord, error)
	getRowFn     func(ctx context.Context, rowID uuid.UUID) (*domain.RowRecord, error)
	listByImport func(ctx context.Context, importID uuid.UUID, limit, offset int) ([]*domain.RowRecord, error)
	listByStatus func(ctx context.Context, status domain.RowProcessingStatus, limit, offset int) ([]*domain.RowRecord, error)
}

var _ service.ImportService = (*mockImportService)(nil)

func (m *mockImportService) CreateImport(ctx context.Context, ownerID, fileName string, fileContent []byte) (*domain.ImportRecord, error) {
	return m.createFn(ctx, ownerID, fileName, fileContent)
}

func (m *mockImportService) ProcessImport(ctx context.Context, importID uuid.UUID) error {
	return nil
}

func (m *mockImportService) GetImport(ctx context.Context, importID uuid.UUID) (*domain.ImportRecord, error) {
	return m.getImportFn(ctx, importID)
}

func (m *mockImportService) ListImportsByStatus(ctx context.Context, status domain.ImportStatus, limit, offset int) ([]*domain.ImportRecord, error) {
	return m.listImports(ctx, status, limit, offset)
}

func (m *mockImportService) GetRow(ctx context.Context, rowID uuid.UUID) (*domain.RowRecord, error) {
	return m.getRowFn(ctx, rowID)
}

func (m *mockImportService) ListRowsByImport(ctx context.Context, importID uuid.UUID, limit, offset int) ([]*domain.RowRecord, error) {
	return m.listByImport(ctx, importID, limit, offset)
}

func (m *mockImportService) ListRowsByProcessingStatus(ctx context.Context, status domain.RowProcessingStatus, limit, offset int) ([]*domain.RowRecord, error) {
	return m.listByStatus(ctx, status, limit, offset)
}

// newTestRouter wires the handlers the way cmd/server does.
func newTestRouter(svc service.ImportService) http.Handler {
	importHandler := NewImportHandler(svc, nil)
	rowHandler := NewRowHandler(svc, nil)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/imports", importHandler.CreateImport)
		r.Get("/imports", importHandler.ListImports)
		r.Get("/imports/{id}", importHandler.GetImport)
		r.Get("/imports/{id}/rows", importHandler.ListImportRows)
		r.Get("/rows/{id}", rowHandler.GetRow)
		r.Get("/rows", rowHandler.ListRows)
	})
	return r
}

// buildMultipart assembles a multipart body with an owner_id field and a
// file part.
func buildMultipart(t *testing.T, ownerID, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if ownerID != "" {
		require.NoError(t, w.WriteField("owner_id", ownerID))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// pendingImport builds a pending import record for test responses.
func pendingImport(t *testing.T, ownerID, fileName string) *domain.ImportRecord {
	t.Helper()
	record, err := domain.NewImportRecord(ownerID, fileName)
	require.NoError(t, err)
	record.Format = domain.FileFormatDelimitedText
	return record
}
