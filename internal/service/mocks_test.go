package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/promptdeck/ingest-api/internal/domain"
	"github.com/promptdeck/ingest-api/internal/refsvc"
	"github.com/promptdeck/ingest-api/internal/store"
	"github.com/promptdeck/ingest-api/internal/task"
)

// mockImportStore is an in-memory store.ImportStore.
type mockImportStore struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*domain.ImportRecord
	files       map[uuid.UUID][]byte
	createErr   error
	updateErr   error
	getFileErr  error
	updateCalls int
}

func newMockImportStore() *mockImportStore {
	return &mockImportStore{
		records: make(map[uuid.UUID]*domain.ImportRecord),
		files:   make(map[uuid.UUID][]byte),
	}
}

func (m *mockImportStore) Create(ctx context.Context, record *domain.ImportRecord, fileContent []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *record
	m.records[record.ID] = &cp
	m.files[record.ID] = fileContent
	return nil
}

func (m *mockImportStore) Update(ctx context.Context, record *domain.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.records[record.ID]; !ok {
		return store.ErrImportNotFound
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockImportStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, store.ErrImportNotFound
	}
	cp := *record
	return &cp, nil
}

func (m *mockImportStore) GetFileContent(ctx context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getFileErr != nil {
		return nil, m.getFileErr
	}
	content, ok := m.files[id]
	if !ok {
		return nil, store.ErrImportNotFound
	}
	return content, nil
}

func (m *mockImportStore) FindByStatus(ctx context.Context, status domain.ImportStatus, limit, offset int) ([]*domain.ImportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ImportRecord
	for _, r := range m.records {
		if r.Status == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockImportStore) WithTx(tx *sql.Tx) store.ImportStore { return m }

func (m *mockImportStore) get(id uuid.UUID) *domain.ImportRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// mockRowStore is an in-memory store.RowStore.
type mockRowStore struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*domain.RowRecord
	batchErr error
}

func newMockRowStore() *mockRowStore {
	return &mockRowStore{rows: make(map[uuid.UUID]*domain.RowRecord)}
}

func (m *mockRowStore) CreateBatch(ctx context.Context, rows []*domain.RowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return m.batchErr
	}
	for _, r := range rows {
		cp := *r
		m.rows[r.ID] = &cp
	}
	return nil
}

func (m *mockRowStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.RowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrRowNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *mockRowStore) FindByImportID(ctx context.Context, importID uuid.UUID, limit, offset int) ([]*domain.RowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.RowRecord
	for _, r := range m.rows {
		if r.ImportID == importID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRowStore) FindByProcessingStatus(ctx context.Context, status domain.RowProcessingStatus, limit, offset int) ([]*domain.RowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.RowRecord
	for _, r := range m.rows {
		if r.ProcessingStatus == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRowStore) WithTx(tx *sql.Tx) store.RowStore { return m }

func (m *mockRowStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// mockReferenceClient answers owner lookups.
type mockReferenceClient struct {
	err     error
	lookups []string
}

func (m *mockReferenceClient) GetClientReference(ctx context.Context, id string) (*refsvc.ClientReference, error) {
	m.lookups = append(m.lookups, id)
	if m.err != nil {
		return nil, m.err
	}
	return &refsvc.ClientReference{ID: id, Name: "Test Client", Role: "admin"}, nil
}

// mockTaskRunner captures submitted tasks without executing them.
type mockTaskRunner struct {
	submitted []task.Task
	err       error
}

func (m *mockTaskRunner) Submit(ctx context.Context, t task.Task) error {
	if m.err != nil {
		return m.err
	}
	m.submitted = append(m.submitted, t)
	return nil
}

var errMockStore = errors.New("mock store failure")
