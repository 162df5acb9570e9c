package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockTaskStore implements TaskStore for testing.
type mockTaskStore struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]Task
	statuses map[uuid.UUID]TaskStatus
	saveErr  error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{
		tasks:    make(map[uuid.UUID]Task),
		statuses: make(map[uuid.UUID]TaskStatus),
	}
}

func (s *mockTaskStore) SaveTask(ctx context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.tasks[task.ID()] = task
	s.statuses[task.ID()] = task.Status()
	return nil
}

func (s *mockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[taskID] = status
	return nil
}

func (s *mockTaskStore) GetPendingTasks(ctx context.Context) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for id, t := range s.tasks {
		if s.statuses[id] == TaskStatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *mockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for id, t := range s.tasks {
		if s.statuses[id] == TaskStatusProcessing {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *mockTaskStore) statusOf(taskID uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[taskID]
}
