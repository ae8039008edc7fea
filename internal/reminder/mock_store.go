package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// MockTaskStore is an in-memory TaskStore for tests. Its default behavior
// applies the same predicates as the SQL store under a single mutex, so
// concurrent claims race the same way. Any Fn field overrides the default.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[int64]domain.Task
	calls map[int64]int

	FindDueBetweenFn func(ctx context.Context, from, to, notRemindedSince time.Time) ([]domain.Task, error)
	MarkRemindedFn   func(ctx context.Context, taskID int64, now, notRemindedSince time.Time) (int64, error)
	RefreshFn        func(ctx context.Context, taskID int64) (*domain.Task, error)
}

// NewMockTaskStore creates a MockTaskStore holding tasks.
func NewMockTaskStore(tasks ...domain.Task) *MockTaskStore {
	m := &MockTaskStore{
		tasks: make(map[int64]domain.Task),
		calls: make(map[int64]int),
	}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

var _ TaskStore = (*MockTaskStore)(nil)

// Put inserts or replaces a task.
func (m *MockTaskStore) Put(task domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = task
}

// Get returns a copy of the stored task.
func (m *MockTaskStore) Get(id int64) (domain.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

// MarkCalls returns how many claim attempts were made for taskID.
func (m *MockTaskStore) MarkCalls(taskID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[taskID]
}

// FindDueBetween implements TaskStore. Results are in map order; ordering
// is the selector's job.
func (m *MockTaskStore) FindDueBetween(ctx context.Context, from, to, notRemindedSince time.Time) ([]domain.Task, error) {
	if m.FindDueBetweenFn != nil {
		return m.FindDueBetweenFn(ctx, from, to, notRemindedSince)
	}

	w := Window{Now: from, End: to, StaleBefore: notRemindedSince}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Task
	for _, t := range m.tasks {
		if w.IsCandidate(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ConditionallyMarkReminded implements TaskStore.
func (m *MockTaskStore) ConditionallyMarkReminded(ctx context.Context, taskID int64, now, notRemindedSince time.Time) (int64, error) {
	m.mu.Lock()
	m.calls[taskID]++
	m.mu.Unlock()

	if m.MarkRemindedFn != nil {
		return m.MarkRemindedFn(ctx, taskID, now, notRemindedSince)
	}
	return m.markReminded(taskID, now, notRemindedSince), nil
}

// MarkReminded applies the default conditional update, for use inside
// MarkRemindedFn overrides.
func (m *MockTaskStore) MarkReminded(taskID int64, now, notRemindedSince time.Time) int64 {
	return m.markReminded(taskID, now, notRemindedSince)
}

func (m *MockTaskStore) markReminded(taskID int64, now, notRemindedSince time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok {
		return 0
	}
	if t.ReminderSentAt != nil && !t.ReminderSentAt.Before(notRemindedSince) {
		return 0
	}
	stamp := now
	t.ReminderSentAt = &stamp
	m.tasks[taskID] = t
	return 1
}

// Refresh implements TaskStore.
func (m *MockTaskStore) Refresh(ctx context.Context, taskID int64) (*domain.Task, error) {
	if m.RefreshFn != nil {
		return m.RefreshFn(ctx, taskID)
	}
	t, ok := m.Get(taskID)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}
