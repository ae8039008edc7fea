package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore mocks store.TaskStore. WithTx returns the receiver.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]domain.Task, int, error) {
	args := m.Called(ctx, filter)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Int(1), args.Error(2)
}

func (m *MockTaskStore) FindDueBetween(ctx context.Context, from, to, since time.Time) ([]domain.Task, error) {
	args := m.Called(ctx, from, to, since)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskStore) ConditionallyMarkReminded(ctx context.Context, id int64, now, since time.Time) (int64, error) {
	args := m.Called(ctx, id, now, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) Refresh(ctx context.Context, id int64) (*domain.Task, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// MockUserStore mocks store.UserStore. WithTx returns the receiver.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) UpdatePassword(ctx context.Context, id int64, password string) error {
	args := m.Called(ctx, id, password)
	return args.Error(0)
}

func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

type auditCall struct {
	Action     domain.AuditAction
	UserID     *int64
	Resource   string
	ResourceID string
	Metadata   map[string]any
}

// recordingSink records audit appends.
type recordingSink struct {
	mu    sync.Mutex
	calls []auditCall
}

func (s *recordingSink) Append(ctx context.Context, action domain.AuditAction, userID *int64,
	resourceType, resourceID string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, auditCall{action, userID, resourceType, resourceID, metadata})
}

func (s *recordingSink) Calls() []auditCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auditCall(nil), s.calls...)
}

type fakeVerifier struct {
	err error
}

func (v fakeVerifier) Compare(hashed, password string) error {
	return v.err
}

// MockAttachmentStore mocks store.AttachmentStore. WithTx returns the receiver.
type MockAttachmentStore struct {
	mock.Mock
}

func (m *MockAttachmentStore) Create(ctx context.Context, attachment *domain.Attachment) error {
	args := m.Called(ctx, attachment)
	return args.Error(0)
}

func (m *MockAttachmentStore) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentStore) ListByTask(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	args := m.Called(ctx, taskID)
	attachments, _ := args.Get(0).([]domain.Attachment)
	return attachments, args.Error(1)
}

func (m *MockAttachmentStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAttachmentStore) WithTx(tx *sql.Tx) store.AttachmentStore {
	return m
}
