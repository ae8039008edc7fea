package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/reminder"
	"github.com/phrazzld/tasktracker-api/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, userID int64, input service.CreateTaskInput) (*domain.Task, error) {
	args := m.Called(ctx, userID, input)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) GetTask(ctx context.Context, taskID int64) (*domain.Task, error) {
	args := m.Called(ctx, taskID)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, userID, taskID int64, input service.UpdateTaskInput) (*domain.Task, error) {
	args := m.Called(ctx, userID, taskID, input)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, userID, taskID int64) error {
	return m.Called(ctx, userID, taskID).Error(0)
}

func (m *MockTaskService) ListTasks(ctx context.Context, query service.TaskQuery) (*service.TaskPage, error) {
	args := m.Called(ctx, query)
	page, _ := args.Get(0).(*service.TaskPage)
	return page, args.Error(1)
}

type fakeScheduler struct {
	running    bool
	registered bool
	nextRun    *time.Time
	interval   time.Duration
	summary    reminder.Summary
	err        error
	triggered  int
}

func (f *fakeScheduler) IsRunning() bool { return f.running }
func (f *fakeScheduler) IsJobRegistered(string) bool { return f.registered }
func (f *fakeScheduler) NextRunTime(string) *time.Time { return f.nextRun }
func (f *fakeScheduler) Interval() time.Duration { return f.interval }
func (f *fakeScheduler) TriggerNow(context.Context, string) (reminder.Summary, error) {
	f.triggered++
	return f.summary, f.err
}

type fakeStats struct {
	stats   *reminder.Stats
	last    *time.Time
	err     error
	lastErr error
}

func (f *fakeStats) Report(context.Context) (*reminder.Stats, error) { return f.stats, f.err }
func (f *fakeStats) LastReminderSentAt(context.Context) (*time.Time, error) {
	return f.last, f.lastErr
}

// newRequest builds a request as the auth middleware would hand it over.
// userID 0 means unauthenticated.
func newRequest(method, target, body string, userID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req = req.WithContext(shared.WithUserID(req.Context(), userID))
	}
	return req
}

// withURLParam attaches a chi route parameter to req.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) UploadAttachment(ctx context.Context, userID, taskID int64, input service.UploadInput) (*domain.Attachment, error) {
	args := m.Called(ctx, userID, taskID, input)
	attachment, _ := args.Get(0).(*domain.Attachment)
	return attachment, args.Error(1)
}

func (m *MockAttachmentService) ListAttachments(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	args := m.Called(ctx, taskID)
	attachments, _ := args.Get(0).([]domain.Attachment)
	return attachments, args.Error(1)
}

func (m *MockAttachmentService) OpenAttachment(ctx context.Context, taskID, attachmentID int64) (*domain.Attachment, io.ReadCloser, error) {
	args := m.Called(ctx, taskID, attachmentID)
	attachment, _ := args.Get(0).(*domain.Attachment)
	body, _ := args.Get(1).(io.ReadCloser)
	return attachment, body, args.Error(2)
}

func (m *MockAttachmentService) DeleteAttachment(ctx context.Context, userID, taskID, attachmentID int64) error {
	return m.Called(ctx, userID, taskID, attachmentID).Error(0)
}

// withURLParams attaches chi route parameters given as key, value pairs.
func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
