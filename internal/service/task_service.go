package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/audit"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// Pagination limits for task listings.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Sort orders accepted by TaskQuery.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// CreateTaskInput holds the fields accepted when creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	DueDate     *time.Time
	Tags        []string
}

// UpdateTaskInput is a partial update: nil fields are left unchanged.
// ClearDueDate removes the due date and takes precedence over DueDate.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *domain.TaskStatus
	Priority     *domain.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	Tags         *[]string
}

// TaskQuery filters, sorts and pages a task listing.
type TaskQuery struct {
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	Tag         string
	Search      string
	DueBefore   *time.Time
	DueAfter    *time.Time
	OwnerUserID int64
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks      []domain.Task `json:"tasks"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// TaskService provides task operations. Any authenticated user may read any
// task; only the owner may change or delete one.
type TaskService interface {
	CreateTask(ctx context.Context, userID int64, input CreateTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, taskID int64) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID int64, input UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
	ListTasks(ctx context.Context, query TaskQuery) (*TaskPage, error)
}

type taskServiceImpl struct {
	tasks  store.TaskStore
	db     *sql.DB
	audit  audit.Sink
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(tasks store.TaskStore, db *sql.DB, sink audit.Sink, logger *slog.Logger) (TaskService, error) {
	if tasks == nil {
		return nil, errors.New("tasks store cannot be nil")
	}
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if sink == nil {
		return nil, errors.New("audit sink cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskServiceImpl{
		tasks:  tasks,
		db:     db,
		audit:  sink,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask creates a task owned by userID.
func (s *taskServiceImpl) CreateTask(ctx context.Context, userID int64, input CreateTaskInput) (*domain.Task, error) {
	task, err := domain.NewTask(userID, input.Title)
	if err != nil {
		return nil, err
	}
	task.Description = strings.TrimSpace(input.Description)
	if input.Status != "" {
		task.Status = input.Status
	}
	if input.Priority != "" {
		task.Priority = input.Priority
	}
	task.DueDate = utcPtr(input.DueDate)
	if input.Tags != nil {
		task.Tags = input.Tags
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.Int64("user_id", userID))
	s.audit.Append(ctx, domain.AuditActionTaskCreated, &userID, domain.AuditResourceTask,
		strconv.FormatInt(task.ID, 10), map[string]any{"title": task.Title})

	return task, nil
}

// GetTask returns a task by ID.
func (s *taskServiceImpl) GetTask(ctx context.Context, taskID int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	return task, nil
}

// UpdateTask applies a partial update. The reminder marker is not reset,
// even when the due date changes.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	userID, taskID int64,
	input UpdateTaskInput,
) (*domain.Task, error) {
	var updated *domain.Task
	var changed []string

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.tasks.WithTx(tx)

		task, err := txStore.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsOwnedBy(userID) {
			return ErrTaskNotOwned
		}

		changed = applyUpdate(task, input)
		if err := task.Validate(); err != nil {
			return err
		}
		task.UpdatedAt = time.Now().UTC()

		if err := txStore.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Info("task updated",
		slog.Int64("task_id", taskID),
		slog.Int64("user_id", userID),
		slog.Any("fields", changed))
	s.audit.Append(ctx, domain.AuditActionTaskUpdated, &userID, domain.AuditResourceTask,
		strconv.FormatInt(taskID, 10), map[string]any{"fields": changed})

	return updated, nil
}

// DeleteTask removes a task owned by userID.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID, taskID int64) error {
	var title string
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.tasks.WithTx(tx)

		task, err := txStore.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsOwnedBy(userID) {
			return ErrTaskNotOwned
		}
		title = task.Title
		return txStore.Delete(ctx, taskID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("task deleted",
		slog.Int64("task_id", taskID),
		slog.Int64("user_id", userID))
	s.audit.Append(ctx, domain.AuditActionTaskDeleted, &userID, domain.AuditResourceTask,
		strconv.FormatInt(taskID, 10), map[string]any{"title": title})

	return nil
}

// ListTasks returns one page of tasks matching query.
func (s *taskServiceImpl) ListTasks(ctx context.Context, query TaskQuery) (*TaskPage, error) {
	filter, err := query.toFilter()
	if err != nil {
		return nil, err
	}

	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	return &TaskPage{
		Tasks:      tasks,
		Page:       query.Page,
		PageSize:   query.PageSize,
		Total:      total,
		TotalPages: (total + query.PageSize - 1) / query.PageSize,
	}, nil
}

// toFilter validates q, fills in defaults, and converts page numbers to an
// offset.
func (q *TaskQuery) toFilter() (store.TaskFilter, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 || q.PageSize < 1 || q.PageSize > MaxPageSize {
		return store.TaskFilter{}, ErrInvalidPagination
	}

	if q.SortBy == "" {
		q.SortBy = store.SortByCreatedAt
	}
	switch q.SortBy {
	case store.SortByCreatedAt, store.SortByDueDate, store.SortByPriority, store.SortByTitle:
	default:
		return store.TaskFilter{}, ErrInvalidSort
	}

	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder == "" {
		q.SortOrder = SortDesc
	}
	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return store.TaskFilter{}, ErrInvalidSort
	}

	if q.Status != "" && !q.Status.IsValid() {
		return store.TaskFilter{}, domain.ErrInvalidTaskStatus
	}
	if q.Priority != "" && !q.Priority.IsValid() {
		return store.TaskFilter{}, domain.ErrInvalidTaskPriority
	}

	return store.TaskFilter{
		Status:      q.Status,
		Priority:    q.Priority,
		Tag:         strings.TrimSpace(q.Tag),
		Search:      strings.TrimSpace(q.Search),
		DueBefore:   q.DueBefore,
		DueAfter:    q.DueAfter,
		OwnerUserID: q.OwnerUserID,
		SortBy:      q.SortBy,
		SortDesc:    q.SortOrder == SortDesc,
		Limit:       q.PageSize,
		Offset:      (q.Page - 1) * q.PageSize,
	}, nil
}

// applyUpdate copies the set fields of input onto task and returns their
// names.
func applyUpdate(task *domain.Task, input UpdateTaskInput) []string {
	var changed []string
	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
		changed = append(changed, "title")
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
		changed = append(changed, "description")
	}
	if input.Status != nil {
		task.Status = *input.Status
		changed = append(changed, "status")
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
		changed = append(changed, "priority")
	}
	switch {
	case input.ClearDueDate:
		task.DueDate = nil
		changed = append(changed, "due_date")
	case input.DueDate != nil:
		task.DueDate = utcPtr(input.DueDate)
		changed = append(changed, "due_date")
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
		if task.Tags == nil {
			task.Tags = []string{}
		}
		changed = append(changed, "tags")
	}
	return changed
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
