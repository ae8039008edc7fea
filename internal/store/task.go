package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// Sort fields accepted by TaskFilter.SortBy.
const (
	SortByCreatedAt = "created_at"
	SortByDueDate   = "due_date"
	SortByPriority  = "priority"
	SortByTitle     = "title"
)

// TaskFilter narrows and orders a task listing. Zero values mean "no filter".
type TaskFilter struct {
	Status      domain.TaskStatus
	Priority    domain.TaskPriority
	Tag         string
	Search      string
	DueBefore   *time.Time
	DueAfter    *time.Time
	OwnerUserID int64
	SortBy      string
	SortDesc    bool
	Limit       int
	Offset      int
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task and assigns its ID and timestamps.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID, including the owner's username.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// Update writes the mutable content fields of a task.
	// reminder_sent_at is never touched by Update.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id int64) error

	// List returns one page of tasks matching filter plus the total match count.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)

	// FindDueBetween returns tasks whose due date lies in [from, to] and whose
	// reminder marker is null or older than notRemindedSince, ordered by due
	// date ascending. Tasks without a due date are never returned.
	FindDueBetween(ctx context.Context, from, to, notRemindedSince time.Time) ([]domain.Task, error)

	// ConditionallyMarkReminded sets reminder_sent_at = now for the task if
	// its marker is null or older than notRemindedSince. It runs in its own
	// transaction and reports the number of rows modified (0 or 1).
	ConditionallyMarkReminded(ctx context.Context, taskID int64, now, notRemindedSince time.Time) (int64, error)

	// Refresh re-reads the current state of a task.
	// Returns ErrTaskNotFound if the task no longer exists.
	Refresh(ctx context.Context, taskID int64) (*domain.Task, error)

	// WithTx returns a TaskStore that runs its queries inside tx.
	WithTx(tx *sql.Tx) TaskStore
}
