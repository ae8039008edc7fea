package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

// Task status values
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority orders tasks by urgency.
type TaskPriority string

// Task priority values
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Task validation errors
var (
	ErrTaskTitleEmpty      = fmt.Errorf("%w: task title cannot be empty", ErrValidation)
	ErrTaskTitleTooLong    = fmt.Errorf("%w: task title must be at most %d characters", ErrValidation, MaxTaskTitleLength)
	ErrTaskOwnerEmpty      = fmt.Errorf("%w: task owner cannot be empty", ErrValidation)
	ErrInvalidTaskStatus   = fmt.Errorf("%w: invalid task status", ErrValidation)
	ErrInvalidTaskPriority = fmt.Errorf("%w: invalid task priority", ErrValidation)
	ErrTooManyTags         = fmt.Errorf("%w: a task can have at most %d tags", ErrValidation, MaxTaskTags)
	ErrInvalidTag          = fmt.Errorf("%w: tags must be 1-50 characters", ErrValidation)
)

const (
	// MaxTaskTitleLength limits the title column.
	MaxTaskTitleLength = 200

	// MaxTaskTags limits the number of tags on a task.
	MaxTaskTags = 20
)

// Task is a unit of work owned by a user.
//
// DueDate and ReminderSentAt are nil when absent. A task without a due date
// never receives a reminder. ReminderSentAt is only written by the reminder
// worker's claim.
type Task struct {
	ID             int64        `json:"id"`
	OwnerUserID    int64        `json:"owner_user_id"`
	OwnerUsername  string       `json:"owner_username,omitempty"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	Tags           []string     `json:"tags"`
	ReminderSentAt *time.Time   `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewTask creates a new, not yet persisted Task with default status and priority.
func NewTask(ownerUserID int64, title string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		OwnerUserID: ownerUserID,
		Title:       strings.TrimSpace(title),
		Status:      TaskStatusTodo,
		Priority:    TaskPriorityMedium,
		Tags:        []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.OwnerUserID <= 0 {
		return ErrTaskOwnerEmpty
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrTaskTitleEmpty
	}
	if len(t.Title) > MaxTaskTitleLength {
		return ErrTaskTitleTooLong
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidTaskPriority
	}
	if len(t.Tags) > MaxTaskTags {
		return ErrTooManyTags
	}
	for _, tag := range t.Tags {
		if tag == "" || len(tag) > 50 {
			return ErrInvalidTag
		}
	}
	return nil
}

// IsOwnedBy reports whether userID owns the task.
func (t *Task) IsOwnedBy(userID int64) bool {
	return t.OwnerUserID == userID
}

// IsValid reports whether s is a known status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// IsValid reports whether p is a known priority.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}
