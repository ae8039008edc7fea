package reminder

import (
	"context"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// TaskStore is the subset of store.TaskStore the reminder job needs.
type TaskStore interface {
	FindDueBetween(ctx context.Context, from, to, notRemindedSince time.Time) ([]domain.Task, error)
	ConditionallyMarkReminded(ctx context.Context, taskID int64, now, notRemindedSince time.Time) (int64, error)
	Refresh(ctx context.Context, taskID int64) (*domain.Task, error)
}
