package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/store"
)

// PostgresStatsStore implements store.StatsStore with aggregate queries over tasks.
type PostgresStatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStatsStore creates a new PostgresStatsStore.
func NewPostgresStatsStore(db store.DBTX, logger *slog.Logger) *PostgresStatsStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

var _ store.StatsStore = (*PostgresStatsStore)(nil)

// ReminderCounts implements store.StatsStore.ReminderCounts
func (s *PostgresStatsStore) ReminderCounts(
	ctx context.Context,
	now, windowEnd, staleBefore time.Time,
) (*store.ReminderCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE reminder_sent_at IS NOT NULL),
			COUNT(*) FILTER (WHERE due_date >= $1 AND due_date <= $2),
			COUNT(*) FILTER (WHERE due_date >= $1 AND due_date <= $2
				AND (reminder_sent_at IS NULL OR reminder_sent_at < $3)),
			COUNT(*) FILTER (WHERE reminder_sent_at >= $3)
		FROM tasks
	`

	var counts store.ReminderCounts
	err := s.db.QueryRowContext(ctx, query, now.UTC(), windowEnd.UTC(), staleBefore.UTC()).Scan(
		&counts.TasksWithReminders,
		&counts.DueNext24h,
		&counts.NeedingReminders,
		&counts.RemindersLast24h,
	)
	if err != nil {
		s.logger.Error("failed to compute reminder counts", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return &counts, nil
}

// LastReminderSentAt implements store.StatsStore.LastReminderSentAt
func (s *PostgresStatsStore) LastReminderSentAt(ctx context.Context) (*time.Time, error) {
	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(reminder_sent_at) FROM tasks`).Scan(&last); err != nil {
		return nil, MapError(err)
	}
	return timePtr(last), nil
}
