package store

import (
	"context"
	"time"
)

// ReminderCounts is a point-in-time aggregate over the tasks table.
type ReminderCounts struct {
	TasksWithReminders int `json:"total_tasks_with_reminders"`
	DueNext24h         int `json:"tasks_due_next_24h"`
	NeedingReminders   int `json:"tasks_needing_reminders"`
	RemindersLast24h   int `json:"reminders_sent_last_24h"`
}

// StatsStore answers read-only reporting queries about reminders.
type StatsStore interface {
	// ReminderCounts computes the aggregate for the reminder window
	// [now, windowEnd] with staleBefore as the freshness threshold.
	ReminderCounts(ctx context.Context, now, windowEnd, staleBefore time.Time) (*ReminderCounts, error)

	// LastReminderSentAt returns the most recent reminder_sent_at across all
	// tasks, or nil when no reminder has ever been sent.
	LastReminderSentAt(ctx context.Context) (*time.Time, error)
}
