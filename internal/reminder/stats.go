package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/store"
)

// Stats is the read-only reminder report served to operators.
type Stats struct {
	store.ReminderCounts
	GeneratedAt time.Time `json:"generated_at"`
}

// StatsReporter answers reporting queries with the same window the job uses.
type StatsReporter struct {
	stats store.StatsStore
	clock Clock
	span  time.Duration
}

// NewStatsReporter creates a StatsReporter.
func NewStatsReporter(stats store.StatsStore, clock Clock, span time.Duration) *StatsReporter {
	if span <= 0 {
		span = DefaultWindow
	}
	return &StatsReporter{stats: stats, clock: clock, span: span}
}

// Report computes the current reminder statistics.
func (r *StatsReporter) Report(ctx context.Context) (*Stats, error) {
	w := NewWindow(r.clock.Now(), r.span)
	counts, err := r.stats.ReminderCounts(ctx, w.Now, w.End, w.StaleBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reminder statistics: %w", err)
	}
	return &Stats{ReminderCounts: *counts, GeneratedAt: w.Now}, nil
}

// LastReminderSentAt returns the newest reminder marker, or nil if none.
func (r *StatsReporter) LastReminderSentAt(ctx context.Context) (*time.Time, error) {
	return r.stats.LastReminderSentAt(ctx)
}
