package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// Selector enumerates reminder candidates. It never writes.
type Selector struct {
	tasks  TaskStore
	span   time.Duration
	logger *slog.Logger
}

// NewSelector creates a Selector over tasks with the given window span.
func NewSelector(tasks TaskStore, span time.Duration, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if span <= 0 {
		span = DefaultWindow
	}
	return &Selector{
		tasks:  tasks,
		span:   span,
		logger: logger.With(slog.String("component", "reminder_selector")),
	}
}

// Window returns the window for now using the selector's span.
func (s *Selector) Window(now time.Time) Window {
	return NewWindow(now, s.span)
}

// Select returns the candidates for w, ordered by due date ascending.
func (s *Selector) Select(ctx context.Context, w Window) ([]domain.Task, error) {
	tasks, err := s.tasks.FindDueBetween(ctx, w.Now, w.End, w.StaleBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks due between %s and %s: %w",
			w.Now.Format(time.RFC3339), w.End.Format(time.RFC3339), err)
	}

	// Closest deadlines first, so an interrupted run has already claimed the most urgent tasks.
	slices.SortStableFunc(tasks, compareDueDate)

	s.logger.Debug("selected reminder candidates",
		slog.Int("count", len(tasks)),
		slog.Time("window_end", w.End),
		slog.Time("stale_before", w.StaleBefore))

	return tasks, nil
}

func compareDueDate(a, b domain.Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return a.DueDate.Compare(*b.DueDate)
}
