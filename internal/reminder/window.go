package reminder

import (
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// DefaultWindow is both the look-ahead for due dates and the age after
// which a previous reminder is considered stale.
const DefaultWindow = 24 * time.Hour

// Window is the set of instants derived once per run and shared by the
// selector and every claim in that run.
type Window struct {
	Now         time.Time
	End         time.Time
	StaleBefore time.Time
}

// NewWindow computes the window for now. A non-positive span uses DefaultWindow.
func NewWindow(now time.Time, span time.Duration) Window {
	if span <= 0 {
		span = DefaultWindow
	}
	return Window{
		Now:         now,
		End:         now.Add(span),
		StaleBefore: now.Add(-span),
	}
}

// IsCandidate reports whether task needs a reminder in this window.
// Both window bounds are inclusive; the staleness bound is exclusive.
func (w Window) IsCandidate(task domain.Task) bool {
	if task.DueDate == nil {
		return false
	}
	due := *task.DueDate
	if due.Before(w.Now) || due.After(w.End) {
		return false
	}
	return w.IsStale(task.ReminderSentAt)
}

// IsStale reports whether a reminder marker permits a new claim.
func (w Window) IsStale(reminderSentAt *time.Time) bool {
	return reminderSentAt == nil || reminderSentAt.Before(w.StaleBefore)
}
