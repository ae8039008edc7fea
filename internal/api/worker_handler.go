package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/reminder"
	"github.com/phrazzld/tasktracker-api/internal/worker"
)

// WorkerController is the part of the scheduler exposed over HTTP.
type WorkerController interface {
	IsRunning() bool
	IsJobRegistered(jobID string) bool
	NextRunTime(jobID string) *time.Time
	Interval() time.Duration
	TriggerNow(ctx context.Context, jobID string) (reminder.Summary, error)
}

// ReminderStats reports reminder activity.
type ReminderStats interface {
	Report(ctx context.Context) (*reminder.Stats, error)
	LastReminderSentAt(ctx context.Context) (*time.Time, error)
}

// WorkerHandler serves the /api/worker endpoints.
type WorkerHandler struct {
	scheduler WorkerController
	stats     ReminderStats
}

// NewWorkerHandler creates a new WorkerHandler.
func NewWorkerHandler(scheduler WorkerController, stats ReminderStats) *WorkerHandler {
	return &WorkerHandler{scheduler: scheduler, stats: stats}
}

// Status handles GET /api/worker/status. The last reminder time is
// best-effort: a failed lookup leaves it null.
func (h *WorkerHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := WorkerStatusResponse{
		Running:       h.scheduler.IsRunning(),
		JobRegistered: h.scheduler.IsJobRegistered(worker.ReminderJobID),
		NextRun:       h.scheduler.NextRunTime(worker.ReminderJobID),
		Schedule:      "every " + h.scheduler.Interval().String(),
	}

	last, err := h.stats.LastReminderSentAt(r.Context())
	if err != nil {
		logAPIWarning(r.Context(), "failed to look up last reminder time", err)
	} else {
		resp.LastReminderSent = last
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Trigger handles POST /api/worker/trigger by running the reminder job
// synchronously and returning its summary.
func (h *WorkerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	summary, err := h.scheduler.TriggerNow(r.Context(), worker.ReminderJobID)
	if err != nil {
		if errors.Is(err, reminder.ErrSelectionFailed) || errors.Is(err, worker.ErrJobNotRegistered) {
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Reminder job failed", err,
				shared.WithErrorCode(CodeWorker))
			return
		}
		HandleAPIError(w, r, err, "Reminder job failed")
		return
	}

	message := "Reminder job completed"
	if summary.Interrupted {
		message = "Reminder job interrupted"
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TriggerResponse{
		Message:    message,
		RunID:      summary.RunID,
		StartedAt:  summary.StartedAt,
		DurationMS: summary.Duration.Milliseconds(),
		Found:      summary.Found,
		Sent:       summary.Sent,
		Skipped:    summary.Skipped,
		Errors:     summary.Errors,
	})
}

// Statistics handles GET /api/worker/statistics.
func (h *WorkerHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Report(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute reminder statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
