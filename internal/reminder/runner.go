package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasktracker-api/internal/audit"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
)

// ErrSelectionFailed is returned by Run when candidates could not be enumerated.
var ErrSelectionFailed = errors.New("reminder selection failed")

// Summary reports one run.
type Summary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"-"`
	Found       int           `json:"found"`
	Sent        int           `json:"sent"`
	Skipped     int           `json:"skipped"`
	Errors      int           `json:"errors"`
	Interrupted bool          `json:"interrupted,omitempty"`
}

// Observer receives every finished run, including runs whose selection
// failed. Implementations must not block.
type Observer interface {
	ObserveRun(summary Summary, err error)
}

// Runner executes the reminder job once per call to Run.
type Runner struct {
	clock      Clock
	selector   *Selector
	claimer    *Claimer
	audit      audit.Sink
	observer   Observer
	runTimeout time.Duration
	logger     *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithObserver reports finished runs to o.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithRunTimeout bounds each run. Zero leaves runs unbounded.
func WithRunTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.runTimeout = d
		}
	}
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(
	clock Clock,
	selector *Selector,
	claimer *Claimer,
	sink audit.Sink,
	log *slog.Logger,
	opts ...RunnerOption,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{
		clock:    clock,
		selector: selector,
		claimer:  claimer,
		audit:    sink,
		logger:   log.With(slog.String("component", "reminder_runner")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one execution: select, then claim and audit each candidate
// in due-date order. Per-task failures are counted, never returned; only a
// selection failure aborts the run with an error wrapping
// ErrSelectionFailed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:     uuid.NewString(),
		StartedAt: r.clock.Now(),
	}

	runLog := r.logger.With(slog.String("run_id", summary.RunID))
	ctx = logger.WithLogger(ctx, runLog)
	ctx = WithRunID(ctx, summary.RunID)

	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	window := r.selector.Window(summary.StartedAt)
	runLog.Info("reminder run started",
		slog.Time("now", window.Now),
		slog.Time("window_end", window.End))

	candidates, err := r.selector.Select(ctx, window)
	if err != nil {
		summary.Duration = r.clock.Now().Sub(summary.StartedAt)
		err = fmt.Errorf("%w: %w", ErrSelectionFailed, err)
		runLog.Error("reminder run aborted", slog.String("error", err.Error()))
		r.observe(summary, err)
		return summary, err
	}
	summary.Found = len(candidates)

	for _, task := range candidates {
		if ctx.Err() != nil {
			summary.Interrupted = true
			summary.Errors += summary.Found - summary.Sent - summary.Skipped - summary.Errors
			runLog.Warn("reminder run stopped before processing all candidates",
				slog.String("error", ctx.Err().Error()))
			break
		}

		switch r.process(ctx, runLog, summary.RunID, task, window) {
		case Claimed:
			summary.Sent++
		case NotClaimed:
			summary.Skipped++
		default:
			summary.Errors++
		}
	}

	summary.Duration = r.clock.Now().Sub(summary.StartedAt)
	runLog.Info("reminder run completed",
		slog.Int("found", summary.Found),
		slog.Int("sent", summary.Sent),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
		slog.Duration("duration", summary.Duration))

	r.observe(summary, nil)
	return summary, nil
}

// process claims one candidate and audits a successful claim. A panic is
// contained here and reported as Failed.
func (r *Runner) process(
	ctx context.Context,
	log *slog.Logger,
	runID string,
	task domain.Task,
	window Window,
) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while processing reminder candidate",
				slog.Int64("task_id", task.ID),
				slog.Any("panic", p))
			outcome = Failed
		}
	}()

	result := r.claimer.Claim(ctx, task, window)
	if result.Outcome != Claimed {
		return result.Outcome
	}

	r.appendAudit(ctx, log, runID, task)

	log.Info("reminder sent",
		slog.Int64("task_id", task.ID),
		slog.Int64("owner_user_id", task.OwnerUserID),
		slog.Int("attempts", result.Attempts))

	return Claimed
}

// appendAudit records REMINDER_SENT. The claim is already committed, so
// nothing raised by the sink may change the outcome.
func (r *Runner) appendAudit(ctx context.Context, log *slog.Logger, runID string, task domain.Task) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while recording reminder audit event",
				slog.Int64("task_id", task.ID),
				slog.Any("panic", p))
		}
	}()

	r.audit.Append(ctx,
		domain.AuditActionReminderSent,
		nil,
		domain.AuditResourceReminder,
		strconv.FormatInt(task.ID, 10),
		reminderMetadata(runID, task),
	)
}

func (r *Runner) observe(summary Summary, err error) {
	if r.observer != nil {
		r.observer.ObserveRun(summary, err)
	}
}

func reminderMetadata(runID string, task domain.Task) map[string]any {
	metadata := map[string]any{
		"task_id":       task.ID,
		"run_id":        runID,
		"title":         task.Title,
		"owner_user_id": task.OwnerUserID,
	}
	if task.DueDate != nil {
		metadata["due_date"] = task.DueDate.UTC().Format(time.RFC3339)
	}
	return metadata
}
