package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// Claim defaults
const (
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = time.Second
)

// Outcome is the result of one claim.
type Outcome int

// Claim outcomes
const (
	// Claimed means this caller set the reminder marker.
	Claimed Outcome = iota + 1
	// NotClaimed means the conditional update matched no row: another run
	// claimed the task first, or it no longer qualifies.
	NotClaimed
	// Failed means the store returned a non-transient error or transient
	// errors exhausted the attempts.
	Failed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Claimed:
		return "claimed"
	case NotClaimed:
		return "not_claimed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ClaimResult is the tagged result of Claimer.Claim. Err is set only when
// Outcome is Failed.
type ClaimResult struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the Sleeper used outside tests.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Claimer transitions one task from unclaimed to claimed-at-now.
type Claimer struct {
	tasks       TaskStore
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
	logger      *slog.Logger
}

// ClaimerOption configures a Claimer.
type ClaimerOption func(*Claimer)

// WithMaxAttempts sets the total number of attempts per claim, including
// the first. Values below 1 are ignored.
func WithMaxAttempts(n int) ClaimerOption {
	return func(c *Claimer) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithRetryBaseDelay sets the delay before the second attempt. Each later
// delay doubles. Non-positive values are ignored.
func WithRetryBaseDelay(d time.Duration) ClaimerOption {
	return func(c *Claimer) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(sleep Sleeper) ClaimerOption {
	return func(c *Claimer) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClaimer creates a Claimer. By default a claim makes 3 attempts with
// delays of 1s and 2s between them.
func NewClaimer(tasks TaskStore, log *slog.Logger, opts ...ClaimerOption) *Claimer {
	if log == nil {
		log = slog.Default()
	}
	c := &Claimer{
		tasks:       tasks,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultRetryBaseDelay,
		sleep:       SleepContext,
		logger:      log.With(slog.String("component", "reminder_claimer")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Claim marks task as reminded at w.Now if its marker is unset or older
// than w.StaleBefore. Both instants come from the run; they are never
// re-derived here. Each attempt commits or rolls back on its own.
func (c *Claimer) Claim(ctx context.Context, task domain.Task, w Window) ClaimResult {
	log := c.logger.With(slog.Int64("task_id", task.ID))
	if runID, ok := RunIDFromContext(ctx); ok {
		log = log.With(slog.String("run_id", runID))
	}
	backoff := retry.WithMaxRetries(uint64(c.maxAttempts-1), retry.NewExponential(c.baseDelay))

	for attempt := 1; ; attempt++ {
		rows, err := c.tasks.ConditionallyMarkReminded(ctx, task.ID, w.Now, w.StaleBefore)
		if err == nil {
			if rows == 0 {
				c.logLostRace(ctx, log, task.ID)
				return ClaimResult{Outcome: NotClaimed, Attempts: attempt}
			}
			return ClaimResult{Outcome: Claimed, Attempts: attempt}
		}

		if !store.IsTransientError(err) {
			log.Error("reminder claim failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return ClaimResult{Outcome: Failed, Attempts: attempt, Err: err}
		}

		delay, stop := backoff.Next()
		if stop {
			log.Error("reminder claim failed after retries",
				slog.Int("attempts", attempt),
				slog.String("error", err.Error()))
			return ClaimResult{
				Outcome:  Failed,
				Attempts: attempt,
				Err:      fmt.Errorf("claim retries exhausted after %d attempts: %w", attempt, err),
			}
		}

		log.Warn("transient error claiming reminder, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return ClaimResult{
				Outcome:  Failed,
				Attempts: attempt,
				Err:      fmt.Errorf("claim retry interrupted: %w (last error: %v)", sleepErr, err),
			}
		}
	}
}

// logLostRace records the state that beat this claim. The refresh is
// diagnostic only and its failure is ignored.
func (c *Claimer) logLostRace(ctx context.Context, log *slog.Logger, taskID int64) {
	if !log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	current, err := c.tasks.Refresh(ctx, taskID)
	if err != nil {
		log.Debug("reminder already claimed", slog.String("refresh_error", err.Error()))
		return
	}
	attrs := []any{}
	if current.ReminderSentAt != nil {
		attrs = append(attrs, slog.Time("reminder_sent_at", *current.ReminderSentAt))
	}
	log.Debug("reminder already claimed", attrs...)
}
