package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/reminder"
)

// ReminderJobID is the name the reminder runner is registered under.
const ReminderJobID = "reminder_job"

// Scheduler defaults
const (
	DefaultInterval        = time.Hour
	DefaultShutdownTimeout = 30 * time.Second
)

// ErrJobNotRegistered is returned for operations on an unknown job.
var ErrJobNotRegistered = errors.New("job not registered")

// Job is one unit of scheduled work. *reminder.Runner satisfies it.
type Job interface {
	Run(ctx context.Context) (reminder.Summary, error)
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) (reminder.Summary, error)

// Run implements Job.
func (f JobFunc) Run(ctx context.Context) (reminder.Summary, error) {
	return f(ctx)
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// Interval between executions of every registered job.
	Interval time.Duration

	// ShutdownTimeout bounds how long StopOnSignal waits for in-flight work.
	ShutdownTimeout time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:        DefaultInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// scheduledJob is the per-name entry. It outlives re-registration so the
// overlap guard covers executions of a replaced job. job and nextRun are
// guarded by Scheduler.mu.
type scheduledJob struct {
	name     string
	job      Job
	inFlight atomic.Bool
	nextRun  time.Time
}

// dispatchable pairs an entry with the job it held when the tick fired.
type dispatchable struct {
	entry *scheduledJob
	job   Job
}

// Scheduler runs registered jobs every Interval.
type Scheduler struct {
	config SchedulerConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	jobs    map[string]*scheduledJob
	running bool
	// nextTick is when the ticker fires next, as of Start or the last tick.
	nextTick time.Time

	// stopLoop ends the ticker loop; cancelJobs interrupts executions that
	// outlive the shutdown deadline.
	stopLoop   context.CancelFunc
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source used for next-run bookkeeping.
func WithClock(clock reminder.Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.now = clock.Now
		}
	}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(config SchedulerConfig, logger *slog.Logger, opts ...Option) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		config: config,
		logger: logger.With(slog.String("component", "scheduler")),
		now:    time.Now,
		jobs:   make(map[string]*scheduledJob),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds job under name, replacing any job already registered with
// that name. A replaced job's in-flight execution is left to finish, and the
// replacement is not dispatched until it does.
func (s *Scheduler) Register(name string, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		s.logger.Info("replacing registered job", slog.String("job_id", name))
		existing.job = job
		return
	}

	entry := &scheduledJob{name: name, job: job}
	if s.running {
		entry.nextRun = s.nextTick
	}
	s.jobs[name] = entry
}

// Start begins ticking. Calling Start on a running scheduler logs a warning
// and does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running")
		return
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	s.stopLoop = stopLoop
	s.cancelJobs = cancelJobs
	s.running = true

	s.nextTick = s.now().Add(s.config.Interval)
	for _, j := range s.jobs {
		j.nextRun = s.nextTick
	}

	s.wg.Add(1)
	go s.loop(loopCtx, jobCtx)

	s.logger.Info("scheduler started",
		slog.Duration("interval", s.config.Interval),
		slog.Int("jobs", len(s.jobs)))
}

// Stop stops ticking and waits for in-flight executions. If ctx ends first,
// running jobs are canceled and ctx's error is returned. Stopping a stopped
// scheduler is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopLoop, cancelJobs := s.stopLoop, s.cancelJobs
	s.mu.Unlock()

	s.logger.Info("stopping scheduler")
	stopLoop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancelJobs()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		cancelJobs()
		s.logger.Warn("scheduler stop timed out, in-flight jobs canceled",
			slog.String("error", ctx.Err().Error()))
		return fmt.Errorf("failed to stop scheduler: %w", ctx.Err())
	}
}

// StopOnSignal stops the scheduler, bounded by the configured shutdown
// timeout, when one of sigs is received. The returned function unregisters
// the handler.
func (s *Scheduler) StopOnSignal(sigs ...os.Signal) (unregister func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			s.logger.Info("signal received, stopping scheduler", slog.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
			defer cancel()
			if err := s.Stop(ctx); err != nil {
				s.logger.Error("scheduler did not stop cleanly", slog.String("error", err.Error()))
			}
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// IsJobRegistered reports whether a job named jobID is registered.
func (s *Scheduler) IsJobRegistered(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobID]
	return ok
}

// NextRunTime returns the next scheduled execution of jobID. It returns nil
// when the scheduler is stopped or the job is unknown.
func (s *Scheduler) NextRunTime(jobID string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || !s.running || j.nextRun.IsZero() {
		return nil
	}
	next := j.nextRun
	return &next
}

// Interval returns the configured tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.config.Interval
}

// TriggerNow runs jobID on the caller's goroutine and returns its result.
// It ignores the overlap guard, so it may run concurrently with a scheduled
// execution.
func (s *Scheduler) TriggerNow(ctx context.Context, jobID string) (reminder.Summary, error) {
	s.mu.Lock()
	var job Job
	if j, ok := s.jobs[jobID]; ok {
		job = j.job
	}
	s.mu.Unlock()
	if job == nil {
		return reminder.Summary{}, fmt.Errorf("%w: %s", ErrJobNotRegistered, jobID)
	}

	s.logger.Info("manual job trigger", slog.String("job_id", jobID))
	return job.Run(ctx)
}

func (s *Scheduler) loop(loopCtx, jobCtx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			for _, d := range s.snapshot() {
				s.dispatch(jobCtx, d)
			}
		}
	}
}

// snapshot returns the registered jobs in name order and advances their
// next-run time.
func (s *Scheduler) snapshot() []dispatchable {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTick = s.now().Add(s.config.Interval)
	jobs := make([]dispatchable, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.nextRun = s.nextTick
		jobs = append(jobs, dispatchable{entry: j, job: j.job})
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].entry.name < jobs[b].entry.name })
	return jobs
}

func (s *Scheduler) dispatch(ctx context.Context, d dispatchable) {
	j := d.entry
	log := s.logger.With(slog.String("job_id", j.name))
	if !j.inFlight.CompareAndSwap(false, true) {
		log.Warn("previous execution still running, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer j.inFlight.Store(false)
		defer func() {
			if p := recover(); p != nil {
				log.Error("panic in scheduled job", slog.Any("panic", p))
			}
		}()

		if _, err := d.job.Run(ctx); err != nil {
			log.Error("scheduled job failed", slog.String("error", err.Error()))
		}
	}()
}
