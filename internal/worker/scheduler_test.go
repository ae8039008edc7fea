package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/reminder"
	"github.com/phrazzld/tasktracker-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 10 * time.Millisecond

func newTestScheduler(t *testing.T, interval time.Duration, opts ...Option) (*Scheduler, *testutils.TestSlogHandler) {
	t.Helper()
	logger, handler := testutils.NewTestLogger()
	s := NewScheduler(SchedulerConfig{Interval: interval, ShutdownTimeout: time.Second}, logger, opts...)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, handler
}

// countingJob counts executions and optionally blocks until released.
type countingJob struct {
	runs    atomic.Int32
	release chan struct{}
	err     error
}

func (j *countingJob) Run(ctx context.Context) (reminder.Summary, error) {
	j.runs.Add(1)
	if j.release != nil {
		select {
		case <-j.release:
		case <-ctx.Done():
			return reminder.Summary{}, ctx.Err()
		}
	}
	return reminder.Summary{Sent: 1}, j.err
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, nil)
	assert.Equal(t, DefaultInterval, s.Interval())
	assert.Equal(t, DefaultShutdownTimeout, s.config.ShutdownTimeout)
	assert.False(t, s.IsRunning())
}

func TestScheduler_RunsJobsOnInterval(t *testing.T) {
	s, _ := newTestScheduler(t, tick)
	job := &countingJob{}
	s.Register(ReminderJobID, job)

	s.Start()
	require.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, tick)
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())

	stopped := job.runs.Load()
	time.Sleep(5 * tick)
	assert.Equal(t, stopped, job.runs.Load(), "no executions after Stop")
}

func TestScheduler_SkipsOverlappingTicks(t *testing.T) {
	s, handler := newTestScheduler(t, tick)
	job := &countingJob{release: make(chan struct{})}
	s.Register(ReminderJobID, job)

	s.Start()
	require.Eventually(t, func() bool {
		return len(handler.EntriesWithMessage("previous execution still running, skipping tick")) >= 2
	}, time.Second, tick)
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.release)
	require.Eventually(t, func() bool { return job.runs.Load() >= 2 }, time.Second, tick)
}

func TestScheduler_StartTwiceWarns(t *testing.T) {
	s, handler := newTestScheduler(t, time.Hour)
	s.Start()
	s.Start()

	assert.Len(t, handler.EntriesWithMessage("scheduler already running"), 1)
	assert.True(t, s.IsRunning())
}

func TestScheduler_StopWaitsForInFlightRun(t *testing.T) {
	s, _ := newTestScheduler(t, tick)
	var finished atomic.Bool
	s.Register(ReminderJobID, JobFunc(func(ctx context.Context) (reminder.Summary, error) {
		time.Sleep(5 * tick)
		finished.Store(true)
		return reminder.Summary{}, nil
	}))

	s.Start()
	time.Sleep(2 * tick)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load())
}

func TestScheduler_StopTimeoutCancelsJobs(t *testing.T) {
	s, _ := newTestScheduler(t, tick)
	canceled := make(chan struct{})
	s.Register(ReminderJobID, JobFunc(func(ctx context.Context) (reminder.Summary, error) {
		<-ctx.Done()
		close(canceled)
		return reminder.Summary{}, ctx.Err()
	}))

	s.Start()
	time.Sleep(3 * tick)

	ctx, cancel := context.WithTimeout(context.Background(), tick)
	defer cancel()
	err := s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("in-flight job was not canceled")
	}
}

func TestScheduler_StopWhenStopped(t *testing.T) {
	s, _ := newTestScheduler(t, time.Hour)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_Register(t *testing.T) {
	s, _ := newTestScheduler(t, tick)
	first := &countingJob{}
	second := &countingJob{}

	assert.False(t, s.IsJobRegistered(ReminderJobID))
	s.Register(ReminderJobID, first)
	s.Register(ReminderJobID, second)
	assert.True(t, s.IsJobRegistered(ReminderJobID))

	s.Start()
	require.Eventually(t, func() bool { return second.runs.Load() >= 1 }, time.Second, tick)
	assert.Zero(t, first.runs.Load(), "re-registering replaces the job")
}

func TestScheduler_ReRegisterKeepsOverlapGuard(t *testing.T) {
	s, handler := newTestScheduler(t, tick)

	var active, maxActive atomic.Int32
	release := make(chan struct{})
	blocking := func(ctx context.Context) (reminder.Summary, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			cur := maxActive.Load()
			if n <= cur || maxActive.CompareAndSwap(cur, n) {
				break
			}
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return reminder.Summary{}, nil
	}

	s.Register(ReminderJobID, JobFunc(blocking))
	s.Start()
	require.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, tick)

	s.Register(ReminderJobID, JobFunc(blocking))
	require.Eventually(t, func() bool {
		return len(handler.EntriesWithMessage("previous execution still running, skipping tick")) >= 2
	}, time.Second, tick)
	assert.Equal(t, int32(1), maxActive.Load(), "replacement must wait for the running execution")

	close(release)
}

func TestScheduler_RegisterWhileRunningFollowsTicker(t *testing.T) {
	clock := reminder.NewFixedClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
	s, _ := newTestScheduler(t, time.Hour, WithClock(clock))
	s.Register(ReminderJobID, &countingJob{})
	s.Start()

	clock.Advance(20 * time.Minute)
	s.Register("cleanup_job", &countingJob{})
	s.Register(ReminderJobID, &countingJob{})

	want := clock.Now().Add(-20 * time.Minute).Add(time.Hour)
	require.NotNil(t, s.NextRunTime("cleanup_job"))
	assert.Equal(t, want, *s.NextRunTime("cleanup_job"))
	assert.Equal(t, want, *s.NextRunTime(ReminderJobID))
}

func TestScheduler_NextRunTime(t *testing.T) {
	clock := reminder.NewFixedClock(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC))
	s, _ := newTestScheduler(t, time.Hour, WithClock(clock))
	s.Register(ReminderJobID, &countingJob{})

	assert.Nil(t, s.NextRunTime(ReminderJobID), "stopped scheduler has no next run")

	s.Start()
	next := s.NextRunTime(ReminderJobID)
	require.NotNil(t, next)
	assert.Equal(t, clock.Now().Add(time.Hour), *next)
	assert.Nil(t, s.NextRunTime("unknown"))
}

func TestScheduler_TriggerNow(t *testing.T) {
	s, _ := newTestScheduler(t, time.Hour)

	t.Run("unknown job", func(t *testing.T) {
		_, err := s.TriggerNow(context.Background(), ReminderJobID)
		assert.ErrorIs(t, err, ErrJobNotRegistered)
	})

	t.Run("runs synchronously without starting", func(t *testing.T) {
		job := &countingJob{}
		s.Register(ReminderJobID, job)

		summary, err := s.TriggerNow(context.Background(), ReminderJobID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Sent)
		assert.Equal(t, int32(1), job.runs.Load())
		assert.False(t, s.IsRunning())
	})

	t.Run("returns job errors", func(t *testing.T) {
		s.Register(ReminderJobID, &countingJob{err: reminder.ErrSelectionFailed})
		_, err := s.TriggerNow(context.Background(), ReminderJobID)
		assert.ErrorIs(t, err, reminder.ErrSelectionFailed)
	})

	t.Run("bypasses overlap guard", func(t *testing.T) {
		job := &countingJob{release: make(chan struct{})}
		s.Register(ReminderJobID, job)
		s.jobs[ReminderJobID].inFlight.Store(true)

		close(job.release)
		_, err := s.TriggerNow(context.Background(), ReminderJobID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), job.runs.Load())
	})
}

func TestScheduler_RecoversJobPanics(t *testing.T) {
	s, handler := newTestScheduler(t, tick)
	var runs atomic.Int32
	s.Register(ReminderJobID, JobFunc(func(ctx context.Context) (reminder.Summary, error) {
		runs.Add(1)
		panic("boom")
	}))

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, tick)
	assert.NotEmpty(t, handler.EntriesWithMessage("panic in scheduled job"))
}

func TestScheduler_LogsJobErrors(t *testing.T) {
	s, handler := newTestScheduler(t, tick)
	s.Register(ReminderJobID, &countingJob{err: errors.New("selection down")})

	s.Start()
	require.Eventually(t, func() bool {
		return len(handler.EntriesWithMessage("scheduled job failed")) > 0
	}, time.Second, tick)
}

func TestScheduler_StopOnSignal(t *testing.T) {
	s, _ := newTestScheduler(t, time.Hour)
	s.Start()

	unregister := s.StopOnSignal(syscall.SIGUSR1)
	defer unregister()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	require.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, tick)
}
