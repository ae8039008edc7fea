package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/reminder"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun(reminder.Summary{Found: 6, Sent: 3, Skipped: 2, Errors: 1, Duration: 2 * time.Second}, nil)
	m.ObserveRun(reminder.Summary{}, reminder.ErrSelectionFailed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderRuns.WithLabelValues(RunResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderRuns.WithLabelValues(RunResultFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RemindersSent))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReminderClaimsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderClaimErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReminderRunDuration))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, http.StatusTooManyRequests, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "429")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRun(reminder.Summary{Sent: 1}, errors.New("x"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tasktracker_reminder_runs_total{result="failure"} 1`)
	assert.Contains(t, body, "tasktracker_reminders_sent_total 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
