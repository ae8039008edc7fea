// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/reminder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tasktracker"

// Run results recorded on tasktracker_reminder_runs_total.
const (
	RunResultSuccess = "success"
	RunResultFailure = "failure"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	ReminderRuns          *prometheus.CounterVec
	RemindersSent         prometheus.Counter
	ReminderClaimErrors   prometheus.Counter
	ReminderClaimsSkipped prometheus.Counter
	ReminderRunDuration   prometheus.Histogram

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with a fresh registry that
// also carries the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the metrics with reg and serves them from g.
func NewWithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReminderRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_runs_total",
			Help:      "Total number of reminder job runs by result",
		}, []string{"result"}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of reminders claimed and audited",
		}),
		ReminderClaimErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_claim_errors_total",
			Help:      "Total number of reminder candidates that failed to be claimed",
		}),
		ReminderClaimsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_claims_skipped_total",
			Help:      "Total number of reminder candidates already claimed by another run",
		}),
		ReminderRunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_run_duration_seconds",
			Help:      "Duration of reminder job runs",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		}, []string{"method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"method"}),
		gatherer: g,
	}
}

var _ reminder.Observer = (*Metrics)(nil)

// ObserveRun implements reminder.Observer.
func (m *Metrics) ObserveRun(summary reminder.Summary, err error) {
	result := RunResultSuccess
	if err != nil {
		result = RunResultFailure
	}
	m.ReminderRuns.WithLabelValues(result).Inc()
	m.RemindersSent.Add(float64(summary.Sent))
	m.ReminderClaimErrors.Add(float64(summary.Errors))
	m.ReminderClaimsSkipped.Add(float64(summary.Skipped))
	m.ReminderRunDuration.Observe(summary.Duration.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
