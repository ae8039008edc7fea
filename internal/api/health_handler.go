package api

import (
	"context"
	"net/http"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/worker"
)

// Health check statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

// DatabasePingTimeout bounds the database health check.
const DatabasePingTimeout = 5 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext implements Pinger.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// WorkerProbe is the part of the scheduler inspected by health checks.
type WorkerProbe interface {
	IsRunning() bool
	IsJobRegistered(jobID string) bool
}

// HealthHandler serves the /api/health endpoints.
type HealthHandler struct {
	db     Pinger
	worker WorkerProbe
	redis  Pinger
	now    func() time.Time
}

// NewHealthHandler creates a HealthHandler. A nil worker means the process
// runs without the scheduler; a nil redis means rate limiting is off. Both
// then report "disabled".
func NewHealthHandler(db Pinger, probe WorkerProbe, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, worker: probe, redis: redis, now: time.Now}
}

// Health handles GET /api/health: every component, 503 if the database or
// worker is unhealthy. Redis failures are reported but not fatal since rate
// limiting falls open.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]HealthCheck{
		"api":      {Status: StatusHealthy},
		"database": h.checkDatabase(r.Context()),
		"worker":   h.checkWorker(),
		"redis":    h.checkRedis(r.Context()),
	}
	overall := StatusHealthy
	for _, name := range []string{"database", "worker"} {
		if checks[name].Status == StatusUnhealthy {
			overall = StatusUnhealthy
		}
	}
	h.respond(w, r, overall, checks)
}

// API handles GET /api/health/api.
func (h *HealthHandler) API(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, StatusHealthy, nil)
}

// Database handles GET /api/health/database.
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	check := h.checkDatabase(r.Context())
	h.respond(w, r, check.Status, map[string]HealthCheck{"database": check})
}

// Worker handles GET /api/health/worker. The worker is healthy when the
// scheduler is running and the reminder job is registered.
func (h *HealthHandler) Worker(w http.ResponseWriter, r *http.Request) {
	check := h.checkWorker()
	status := check.Status
	if status == StatusDisabled {
		status = StatusHealthy
	}
	h.respond(w, r, status, map[string]HealthCheck{"worker": check})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	if h.db == nil {
		return HealthCheck{Status: StatusUnhealthy, Message: "database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, DatabasePingTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logAPIWarning(ctx, "database health check failed", err)
		return HealthCheck{Status: StatusUnhealthy, Message: "database unreachable"}
	}
	return HealthCheck{Status: StatusHealthy}
}

func (h *HealthHandler) checkWorker() HealthCheck {
	switch {
	case h.worker == nil:
		return HealthCheck{Status: StatusDisabled}
	case !h.worker.IsRunning():
		return HealthCheck{Status: StatusUnhealthy, Message: "scheduler not running"}
	case !h.worker.IsJobRegistered(worker.ReminderJobID):
		return HealthCheck{Status: StatusUnhealthy, Message: "reminder job not registered"}
	default:
		return HealthCheck{Status: StatusHealthy}
	}
}

func (h *HealthHandler) checkRedis(ctx context.Context) HealthCheck {
	if h.redis == nil {
		return HealthCheck{Status: StatusDisabled}
	}
	ctx, cancel := context.WithTimeout(ctx, DatabasePingTimeout)
	defer cancel()
	if err := h.redis.PingContext(ctx); err != nil {
		return HealthCheck{Status: StatusUnhealthy, Message: "redis unreachable"}
	}
	return HealthCheck{Status: StatusHealthy}
}

func (h *HealthHandler) respond(w http.ResponseWriter, r *http.Request, status string, checks map[string]HealthCheck) {
	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, code, HealthResponse{
		Status:    status,
		Timestamp: h.now().UTC(),
		Checks:    checks,
	})
}
