package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"syscall"

	"github.com/phrazzld/tasktracker-api/internal/api"
	apimw "github.com/phrazzld/tasktracker-api/internal/api/middleware"
	"github.com/phrazzld/tasktracker-api/internal/audit"
	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/phrazzld/tasktracker-api/internal/events"
	"github.com/phrazzld/tasktracker-api/internal/platform/filestore"
	"github.com/phrazzld/tasktracker-api/internal/platform/metrics"
	"github.com/phrazzld/tasktracker-api/internal/platform/postgres"
	platformredis "github.com/phrazzld/tasktracker-api/internal/platform/redis"
	"github.com/phrazzld/tasktracker-api/internal/reminder"
	"github.com/phrazzld/tasktracker-api/internal/service"
	"github.com/phrazzld/tasktracker-api/internal/service/auth"
	"github.com/phrazzld/tasktracker-api/internal/worker"
)

// application holds the shared dependencies of one server process and owns
// their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	mode   runMode

	redis   *platformredis.Client
	limiter apimw.Limiter
	metrics *metrics.Metrics

	jwtService  auth.JWTService
	userService service.UserService
	taskService service.TaskService

	attachmentService service.AttachmentService

	scheduler *worker.Scheduler
	stats     *reminder.StatsReporter
}

// newApplication wires stores, services, the audit pipeline and the
// reminder scheduler. Nothing is started.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	mode runMode,
) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		mode:    mode,
		metrics: metrics.New(),
	}

	userStore := postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	auditStore := postgres.NewPostgresAuditStore(db, logger)
	statsStore := postgres.NewPostgresStatsStore(db, logger)
	attachmentStore := postgres.NewPostgresAttachmentStore(db, logger)

	blobs, err := filestore.New(cfg.Storage.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment storage: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(audit.NewStoreHandler(auditStore))
	emitter.RegisterHandler(service.NewBlobCleanupHandler(blobs, logger))
	auditLogger := audit.NewLogger(emitter, logger)

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.userService, err = service.NewUserService(userStore, db, auth.NewBcryptVerifier(), auditLogger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}
	app.taskService, err = service.NewTaskService(taskStore, db, auditLogger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.attachmentService, err = service.NewAttachmentService(
		taskStore, attachmentStore, blobs, auditLogger, cfg.Storage.MaxUploadBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachment service: %w", err)
	}

	clock := reminder.SystemClock{}
	rc := cfg.Reminder
	runner := reminder.NewRunner(
		clock,
		reminder.NewSelector(taskStore, rc.Window, logger),
		reminder.NewClaimer(taskStore, logger,
			reminder.WithMaxAttempts(rc.MaxAttempts),
			reminder.WithRetryBaseDelay(rc.RetryBaseDelay)),
		auditLogger,
		logger,
		reminder.WithObserver(app.metrics),
		reminder.WithRunTimeout(rc.RunTimeout),
	)
	app.scheduler = worker.NewScheduler(worker.SchedulerConfig{
		Interval:        rc.Interval,
		ShutdownTimeout: rc.ShutdownTimeout,
	}, logger, worker.WithClock(clock))
	app.scheduler.Register(worker.ReminderJobID, runner)
	app.stats = reminder.NewStatsReporter(statsStore, clock, rc.Window)

	if err := app.setupRateLimiting(ctx); err != nil {
		return nil, err
	}

	logger.Info("application initialized", slog.String("mode", mode.String()))
	return app, nil
}

// setupRateLimiting connects to Redis when rate limiting is enabled and a
// URL is configured. An unreachable Redis disables limiting rather than
// failing startup.
func (app *application) setupRateLimiting(ctx context.Context) error {
	if !app.config.RateLimit.Enabled || app.config.Redis.URL == "" {
		app.logger.Info("rate limiting disabled")
		return nil
	}

	client, err := platformredis.New(ctx, app.config.Redis, app.logger)
	if err != nil {
		app.logger.Warn("redis unavailable, rate limiting disabled", slog.String("error", err.Error()))
		return nil
	}
	app.redis = client
	app.limiter = platformredis.NewFixedWindowLimiter(client.Client)
	return nil
}

// startsWorker reports whether this process runs the reminder scheduler.
func (app *application) startsWorker() bool {
	return app.mode != modeAPIOnly && app.config.Reminder.Enabled
}

// workerProbe returns the scheduler for health checks, or nil when this
// process does not run it.
func (app *application) workerProbe() api.WorkerProbe {
	if !app.startsWorker() {
		return nil
	}
	return app.scheduler
}

func (app *application) redisPinger() api.Pinger {
	if app.redis == nil {
		return nil
	}
	return api.PingFunc(app.redis.Health)
}

func (app *application) addr() string {
	return fmt.Sprintf(":%d", app.config.Server.Port)
}

// Run starts the scheduler and HTTP server according to the run mode and
// blocks until ctx ends, then shuts both down.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if app.startsWorker() {
		app.scheduler.Start()
		unregister := app.scheduler.StopOnSignal(os.Interrupt, syscall.SIGTERM)
		defer unregister()
	} else {
		app.logger.Info("reminder scheduler not started",
			slog.String("mode", app.mode.String()),
			slog.Bool("reminders_enabled", app.config.Reminder.Enabled))
	}

	var serveErr error
	if app.mode == modeWorkerOnly {
		<-ctx.Done()
	} else {
		ln, err := net.Listen("tcp", app.addr())
		if err != nil {
			serveErr = fmt.Errorf("failed to listen on %s: %w", app.addr(), err)
		} else {
			serveErr = app.serveHTTP(ctx, app.newHTTPServer(app.setupRouter()), ln)
		}
	}

	return errors.Join(serveErr, app.stopScheduler())
}

// stopScheduler stops the scheduler, waiting at most the configured
// reminder shutdown timeout for an in-flight run.
func (app *application) stopScheduler() error {
	if !app.scheduler.IsRunning() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), app.config.Reminder.ShutdownTimeout)
	defer cancel()
	return app.scheduler.Stop(ctx)
}

// cleanup releases connections held by the application.
func (app *application) cleanup() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
