// Package main implements the entry point for the task tracker API server
// and its background reminder worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
)

// runMode selects which halves of the process are started.
type runMode int

const (
	modeAll runMode = iota
	modeAPIOnly
	modeWorkerOnly
)

func (m runMode) String() string {
	switch m {
	case modeAPIOnly:
		return "api-only"
	case modeWorkerOnly:
		return "worker-only"
	default:
		return "all"
	}
}

// options holds the parsed command-line flags.
type options struct {
	configPath string
	migrate    string
	mode       runMode
}

var errConflictingModes = errors.New("-api-only and -worker-only are mutually exclusive")

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// parseFlags parses args into options. Usage output goes to out.
func parseFlags(args []string, out io.Writer) (options, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts options
	var apiOnly, workerOnly bool
	fs.StringVar(&opts.configPath, "config", "", "path to a config file (default: ./config.yaml if present)")
	fs.StringVar(&opts.migrate, "migrate", "", "run a migration command (up, down, status, version) and exit")
	fs.BoolVar(&apiOnly, "api-only", false, "serve HTTP without starting the reminder scheduler")
	fs.BoolVar(&workerOnly, "worker-only", false, "run the reminder scheduler without the HTTP server")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch {
	case apiOnly && workerOnly:
		return options{}, errConflictingModes
	case apiOnly:
		opts.mode = modeAPIOnly
	case workerOnly:
		opts.mode = modeWorkerOnly
	}

	if opts.migrate != "" && !isMigrationCommand(opts.migrate) {
		return options{}, fmt.Errorf("%w: %q", errUnknownMigrationCommand, opts.migrate)
	}
	return opts, nil
}

// run loads configuration, connects to the database and either runs a
// migration command or the application until SIGINT/SIGTERM.
func run(args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("mode", opts.mode.String()),
		slog.Bool("reminders_enabled", cfg.Reminder.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		defer func() { _ = db.Close() }()
		return runMigrations(ctx, db, opts.migrate, log)
	}

	app, err := newApplication(ctx, cfg, log, db, opts.mode)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
