package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/phrazzld/tasktracker-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

var migrationCommands = []string{"up", "down", "status", "version"}

var errUnknownMigrationCommand = errors.New("unknown migration command")

func isMigrationCommand(cmd string) bool {
	return slices.Contains(migrationCommands, cmd)
}

// slogGooseLogger forwards goose output to slog. Fatalf does not exit; the
// failure is returned to main instead.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// runMigrations executes one goose command against the embedded migrations.
func runMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))
	goose.SetLogger(slogGooseLogger{logger: log})

	if err := postgres.ConfigureGoose(); err != nil {
		return err
	}

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, postgres.MigrationsDir)
	case "down":
		err = goose.DownContext(ctx, db, postgres.MigrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db, postgres.MigrationsDir)
	case "version":
		err = goose.VersionContext(ctx, db, postgres.MigrationsDir)
	default:
		return fmt.Errorf("%w: %q", errUnknownMigrationCommand, command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed")
	return nil
}
