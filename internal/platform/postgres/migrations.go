package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// MigrationsTable is the goose version table used by every environment.
const MigrationsTable = "schema_migrations"

// MigrationsFS holds the SQL migrations compiled into the binary.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsDir is the directory inside MigrationsFS that goose reads.
const MigrationsDir = "migrations"

// ConfigureGoose points goose at the embedded migrations. It must be called
// before any goose command runs.
func ConfigureGoose() error {
	goose.SetBaseFS(MigrationsFS)
	goose.SetTableName(MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// MigrateUp applies all pending migrations.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	if err := ConfigureGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, MigrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
