//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/tasktracker-api/internal/ciutil"
	"github.com/phrazzld/tasktracker-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresImage is the server image used by every integration test.
const PostgresImage = "postgres:16-alpine"

// TestTimeout bounds container startup and individual database calls in tests.
const TestTimeout = 60 * time.Second

const truncateAll = `TRUNCATE audit_events, attachments, tasks, users RESTART IDENTITY CASCADE`

// Postgres is a running container with the schema migrated.
type Postgres struct {
	Container *tcpostgres.PostgresContainer
	DB        *sql.DB
	URL       string
}

// StartPostgres starts a container, opens a pool with the pgx driver and
// applies the embedded migrations. The caller owns Close.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	ctr, err := tcpostgres.Run(ctx, PostgresImage,
		tcpostgres.WithDatabase("tasktracker_test"),
		tcpostgres.WithUsername("tasktracker"),
		tcpostgres.WithPassword("tasktracker"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetLogger(goose.NopLogger())
	if err := postgres.MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		_ = testcontainers.TerminateContainer(ctr)
		return nil, err
	}

	return &Postgres{Container: ctr, DB: db, URL: url}, nil
}

// Close closes the pool and terminates the container.
func (p *Postgres) Close() error {
	_ = p.DB.Close()
	return testcontainers.TerminateContainer(p.Container)
}

// OpenExternal opens the database at url, applies the embedded migrations
// and empties every table. The caller owns Close.
func OpenExternal(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetLogger(goose.NopLogger())
	if err := postgres.MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, truncateAll); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to truncate tables: %w", err)
	}
	return db, nil
}

// NewPostgres returns a migrated, empty database for one test and registers
// cleanup. It uses the database named by TASKTRACKER_TEST_DB_URL (or
// DATABASE_URL) when set and starts a container otherwise.
func NewPostgres(t testing.TB) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	if url := ciutil.TestDatabaseURL(nil); url != "" {
		db, err := OpenExternal(ctx, url)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return db
	}

	pg, err := StartPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Close(); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	return pg.DB
}

// Truncate removes all rows from every application table.
func Truncate(t testing.TB, db *sql.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), truncateAll)
	require.NoError(t, err, "failed to truncate tables")
}
