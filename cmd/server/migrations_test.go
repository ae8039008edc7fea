package main

import (
	"context"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMigrationCommand(t *testing.T) {
	for _, cmd := range []string{"up", "down", "status", "version"} {
		assert.True(t, isMigrationCommand(cmd), cmd)
	}
	assert.False(t, isMigrationCommand("reset"))
	assert.False(t, isMigrationCommand(""))
}

func TestRunMigrations_UnknownCommand(t *testing.T) {
	log, _ := testutils.NewTestLogger()
	err := runMigrations(context.Background(), nil, "redo", log)
	assert.ErrorIs(t, err, errUnknownMigrationCommand)
}

func TestSlogGooseLogger(t *testing.T) {
	log, handler := testutils.NewTestLogger()
	l := slogGooseLogger{logger: log}

	l.Printf("applied %d migrations", 3)
	l.Fatalf("migration %s failed", "00002")

	entries := handler.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "applied 3 migrations", entries[0]["message"])
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "migration 00002 failed", entries[1]["message"])
	assert.Equal(t, "ERROR", entries[1]["level"])
}
