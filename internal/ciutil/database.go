package ciutil

import "log/slog"

// TestDatabaseURL returns an externally provided test database URL,
// preferring TASKTRACKER_TEST_DB_URL over DATABASE_URL. Empty means tests
// should start their own container.
func TestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvTestDatabaseURL, EnvDatabaseURL}, "", logger)
}

// TestRedisURL returns an externally provided test Redis URL, or empty.
func TestRedisURL() string {
	return GetEnvWithFallbacks([]string{EnvTestRedisURL}, "", nil)
}
