//go:build integration

package testdb

import (
	"context"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/ciutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisImage is the server image used by every integration test.
const RedisImage = "redis:7-alpine"

// NewRedis starts a Redis container for one test, or uses
// TASKTRACKER_TEST_REDIS_URL when set, and returns its URL and a
// connected client. Both are cleaned up when the test ends.
func NewRedis(t testing.TB) (string, *redis.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	url := ciutil.TestRedisURL()
	if url == "" {
		ctr, err := tcredis.Run(ctx, RedisImage)
		testcontainers.CleanupContainer(t, ctr)
		require.NoError(t, err, "failed to start redis container")

		url, err = ctr.ConnectionString(ctx)
		require.NoError(t, err, "failed to get redis connection string")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err, "failed to parse redis URL")

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err(), "failed to ping redis")

	return url, client
}
