package redis

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowKey(t *testing.T) {
	assert.Equal(t, "rate_limit:user:7:29000", WindowKey("user:7", 29000))
}

func TestFixedWindowLimiter_NilClientAllows(t *testing.T) {
	l := NewFixedWindowLimiter(nil)

	d, err := l.Allow(context.Background(), "ip:10.0.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 5, d.Remaining)
}

func TestFixedWindowLimiter_RedisErrorAllows(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	l := NewFixedWindowLimiter(client)

	d, err := l.Allow(context.Background(), "ip:10.0.0.1", 5, time.Minute)
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}

func TestNew_EmptyURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_BadURL(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"}, nil)
	assert.Error(t, err)
	assert.Nil(t, c)
}
