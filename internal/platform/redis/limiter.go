package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every counter written by FixedWindowLimiter.
const KeyPrefix = "rate_limit"

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter counts requests per key in fixed, aligned windows.
// Counters live at rate_limit:{key}:{window index} and expire with the
// window.
type FixedWindowLimiter struct {
	client redis.Cmdable
	now    func() time.Time
}

// LimiterOption configures a FixedWindowLimiter.
type LimiterOption func(*FixedWindowLimiter)

// WithLimiterClock overrides the time source.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) {
		l.now = now
	}
}

// NewFixedWindowLimiter creates a limiter. A nil client allows every request.
func NewFixedWindowLimiter(client redis.Cmdable, opts ...LimiterOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{client: client, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records one request for key and reports whether it fits in limit
// requests per window. On a Redis error the request is allowed and the
// error returned for logging.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	allow := Decision{Allowed: true, Limit: limit, Remaining: limit}
	if l.client == nil || limit <= 0 || window < time.Second {
		return allow, nil
	}

	windowSeconds := int64(window / time.Second)
	nowSeconds := l.now().Unix()
	index := nowSeconds / windowSeconds
	counterKey := WindowKey(key, index)

	count, err := l.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return allow, fmt.Errorf("rate limit increment for %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, counterKey, window).Err(); err != nil {
			return allow, fmt.Errorf("rate limit expire for %s: %w", key, err)
		}
	}

	if count > int64(limit) {
		retryAfter := (index+1)*windowSeconds - nowSeconds
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			RetryAfter: time.Duration(retryAfter) * time.Second,
		}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
	}, nil
}

// WindowKey returns the counter key for key in the given window index.
func WindowKey(key string, index int64) string {
	return fmt.Sprintf("%s:%s:%d", KeyPrefix, key, index)
}
