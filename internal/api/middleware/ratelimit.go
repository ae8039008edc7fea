package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	platformredis "github.com/phrazzld/tasktracker-api/internal/platform/redis"
	"github.com/phrazzld/tasktracker-api/internal/redact"
)

// Limiter decides whether one more request fits under a limit.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (platformredis.Decision, error)
}

// RateLimit returns middleware allowing limit requests per window for each
// client. Authenticated clients are keyed by user ID, anonymous ones by
// remote address. Limiter failures let the request through.
func RateLimit(limiter Limiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			decision, err := limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				logger.FromContext(r.Context()).Warn("rate limiter unavailable, allowing request",
					slog.String("key", key),
					slog.String("error", redact.Error(err)))
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests",
					shared.WithErrorCode("RATE_LIMITED"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller for rate limiting: user:{id} when
// authenticated, otherwise ip:{addr}.
func ClientKey(r *http.Request) string {
	if userID, ok := shared.GetUserID(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
