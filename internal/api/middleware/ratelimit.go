package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/cache"
	"github.com/kiranshivaraju/agentops/internal/metrics"
)

// KeyFunc returns the identity a request is counted against. Returning false
// skips rate limiting for the request.
type KeyFunc func(r *http.Request) (string, bool)

// RateLimit provides fixed-window rate limiting over a Cache.
type RateLimit struct {
	cache  cache.Cache
	scope  string
	limit  int
	window time.Duration
	key    KeyFunc
	now    func() time.Time
}

// NewRateLimit creates a RateLimit allowing limit requests per window for
// each identity returned by key.
func NewRateLimit(c cache.Cache, scope string, limit int, window time.Duration, key KeyFunc) *RateLimit {
	return &RateLimit{
		cache:  c,
		scope:  scope,
		limit:  limit,
		window: window,
		key:    key,
		now:    time.Now,
	}
}

func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := rl.key(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(rl.scope, id), rl.window)
		if err != nil {
			// Fail open
			slog.Warn("rate limit counter unavailable", "limiter", rl.scope, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		retryAfter := int(rl.window.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(rl.window).Unix(), 10))

		if count > int64(rl.limit) {
			metrics.RateLimitHits.WithLabelValues(rl.scope).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			response.Error(w, http.StatusTooManyRequests,
				response.CodeRateLimitExceeded, "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ByClientIP counts requests per remote address. It expects chi's RealIP
// middleware to have normalized RemoteAddr.
func ByClientIP(r *http.Request) (string, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host, host != ""
}

// ByAPIKey counts requests per authenticated API key.
func ByAPIKey(r *http.Request) (string, bool) {
	return GetAPIKeyID(r)
}
