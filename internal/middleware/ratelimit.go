package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"thoughtbox/internal/httputil"

	"golang.org/x/time/rate"
)

// UserRateLimiter hands out one token bucket per user. Dictation calls are
// paid for per request upstream, so they are limited per user rather than
// globally.
type UserRateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewUserRateLimiter allows perMinute requests per user with a burst of the
// same size.
func NewUserRateLimiter(perMinute int) *UserRateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &UserRateLimiter{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
	}
}

// Allow reports whether userID may make a request now.
func (l *UserRateLimiter) Allow(userID string) bool {
	return l.limiterFor(userID).Allow()
}

func (l *UserRateLimiter) limiterFor(userID string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(userID); ok {
		return limiter.(*rate.Limiter)
	}
	// Another goroutine may have stored one first
	actual, _ := l.limiters.LoadOrStore(userID, rate.NewLimiter(l.limit, l.burst))
	return actual.(*rate.Limiter)
}

// retryAfter is how long until the user's next token.
func (l *UserRateLimiter) retryAfter(userID string) time.Duration {
	r := l.limiterFor(userID).Reserve()
	defer r.Cancel()
	return r.Delay()
}

// RateLimit rejects requests over the caller's budget with 429. It must run
// after AuthMiddleware.
func RateLimit(limiter *UserRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := httputil.GetUserID(r)
			if !limiter.Allow(userID) {
				wait := limiter.retryAfter(userID)
				logger.Warn("rate limit exceeded", "user_id", userID, "path", r.URL.Path, "retry_after", wait)
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				httputil.RespondError(w, http.StatusTooManyRequests, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
