// limit.go -- Shared types for the fixed-window rate limiter.
//
// Two backends implement Limiter: MemoryLimiter (single instance) and
// RedisLimiter (shared state for horizontally scaled deployments).
// "Rate limited" is an ordinary Result, not an error -- errors are reserved
// for backend infrastructure failures.
package limit

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrUnavailable is wrapped by backend errors when the limiter's store cannot
// be reached. Callers use errors.Is to decide whether to fail open.
var ErrUnavailable = errors.New("rate limit store unavailable")

// Policy defines the fixed-window budget for a rate-limited action.
type Policy struct {
	Limit  int           // requests allowed per window
	Window time.Duration // fixed window length
}

// Result is the outcome of a single check-and-increment.
type Result struct {
	Allowed   bool
	Remaining int       // requests left in the current window, never negative
	Reset     time.Time // when the current window ends
}

// Limiter checks and records one request for the given key.
// Each call is atomic with respect to the same key: concurrent callers never
// lose increments. Satisfied by *MemoryLimiter and *RedisLimiter.
type Limiter interface {
	Check(ctx context.Context, key string, p Policy) (Result, error)
}

// ResponseHeaders projects a Result into the rate-limit response headers.
// Reset-After is whole seconds until the window ends, rounded up and clamped
// to zero so a just-expired window never yields a negative value.
func ResponseHeaders(res Result, now time.Time) map[string]string {
	after := res.Reset.Sub(now)
	secs := int64((after + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return map[string]string{
		"X-RateLimit-Remaining":   strconv.Itoa(res.Remaining),
		"X-RateLimit-Reset-After": strconv.FormatInt(secs, 10),
	}
}
