// redis.go -- Redis-backed fixed-window limiter.
//
// Counters live in Redis so every replica sees the same budget. Each window is
// one key with a TTL; Redis expiry is the eviction mechanism, no sweeping
// needed. INCR is atomic server-side, which gives the per-key
// check-and-increment guarantee without any client locking.
package limit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter on a shared Redis instance.
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisClient connects to Redis and verifies connectivity with a ping.
// Call once at startup; the returned client is safe for concurrent use.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// NewRedisLimiter wraps an existing client. The client is shared with any
// other Redis-backed components and closed by the caller.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Check increments the key's window counter and reports the verdict.
// Infra failures wrap ErrUnavailable so callers can choose to fail open.
func (l *RedisLimiter) Check(ctx context.Context, key string, p Policy) (Result, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key

	// INCR creates the key at 1 if absent; ExpireNX arms the TTL only on the
	// window's first request, so later hits don't push the reset forward.
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, p.Window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	count := int(incr.Val())
	remaining := p.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	// PTTL can only be negative if the key expired between pipeline commands;
	// treat that as a window ending now.
	reset := now
	if d := ttl.Val(); d > 0 {
		reset = now.Add(d)
	}

	return Result{
		Allowed:   count <= p.Limit,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}
