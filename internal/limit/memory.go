// memory.go -- In-process fixed-window limiter.
//
// Good enough for a single instance; use RedisLimiter when running more than
// one replica, since each process would otherwise grant the full budget.
package limit

import (
	"context"
	"sync"
	"time"
)

// record holds per-key counter state for one fixed window.
type record struct {
	windowStart time.Time
	count       int
}

// MemoryLimiter counts requests per key in consecutive fixed windows.
//
// Expired records are dropped lazily on access; Sweep (run periodically from
// main) reclaims records for keys that never return. The clock is injectable
// for tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record

	now   func() time.Time
	grace time.Duration // how long past window end a record is kept
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock replaces the limiter's time source. Test hook.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) { l.now = now }
}

// WithGrace sets how long an expired window's record survives before eviction.
func WithGrace(d time.Duration) MemoryOption {
	return func(l *MemoryLimiter) { l.grace = d }
}

// NewMemoryLimiter returns a limiter with an empty record table.
// Default grace period is one minute.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		records: make(map[string]*record),
		now:     time.Now,
		grace:   time.Minute,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records one request for key and reports whether it fits the policy.
// Never returns an error; the signature matches the Limiter interface.
func (l *MemoryLimiter) Check(_ context.Context, key string, p Policy) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || !now.Before(rec.windowStart.Add(p.Window)) {
		// No record, or its window has ended -- start a fresh window.
		rec = &record{windowStart: now}
		l.records[key] = rec
	}
	rec.count++

	remaining := p.Limit - rec.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   rec.count <= p.Limit,
		Remaining: remaining,
		Reset:     rec.windowStart.Add(p.Window),
	}, nil
}

// Len reports the number of live records. Test and metrics hook.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// sweepBatch bounds how many records one locked pass may examine, so a sweep
// over a large table never holds the mutex for the whole scan.
const sweepBatch = 256

// Sweep evicts records whose window ended more than the grace period ago,
// given the window length they were counted under. Deletion runs in bounded
// batches with the lock released between them, so request traffic is never
// stalled behind a full-table pass. Returns the number of records evicted.
func (l *MemoryLimiter) Sweep(window time.Duration) int {
	cutoff := l.now().Add(-window - l.grace)

	// Snapshot the key set first; the batched passes below re-check each
	// record before deleting, so keys touched in the meantime survive.
	l.mu.Lock()
	keys := make([]string, 0, len(l.records))
	for k := range l.records {
		keys = append(keys, k)
	}
	l.mu.Unlock()

	evicted := 0
	for start := 0; start < len(keys); start += sweepBatch {
		end := min(start+sweepBatch, len(keys))
		l.mu.Lock()
		for _, k := range keys[start:end] {
			if rec, ok := l.records[k]; ok && rec.windowStart.Before(cutoff) {
				delete(l.records, k)
				evicted++
			}
		}
		l.mu.Unlock()
	}
	return evicted
}
