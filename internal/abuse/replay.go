// replay.go -- Optional single-use enforcement for load tokens.
//
// A valid token can otherwise be replayed for the whole validity window. When
// single-use is enabled, each presented token goes through a stable bloom
// filter: bounded memory for an unbounded token stream, at the cost of a
// small false-positive rate (a legitimate first presentation occasionally
// reads as seen). Acceptable for abuse defense; the client just reloads the
// form. There are no false negatives -- a replayed token is always caught
// while it remains in the filter's horizon.
package abuse

import (
	"sync"

	boom "github.com/tylertreat/BoomFilters"
)

const (
	// replayFilterCells bounds the filter's memory footprint.
	replayFilterCells = 1 << 20
	// replayFalsePositiveRate trades memory for wrongly rejected first uses.
	replayFalsePositiveRate = 0.01
)

// ReplayGuard remembers presented tokens. Safe for concurrent use.
type ReplayGuard struct {
	mu     sync.Mutex
	filter *boom.StableBloomFilter
}

// NewReplayGuard returns a guard with an empty filter.
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		filter: boom.NewDefaultStableBloomFilter(replayFilterCells, replayFalsePositiveRate),
	}
}

// SeenBefore records the token and reports whether it was already presented.
func (g *ReplayGuard) SeenBefore(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter.TestAndAdd([]byte(token))
}
