// limiter.go
//
// Shared mock of limit.Limiter for handler and smoke tests.
// Use the Res/Err fields to script verdicts; Calls records every check.
package testutil

import (
	"context"
	"sync"

	"github.com/MGallo-Code/formgate/internal/limit"
)

// LimiterCall records one Check invocation.
type LimiterCall struct {
	Key    string
	Policy limit.Policy
}

// MockLimiter implements limit.Limiter with a scripted outcome.
// Zero value allows everything with a zero Result.
type MockLimiter struct {
	Res limit.Result
	Err error

	mu    sync.Mutex
	calls []LimiterCall
}

// AllowingLimiter returns a mock that always allows with the given remaining.
func AllowingLimiter(remaining int) *MockLimiter {
	return &MockLimiter{Res: limit.Result{Allowed: true, Remaining: remaining}}
}

func (m *MockLimiter) Check(_ context.Context, key string, p limit.Policy) (limit.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, LimiterCall{Key: key, Policy: p})
	m.mu.Unlock()
	if m.Err != nil {
		return limit.Result{}, m.Err
	}
	return m.Res, nil
}

// Calls returns a copy of all recorded invocations.
func (m *MockLimiter) Calls() []LimiterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LimiterCall(nil), m.calls...)
}
