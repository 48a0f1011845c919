// limit_test.go -- unit tests for ResponseHeaders.
package limit

import (
	"testing"
	"time"
)

func TestResponseHeaders(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("formats remaining and reset-after", func(t *testing.T) {
		h := ResponseHeaders(Result{Remaining: 7, Reset: now.Add(30 * time.Second)}, now)
		if got := h["X-RateLimit-Remaining"]; got != "7" {
			t.Errorf("Remaining header = %q, want \"7\"", got)
		}
		if got := h["X-RateLimit-Reset-After"]; got != "30" {
			t.Errorf("Reset-After header = %q, want \"30\"", got)
		}
	})

	t.Run("rounds partial seconds up", func(t *testing.T) {
		h := ResponseHeaders(Result{Reset: now.Add(1500 * time.Millisecond)}, now)
		if got := h["X-RateLimit-Reset-After"]; got != "2" {
			t.Errorf("Reset-After header = %q, want \"2\"", got)
		}
	})

	t.Run("clamps past reset times to zero", func(t *testing.T) {
		h := ResponseHeaders(Result{Reset: now.Add(-5 * time.Second)}, now)
		if got := h["X-RateLimit-Reset-After"]; got != "0" {
			t.Errorf("Reset-After header = %q, want \"0\"", got)
		}
	})

	t.Run("zero remaining is a decimal zero", func(t *testing.T) {
		h := ResponseHeaders(Result{Remaining: 0, Reset: now}, now)
		if got := h["X-RateLimit-Remaining"]; got != "0" {
			t.Errorf("Remaining header = %q, want \"0\"", got)
		}
	})
}
