// token_test.go -- unit tests for TokenIssuer.
package abuse

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"time"
)

// tokenClock is a controllable time source shared by issuer and test.
type tokenClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTokenClock() *tokenClock {
	return &tokenClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tokenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *tokenClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokenRoundTrip(t *testing.T) {
	t.Run("fresh token validates", func(t *testing.T) {
		clk := newTokenClock()
		issuer := NewTokenIssuer("secret", WithTokenClock(clk.Now))

		token := issuer.Create()
		clk.Advance(time.Second)
		if !issuer.Validate(token, 2*time.Second) {
			t.Error("token issued 1s ago should pass a 2s window")
		}
	})

	t.Run("expired token fails", func(t *testing.T) {
		clk := newTokenClock()
		issuer := NewTokenIssuer("secret", WithTokenClock(clk.Now))

		token := issuer.Create()
		clk.Advance(3 * time.Second)
		if issuer.Validate(token, 2*time.Second) {
			t.Error("token issued 3s ago should fail a 2s window")
		}
	})

	t.Run("exactly maxAge elapsed is still valid", func(t *testing.T) {
		clk := newTokenClock()
		issuer := NewTokenIssuer("secret", WithTokenClock(clk.Now))

		token := issuer.Create()
		clk.Advance(2 * time.Second)
		if !issuer.Validate(token, 2*time.Second) {
			t.Error("inclusive boundary: exactly maxAge elapsed should pass")
		}
	})

	t.Run("decode returns the issuance instant", func(t *testing.T) {
		clk := newTokenClock()
		issuer := NewTokenIssuer("secret", WithTokenClock(clk.Now))

		issued := clk.Now()
		token := issuer.Create()
		got, ok := issuer.Decode(token)
		if !ok {
			t.Fatal("Decode failed on a fresh token")
		}
		if !got.Equal(issued.Truncate(time.Millisecond)) {
			t.Errorf("Decode time = %v, want %v", got, issued)
		}
	})
}

func TestTokenForgery(t *testing.T) {
	clk := newTokenClock()
	issuer := NewTokenIssuer("secret", WithTokenClock(clk.Now))

	t.Run("altered timestamp fails regardless of maxAge", func(t *testing.T) {
		token := issuer.Create()
		tsPart, tagPart, _ := strings.Cut(token, ".")

		ts, _ := base64.RawURLEncoding.DecodeString(tsPart)
		ts[0] ^= 1 // flip a digit
		forged := base64.RawURLEncoding.EncodeToString(ts) + "." + tagPart

		if issuer.Validate(forged, 24*time.Hour) {
			t.Error("token with altered timestamp should never validate")
		}
	})

	t.Run("altered tag fails", func(t *testing.T) {
		token := issuer.Create()
		tsPart, tagPart, _ := strings.Cut(token, ".")

		tag, _ := base64.RawURLEncoding.DecodeString(tagPart)
		tag[0] ^= 1
		forged := tsPart + "." + base64.RawURLEncoding.EncodeToString(tag)

		if issuer.Validate(forged, 24*time.Hour) {
			t.Error("token with altered tag should never validate")
		}
	})

	t.Run("token signed under a different secret fails", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", WithTokenClock(clk.Now))
		if issuer.Validate(other.Create(), 24*time.Hour) {
			t.Error("token from a different secret should not validate")
		}
	})

	t.Run("plain base64 timestamp without tag fails", func(t *testing.T) {
		ts := base64.RawURLEncoding.EncodeToString([]byte("1717243200000"))
		if issuer.Validate(ts, 24*time.Hour) {
			t.Error("untagged timestamp should not validate")
		}
	})

	t.Run("malformed inputs fail without panicking", func(t *testing.T) {
		for _, token := range []string{"", ".", "a.b", "!!!.???", "only-one-part", "a.b.c"} {
			if issuer.Validate(token, 24*time.Hour) {
				t.Errorf("malformed token %q validated", token)
			}
		}
	})

	t.Run("token from the future fails", func(t *testing.T) {
		ahead := newTokenClock()
		ahead.Advance(time.Hour)
		future := NewTokenIssuer("secret", WithTokenClock(ahead.Now))

		if issuer.Validate(future.Create(), 24*time.Hour) {
			t.Error("token with a future timestamp should not validate")
		}
	})
}

func TestTokenSecrets(t *testing.T) {
	t.Run("empty secret selects the dev fallback", func(t *testing.T) {
		issuer := NewTokenIssuer("")
		if !issuer.UsingDevSecret() {
			t.Error("expected UsingDevSecret to be true")
		}
		// Still fully functional.
		if !issuer.Validate(issuer.Create(), time.Minute) {
			t.Error("dev-secret issuer should still mint valid tokens")
		}
	})

	t.Run("configured secret is not the dev fallback", func(t *testing.T) {
		if NewTokenIssuer("real").UsingDevSecret() {
			t.Error("expected UsingDevSecret to be false")
		}
	})
}
