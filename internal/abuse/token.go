// token.go -- Signed form-load tokens.
//
// A load token is minted when a form is rendered and presented back at
// submission; the difference between the two instants is the client's dwell
// time. The timestamp is HMAC-tagged so a client cannot backdate it, and the
// token carries no client-identifying data and needs no server-side storage:
// any instance holding the secret can validate it, which keeps horizontally
// scaled deployments coordination-free.
package abuse

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// devTokenSecret signs tokens when no secret is configured. Fine for local
// development, forgeable by anyone who reads this source -- set
// FORM_TOKEN_SECRET in production.
const devTokenSecret = "formgate-dev-token-secret"

// TokenIssuer mints and validates form-load tokens.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenClock replaces the issuer's time source. Test hook.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer returns an issuer signing with the given secret; an empty
// secret selects the development secret. The caller decides whether that
// warrants a warning.
func NewTokenIssuer(secret string, opts ...TokenOption) *TokenIssuer {
	if secret == "" {
		secret = devTokenSecret
	}
	i := &TokenIssuer{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// UsingDevSecret reports whether the insecure fallback secret is in force.
func (i *TokenIssuer) UsingDevSecret() bool {
	return string(i.secret) == devTokenSecret
}

// Create mints a token for the current instant:
// base64url(millis) "." base64url(HMAC-SHA256(millis)).
func (i *TokenIssuer) Create() string {
	ts := strconv.FormatInt(i.now().UnixMilli(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(ts)) +
		"." + base64.RawURLEncoding.EncodeToString(i.tag(ts))
}

// Decode returns the token's issuance time after verifying its tag.
// ok is false for any malformation, bad encoding, or tag mismatch -- a
// timestamp is never returned unless it is authenticated.
func (i *TokenIssuer) Decode(token string) (issuedAt time.Time, ok bool) {
	tsPart, tagPart, found := strings.Cut(token, ".")
	if !found {
		return time.Time{}, false
	}
	tsBytes, err := base64.RawURLEncoding.DecodeString(tsPart)
	if err != nil {
		return time.Time{}, false
	}
	tag, err := base64.RawURLEncoding.DecodeString(tagPart)
	if err != nil {
		return time.Time{}, false
	}
	if !hmac.Equal(tag, i.tag(string(tsBytes))) {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(string(tsBytes), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// Validate reports whether token is authentic and was issued no more than
// maxAge ago. The bound is inclusive: exactly maxAge elapsed still passes.
// Tokens from the future fail -- the tag rules out tampering, so a negative
// elapsed means unacceptable clock skew between instances.
func (i *TokenIssuer) Validate(token string, maxAge time.Duration) bool {
	issuedAt, ok := i.Decode(token)
	if !ok {
		return false
	}
	elapsed := i.now().Sub(issuedAt)
	return elapsed >= 0 && elapsed <= maxAge
}

func (i *TokenIssuer) tag(ts string) []byte {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(ts))
	return mac.Sum(nil)
}
