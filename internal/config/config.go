// config.go

// Environment variable loading and validation.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all env configuration vars for formgate.
//
// Nothing is strictly required: a bare environment yields a working instance
// with in-memory rate limiting and documented insecure fallback secrets
// (warned about at startup, never fatal -- the public form must stay up).
type Config struct {
	Port     string
	LogLevel slog.Level

	// TokenSecret signs form-load tokens; IPHashSalt salts identity digests.
	// Empty values select insecure development fallbacks.
	TokenSecret string
	IPHashSalt  string

	// RedisURL selects the shared rate-limit store. Empty means the
	// in-memory limiter (single instance only).
	RedisURL string

	// Rate limit policy for form submissions per hashed client identity.
	// Defaults: max=10, window=15m.
	RateSubmitMax    int
	RateSubmitWindow time.Duration

	// Rate limit policy for the client-info diagnostic endpoint.
	// Defaults: max=100, window=10m.
	RateInfoMax    int
	RateInfoWindow time.Duration

	// TokenMaxAge bounds how old a form-load token may be at submission.
	// Default 30m.
	TokenMaxAge time.Duration

	// TokenSingleUse enables the replay guard: each load token is accepted
	// for at most one submission. Default false pending a product decision
	// on multi-submission kiosk flows.
	TokenSingleUse bool

	// BlocklistCIDRs are ranges rejected outright, comma-separated.
	BlocklistCIDRs []string

	// TurnstileSecret enables captcha verification when set.
	TurnstileSecret string

	// Memory limiter housekeeping. Grace is how long an expired window's
	// record is kept; SweepEvery is the janitor interval.
	LimitGrace time.Duration
	SweepEvery time.Duration
}

// Load reads environment variables and returns a Config. Invalid values fall
// back to defaults with a warning so a misconfigured env never silently
// disables protection or takes the service down.
func Load() *Config {
	cfg := &Config{}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "7866"
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.TokenSecret = os.Getenv("FORM_TOKEN_SECRET")
	cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.RateSubmitMax = envInt("RATE_SUBMIT_MAX", 10)
	cfg.RateSubmitWindow = envDuration("RATE_SUBMIT_WINDOW", 15*time.Minute)
	cfg.RateInfoMax = envInt("RATE_INFO_MAX", 100)
	cfg.RateInfoWindow = envDuration("RATE_INFO_WINDOW", 10*time.Minute)

	cfg.TokenMaxAge = envDuration("TOKEN_MAX_AGE", 30*time.Minute)
	// Default false -- only explicit "true" enables.
	cfg.TokenSingleUse = os.Getenv("TOKEN_SINGLE_USE") == "true"

	cfg.BlocklistCIDRs = splitCSV(os.Getenv("IP_BLOCKLIST"))
	cfg.TurnstileSecret = os.Getenv("TURNSTILE_SECRET")

	cfg.LimitGrace = envDuration("LIMIT_GRACE", time.Minute)
	cfg.SweepEvery = envDuration("LIMIT_SWEEP_EVERY", 5*time.Minute)

	return cfg
}

// envInt reads an env var as int, returning def if missing or unparseable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// splitCSV splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
