// config_test.go -- unit tests for env config loading.
package config

import (
	"log/slog"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads, so tests are hermetic
// regardless of the ambient environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "FORM_TOKEN_SECRET", "IP_HASH_SALT", "REDIS_URL",
		"RATE_SUBMIT_MAX", "RATE_SUBMIT_WINDOW", "RATE_INFO_MAX", "RATE_INFO_WINDOW",
		"TOKEN_MAX_AGE", "TOKEN_SINGLE_USE", "IP_BLOCKLIST", "TURNSTILE_SECRET",
		"LIMIT_GRACE", "LIMIT_SWEEP_EVERY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Port != "7866" {
		t.Errorf("Port = %q, want \"7866\"", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.RateSubmitMax != 10 || cfg.RateSubmitWindow != 15*time.Minute {
		t.Errorf("submit policy = %d/%v, want 10/15m", cfg.RateSubmitMax, cfg.RateSubmitWindow)
	}
	if cfg.RateInfoMax != 100 || cfg.RateInfoWindow != 10*time.Minute {
		t.Errorf("info policy = %d/%v, want 100/10m", cfg.RateInfoMax, cfg.RateInfoWindow)
	}
	if cfg.TokenMaxAge != 30*time.Minute {
		t.Errorf("TokenMaxAge = %v, want 30m", cfg.TokenMaxAge)
	}
	if cfg.TokenSingleUse {
		t.Error("TokenSingleUse should default to false")
	}
	if cfg.TokenSecret != "" || cfg.IPHashSalt != "" || cfg.RedisURL != "" {
		t.Error("secrets and redis should default to empty")
	}
	if cfg.BlocklistCIDRs != nil {
		t.Errorf("BlocklistCIDRs = %v, want nil", cfg.BlocklistCIDRs)
	}
	if cfg.LimitGrace != time.Minute || cfg.SweepEvery != 5*time.Minute {
		t.Errorf("housekeeping = %v/%v, want 1m/5m", cfg.LimitGrace, cfg.SweepEvery)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FORM_TOKEN_SECRET", "s3cret")
	t.Setenv("RATE_SUBMIT_MAX", "3")
	t.Setenv("RATE_SUBMIT_WINDOW", "1m")
	t.Setenv("TOKEN_MAX_AGE", "5m")
	t.Setenv("TOKEN_SINGLE_USE", "true")
	t.Setenv("IP_BLOCKLIST", "10.0.0.0/8 , 192.168.0.0/16,,")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.TokenSecret != "s3cret" {
		t.Errorf("TokenSecret = %q", cfg.TokenSecret)
	}
	if cfg.RateSubmitMax != 3 || cfg.RateSubmitWindow != time.Minute {
		t.Errorf("submit policy = %d/%v, want 3/1m", cfg.RateSubmitMax, cfg.RateSubmitWindow)
	}
	if cfg.TokenMaxAge != 5*time.Minute {
		t.Errorf("TokenMaxAge = %v, want 5m", cfg.TokenMaxAge)
	}
	if !cfg.TokenSingleUse {
		t.Error("TokenSingleUse should be true")
	}
	want := []string{"10.0.0.0/8", "192.168.0.0/16"}
	if len(cfg.BlocklistCIDRs) != len(want) {
		t.Fatalf("BlocklistCIDRs = %v, want %v", cfg.BlocklistCIDRs, want)
	}
	for i := range want {
		if cfg.BlocklistCIDRs[i] != want[i] {
			t.Errorf("BlocklistCIDRs[%d] = %q, want %q", i, cfg.BlocklistCIDRs[i], want[i])
		}
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_SUBMIT_MAX", "not-a-number")
	t.Setenv("RATE_SUBMIT_WINDOW", "-5m")
	t.Setenv("TOKEN_MAX_AGE", "soon")
	t.Setenv("TOKEN_SINGLE_USE", "yes") // only exact "true" enables

	cfg := Load()
	if cfg.RateSubmitMax != 10 {
		t.Errorf("RateSubmitMax = %d, want default 10", cfg.RateSubmitMax)
	}
	if cfg.RateSubmitWindow != 15*time.Minute {
		t.Errorf("RateSubmitWindow = %v, want default 15m", cfg.RateSubmitWindow)
	}
	if cfg.TokenMaxAge != 30*time.Minute {
		t.Errorf("TokenMaxAge = %v, want default 30m", cfg.TokenMaxAge)
	}
	if cfg.TokenSingleUse {
		t.Error("TokenSingleUse should stay false for non-\"true\" values")
	}
}
