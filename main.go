package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MGallo-Code/formgate/internal/abuse"
	"github.com/MGallo-Code/formgate/internal/captcha"
	"github.com/MGallo-Code/formgate/internal/config"
	"github.com/MGallo-Code/formgate/internal/limit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg := config.Load()

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	// Set up slog to output as json with configured level
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	hasher := abuse.NewHasher(cfg.IPHashSalt)
	if hasher.UsingDefaultSalt() {
		slog.Warn("IP_HASH_SALT not set, hashed identities are linkable across deployments")
	}

	tokens := abuse.NewTokenIssuer(cfg.TokenSecret)
	if tokens.UsingDevSecret() {
		slog.Warn("FORM_TOKEN_SECRET not set, form-load tokens are forgeable")
	}

	// Redis when configured, otherwise the in-memory limiter with a janitor
	// goroutine evicting expired windows.
	var limiter limit.Limiter
	if cfg.RedisURL != "" {
		rdb, err := limit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to set up redis client: %w", err)
		}
		defer rdb.Close()
		limiter = limit.NewRedisLimiter(rdb)
	} else {
		mem := limit.NewMemoryLimiter(limit.WithGrace(cfg.LimitGrace))
		limiter = mem

		sweepCtx, cancelSweep := context.WithCancel(ctx)
		defer cancelSweep()
		go func() {
			// Records older than the longest policy window are dead weight.
			window := max(cfg.RateSubmitWindow, cfg.RateInfoWindow)
			ticker := time.NewTicker(cfg.SweepEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					n := mem.Sweep(window)
					slog.Debug("rate limit sweep complete", "evicted", n, "tracked", mem.Len())
				case <-sweepCtx.Done():
					return
				}
			}
		}()
	}

	h := &abuse.Handler{
		Limiter:      limiter,
		SubmitPolicy: limit.Policy{Limit: cfg.RateSubmitMax, Window: cfg.RateSubmitWindow},
		InfoPolicy:   limit.Policy{Limit: cfg.RateInfoMax, Window: cfg.RateInfoWindow},
		Hasher:       hasher,
		Tokens:       tokens,
		TokenMaxAge:  cfg.TokenMaxAge,
		Sink:         abuse.NopSink{},
	}

	if len(cfg.BlocklistCIDRs) > 0 {
		bl := abuse.NewBlocklist(cfg.BlocklistCIDRs)
		h.Blocklist = bl
		slog.Info("ip blocklist active", "ranges", bl.Len())
	}
	if cfg.TokenSingleUse {
		h.Replay = abuse.NewReplayGuard()
		slog.Info("load tokens are single-use")
	}
	// Assign only when configured; a nil *TurnstileVerifier stored in the
	// interface field would dodge the handler's nil check.
	if cfg.TurnstileSecret != "" {
		h.Captcha = captcha.NewTurnstileVerifier(cfg.TurnstileSecret)
		slog.Info("captcha verification active")
	}

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(h)}

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("formgate listening", "addr", ln.Addr().String())
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	// Wait for server error or shutdown signal from ctx.
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildRouter wires all routes and middleware.
// Called from run() and smoke tests.
//
// Deliberately no RealIP or request-logger middleware: client identity
// resolution is the handlers' job, and raw addresses must not reach the
// logs -- call sites log the salted hash instead.
func buildRouter(h *abuse.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.Health)
	r.Get("/client-info", h.ClientInfo)
	r.Get("/forms/{formID}/token", h.FormToken)
	r.Post("/submit", h.Submit)

	return r
}
