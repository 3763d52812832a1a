// Package main is the entrypoint for the AgentOps API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/agentops/internal/account"
	"github.com/kiranshivaraju/agentops/internal/api"
	"github.com/kiranshivaraju/agentops/internal/api/handler"
	mw "github.com/kiranshivaraju/agentops/internal/api/middleware"
	"github.com/kiranshivaraju/agentops/internal/api/response"
	"github.com/kiranshivaraju/agentops/internal/cache"
	"github.com/kiranshivaraju/agentops/internal/config"
	"github.com/kiranshivaraju/agentops/internal/credential"
	"github.com/kiranshivaraju/agentops/internal/ingest"
	"github.com/kiranshivaraju/agentops/internal/reset"
	"github.com/kiranshivaraju/agentops/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Rate limit counters
	counters, err := newCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer counters.Close()

	// 3. Entity store
	memStore := store.NewMemoryStore()

	// 4. Build router with dependencies
	router := newRouter(cfg, memStore, counters)

	// 5. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newCache connects to Redis when a URL is configured and falls back to
// process-local counters otherwise.
func newCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, error) {
	if cfg.URL == "" {
		slog.Info("no REDIS_URL set, using in-memory rate limit counters")
		return cache.NewMemoryCache(), nil
	}

	redisCache, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return redisCache, nil
}

// newRouter wires services and handlers over s and c.
func newRouter(cfg *config.Config, s store.Store, c cache.Cache) http.Handler {
	accounts := account.NewService(s)
	credentials := credential.NewService(s)
	resets := reset.NewService(s,
		reset.WithTTL(cfg.PasswordReset.TTL),
		reset.WithBcryptCost(cfg.PasswordReset.BcryptCost),
	)
	pipeline := ingest.NewPipeline(s)

	return api.NewRouter(api.Dependencies{
		Auth:            mw.NewAuth(credentials),
		APIRateLimit:    mw.NewRateLimit(c, "api", cfg.RateLimit.APIPerMinute, time.Minute, mw.ByClientIP),
		IngestRateLimit: mw.NewRateLimit(c, "ingest", cfg.RateLimit.IngestPerSecond, time.Second, mw.ByAPIKey),
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,

		HealthHandler:  healthHandler(s, c),
		MetricsHandler: promhttp.Handler(),

		SignupHandler:       handler.NewSignupHandler(accounts),
		LoginHandler:        handler.NewLoginHandler(accounts),
		LogoutHandler:       handler.NewLogoutHandler(),
		RefreshTokenHandler: handler.NewRefreshTokenHandler(),
		ResetRequestHandler: handler.NewPasswordResetRequestHandler(resets),
		ResetConfirmHandler: handler.NewPasswordResetConfirmHandler(resets),
		GetOrgProfile:       handler.NewGetOrgProfileHandler(s),
		UpdateOrgProfile:    handler.NewUpdateOrgProfileHandler(s),
		AddMemberHandler:    handler.NewAddMemberHandler(s),
		ListMembersHandler:  handler.NewListMembersHandler(s),
		UpdateMemberHandler: handler.NewUpdateMemberHandler(s),
		RemoveMemberHandler: handler.NewRemoveMemberHandler(s),
		CreateKeyHandler:    handler.NewCreateKeyHandler(credentials),
		ListKeysHandler:     handler.NewListKeysHandler(credentials),
		RevokeKeyHandler:    handler.NewRevokeKeyHandler(credentials),
		CreateAgentHandler:  handler.NewCreateAgentHandler(s),
		ListAgentsHandler:   handler.NewListAgentsHandler(s),
		GetAgentHandler:     handler.NewGetAgentHandler(s),
		UpdateAgentHandler:  handler.NewUpdateAgentHandler(s),
		ArchiveAgentHandler: handler.NewArchiveAgentHandler(s),
		ListRunsHandler:     handler.NewListRunsHandler(s),
		GetRunHandler:       handler.NewGetRunHandler(s),
		ListEventsHandler:   handler.NewListEventsHandler(s),
		IngestRunHandler:    handler.NewIngestRunHandler(pipeline),
	})
}

// healthHandler checks store and cache reachability.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"store": "ok",
			"cache": "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["store"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["store"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":    "ok",
			"services":  checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
