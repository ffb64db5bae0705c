// Package main is the entrypoint for the Prospector API server.
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

	"github.com/kiranshivaraju/prospector/internal/api"
	"github.com/kiranshivaraju/prospector/internal/api/handler"
	mw "github.com/kiranshivaraju/prospector/internal/api/middleware"
	"github.com/kiranshivaraju/prospector/internal/api/response"
	"github.com/kiranshivaraju/prospector/internal/apollo"
	"github.com/kiranshivaraju/prospector/internal/cache"
	"github.com/kiranshivaraju/prospector/internal/config"
	"github.com/kiranshivaraju/prospector/internal/identity"
	"github.com/kiranshivaraju/prospector/internal/store"
	"github.com/kiranshivaraju/prospector/internal/usage"
	"github.com/kiranshivaraju/prospector/internal/vault"
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
	// 1. Load config: fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "apollo_base_url", cfg.Apollo.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	pgStore := store.NewPostgresStore(pool)

	// 5. Credential vault
	cipher, err := vault.NewCipher(cfg.Vault.EncryptionKey)
	if err != nil {
		return fmt.Errorf("create vault cipher: %w", err)
	}
	keyVault := vault.New(pgStore, cipher)

	// 6. Identity verifier
	verifier, err := identity.NewJWTVerifier(cfg.Identity.JWTSecret, cfg.Identity.Audience)
	if err != nil {
		return fmt.Errorf("create identity verifier: %w", err)
	}

	// 7. Apollo client
	apolloClient := apollo.NewHTTPClient(cfg.Apollo.BaseURL, cfg.Apollo.Timeout)

	// 8. Usage recorder
	recorder := usage.NewRecorder(pgStore, 0)

	// 9. Build router with dependencies
	apolloH := handler.NewApolloHandler(keyVault, apolloClient, recorder)
	keysH := handler.NewAPIKeyHandler(keyVault, redisCache)
	sessionH := handler.NewSessionHandler(pgStore, redisCache)
	historyH := handler.NewHistoryHandler(pgStore)
	savedH := handler.NewSavedHandler(pgStore)

	deps := api.Dependencies{
		Auth:           mw.NewAuth(verifier),
		RateLimit:      mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute),
		AllowedOrigins: []string{cfg.Server.FrontendURL},

		HealthHandler:   healthHandler(pgStore, redisCache),
		ValidateSession: sessionH.Validate,

		APIKeyStatus: keysH.Status,
		SaveAPIKey:   keysH.Save,

		SearchPeople:            apolloH.SearchPeople(),
		SearchCompanies:         apolloH.SearchCompanies(),
		EnrichPerson:            apolloH.EnrichPerson(),
		EnrichCompany:           apolloH.EnrichCompany(),
		BulkEnrichPeople:        apolloH.BulkEnrichPeople(),
		BulkEnrichOrganizations: apolloH.BulkEnrichOrganizations(),
		OrganizationInfo:        apolloH.OrganizationInfo(),
		OrganizationJobs:        apolloH.OrganizationJobs(),
		SearchNews:              apolloH.SearchNews(),

		ListHistory:   historyH.List,
		DeleteHistory: historyH.Delete,

		ListSaved:   savedH.List,
		CreateSaved: savedH.Create,
		UpdateSaved: savedH.Update,
		DeleteSaved: savedH.Delete,
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Apollo.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// In-flight history writes must land before the pool closes.
	if err := recorder.Close(shutdownCtx); err != nil {
		slog.Warn("usage recorder did not drain", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			slog.Warn("health: database ping failed", "error", err)
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			slog.Warn("health: cache ping failed", "error", err)
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.JSONStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "degraded",
				"services": checks,
			})
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
