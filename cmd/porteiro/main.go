// Package main is the entry point for the Porteiro server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"porteiro/internal/cache"
	"porteiro/internal/config"
	"porteiro/internal/database"
	"porteiro/internal/handlers"
	"porteiro/internal/middleware"
	"porteiro/internal/render"
	"porteiro/internal/router"
	"porteiro/internal/session"
	"porteiro/internal/sitemode"
	"porteiro/internal/store"
)

func main() {
	// Structured logger. Debug level keeps gate decisions visible; the
	// output is plain text for journald and docker logs.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"site", cfg.SiteID,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db, cfg.SiteID); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (Redis-compatible cache + session store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Initialize session store backed by Valkey. Outside development the
	// session cookie is marked Secure, matching the CSRF cookie.
	sessionStore := session.NewStore(valkeyClient, !cfg.IsDev())

	// Initialize the HTML template renderer.
	renderer, err := render.New(cfg.SiteName)
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	pageStore := store.NewPageStore(db)
	settingStore := store.NewSettingStore(db)
	gateEventStore := store.NewGateEventStore(db)

	// The gate consults settings on every request, so reads go through a
	// short-TTL Valkey cache. Writes invalidate it.
	settingCache := cache.NewSettingCache(valkeyClient, settingStore, cache.DefaultSettingTTL)
	modes := sitemode.NewService(settingCache)

	// Initialize the L2 page cache (full-page HTML in Valkey).
	pageCache := cache.NewPageCache(valkeyClient, cache.DefaultPageTTL)

	// Login attempts are rate limited per client IP. The limiter runs a
	// cleanup goroutine, stopped on shutdown.
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer loginLimiter.Stop()

	if cfg.JobToken == "" {
		slog.Warn("JOB_TOKEN not set, job endpoints disabled")
	}

	// Create handler groups with their dependencies.
	adminHandlers := handlers.NewAdmin(renderer, sessionStore, pageStore, userStore, gateEventStore, modes, pageCache, cfg.SiteID)
	authHandlers := handlers.NewAuth(renderer, sessionStore, userStore)
	publicHandlers := handlers.NewPublic(renderer, pageStore, pageCache, cfg.SiteID)
	apiHandlers := handlers.NewAPI(modes, pageStore, cfg.SiteID)
	jobHandlers := handlers.NewJobs(pageStore, pageCache, cfg.JobToken)

	// Set up the Chi router with all middleware and routes.
	r := router.New(cfg, sessionStore, modes, loginLimiter, adminHandlers, authHandlers, publicHandlers, apiHandlers, jobHandlers)

	// Create the HTTP server with sensible timeouts.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
