package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apidoc "github.com/fluxera/fluxera/api"
	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/api"
	"github.com/fluxera/fluxera/internal/asset"
	"github.com/fluxera/fluxera/internal/auth"
	"github.com/fluxera/fluxera/internal/config"
	"github.com/fluxera/fluxera/internal/dashboard"
	"github.com/fluxera/fluxera/internal/dashcache"
	"github.com/fluxera/fluxera/internal/database"
	"github.com/fluxera/fluxera/internal/license"
	"github.com/fluxera/fluxera/internal/metrics"
	"github.com/fluxera/fluxera/internal/platform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	pool := db.Pool()
	userRepo := auth.NewRepository(pool)
	authService := auth.NewService(userRepo, cfg.BcryptCost)

	if _, err := authService.BootstrapSuperuser(ctx); err != nil {
		slog.Error("failed to bootstrap superuser", "error", err)
		os.Exit(1)
	}

	cache := dashcache.New(
		dashcache.WithDefaultTTL(cfg.CacheTTL),
		dashcache.WithSweepInterval(cfg.CacheSweepInterval),
	)
	go cache.Start(ctx)

	m := metrics.New()
	m.RegisterCacheSize(func() int { return cache.Stats().Size })

	dashboardService := dashboard.NewService(
		dashboard.NewRepository(pool),
		cache,
		dashboard.WithRecorder(m),
		dashboard.WithExpiringWindow(time.Duration(cfg.ExpiringWindowDays)*24*time.Hour),
	)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:    db,
		Version:     cfg.Version,
		OpenAPISpec: apidoc.OpenAPISpec,
		Metrics:     m,
		AuthService: authService,
		UserRepo:    userRepo,
		AccountRepo: account.NewRepository(pool),
		LicenseRepo: license.NewRepository(pool),
		AssetRepo:   asset.NewRepository(pool),
		Platform:    platform.New(pool),
		Dashboard:   dashboardService,
		Cache:       cache,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting Fluxera server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
