// Package main is the entrypoint for the Fleetward API server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetward/fleetward/internal/api"
	"github.com/fleetward/fleetward/internal/api/handler"
	mw "github.com/fleetward/fleetward/internal/api/middleware"
	"github.com/fleetward/fleetward/internal/cache"
	"github.com/fleetward/fleetward/internal/config"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/internal/tenant"
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
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

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

	// 5. Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// 6. Store, resolver, middleware
	pgStore := store.NewPostgresStore(pool)
	resolver := tenant.NewResolver(pgStore)

	deps := api.Dependencies{
		TenantResolver: mw.NewTenantResolver(resolver, m),
		StaffAuth:      mw.NewStaffAuth(pgStore, m),
		RateLimit:      mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		Health:        handler.NewHealth(pgStore, redisCache),
		Users:         handler.NewUsers(pgStore, m),
		Vehicles:      handler.NewVehicles(pgStore, redisCache, m, cfg.Stats.CacheTTL),
		Maintenances:  handler.NewMaintenances(pgStore, m),
		Invoices:      handler.NewInvoices(pgStore, m),
		Notifications: handler.NewNotifications(pgStore, m),
		Subscriptions: handler.NewSubscriptions(pgStore),
		Tenants:       handler.NewTenants(pgStore),
		Employees:     handler.NewEmployees(pgStore),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	slog.Info("server stopped gracefully")
	return nil
}
