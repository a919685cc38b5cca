// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the JetStream user service.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis (optional).
//  5. Run database migrations (idempotent).
//  6. Wire token service, identity providers, metrics and domain handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/jetstream/internal/api"
	"github.com/taibuivan/jetstream/internal/identity/provider"
	"github.com/taibuivan/jetstream/internal/platform/config"
	"github.com/taibuivan/jetstream/internal/platform/constants"
	"github.com/taibuivan/jetstream/internal/platform/metrics"
	"github.com/taibuivan/jetstream/internal/platform/migration"
	pgstore "github.com/taibuivan/jetstream/internal/platform/postgres"
	redisstore "github.com/taibuivan/jetstream/internal/platform/redis"
	"github.com/taibuivan/jetstream/internal/platform/sec"
	"github.com/taibuivan/jetstream/internal/platform/throttle"
	"github.com/taibuivan/jetstream/internal/users/account"
	"github.com/taibuivan/jetstream/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for background routines (rate limiter cleanup).
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Use a 30s deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	readinessChecks := []api.Checker{pgstore.Checker{Pool: pool}}

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")

	var loginThrottle throttle.LoginThrottle = throttle.Disabled{}
	if rdb != nil {
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()
		readinessChecks = append(readinessChecks, redisstore.Checker{Client: rdb})
		loginThrottle = throttle.New(throttle.NewRedisCounter(rdb), cfg.LoginMaxAttempts, cfg.LoginAttemptWindow)
	}

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security & Identity ────────────────────────────────────────────
	tokens, err := sec.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	must(log, err, "initialize token service")

	providers := provider.NewConfiguredRegistry(provider.Settings{
		FirebaseProjectID: cfg.FirebaseProjectID,
		GoogleClientID:    cfg.GoogleClientID,
		AppleClientID:     cfg.AppleClientID,
	})
	log.Info("identity_providers_configured", slog.Any("providers", providers.Names()))

	// ── 7. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	authService := auth.NewService(userRepository, tokens, providers,
		auth.WithThrottle(loginThrottle),
		auth.WithRecorder(collector),
	)
	accountService := account.NewService(userRepository)

	liveness, readiness := api.NewHealthHandlers(log, readinessChecks...)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(accountService),
	}

	server := api.NewServer(rootCtx, cfg, log, tokens, collector, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("app", "jetstream"),
		slog.String("service", constants.ServiceName),
	)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
