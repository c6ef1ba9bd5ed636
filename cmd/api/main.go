package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pagecrane/pagecrane/internal/app/migrate"
	"github.com/pagecrane/pagecrane/internal/config"
	httpx "github.com/pagecrane/pagecrane/internal/http"
	"github.com/pagecrane/pagecrane/internal/logger"
	"github.com/pagecrane/pagecrane/internal/provider"
	"github.com/pagecrane/pagecrane/internal/repository/postgres"
	"github.com/pagecrane/pagecrane/internal/service/auth"
	"github.com/pagecrane/pagecrane/internal/service/events"
	"github.com/pagecrane/pagecrane/internal/service/project"
	"github.com/pagecrane/pagecrane/internal/service/webhook"
	"github.com/pagecrane/pagecrane/internal/vault"
	"github.com/pagecrane/pagecrane/internal/ws"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	credVault, err := vault.New(cfg.VaultSecret)
	if err != nil {
		log.Error("failed to initialize credential vault", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	eventHub := ws.NewHub()

	registry := provider.NewRegistry(
		provider.NewCloudflareClient(cfg, log),
		provider.NewNetlifyClient(cfg, log),
	)

	authSvc := auth.New(repo, credVault, log, cfg)
	eventSvc := events.New(eventHub, log)
	projectSvc := project.New(repo, repo, registry, credVault, eventSvc, log)
	webhookSvc := webhook.New(repo, projectSvc, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, projectSvc, webhookSvc, eventSvc, limiter, cfg.PublicBaseURL, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
