package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/app/migrate"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/config"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/httpx"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository/postgres"
	eventsvc "github.com/Ravichandra89/TuteDude-Assessment/internal/service/events"
	reportsvc "github.com/Ravichandra89/TuteDude-Assessment/internal/service/report"
	sessionsvc "github.com/Ravichandra89/TuteDude-Assessment/internal/service/session"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/signaling"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/ws"
	"github.com/Ravichandra89/TuteDude-Assessment/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New("proctor-api", logger.ParseLevel(cfg.LogLevel))

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

	repo := postgres.New(pool)

	registry := signaling.NewRegistry()
	relay := signaling.NewHandler(registry, log)
	hub := ws.NewHub()

	sessionSvc := sessionsvc.New(repo, repo, log)
	eventSvc := eventsvc.New(repo, repo, log, cfg.EventPageLimit, cfg.EventPageLimitMax)
	reportSvc := reportsvc.New(repo, repo, repo, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, sessionSvc, eventSvc, reportSvc, relay, hub, limiter, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("proctor api starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("proctor api stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
