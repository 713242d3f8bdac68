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

	redisv9 "github.com/redis/go-redis/v9"

	"sector_backend/internal/app/config"
	"sector_backend/internal/app/di"
	"sector_backend/internal/app/router"
	"sector_backend/internal/platform/auth"
	"sector_backend/internal/platform/http/handler"
	"sector_backend/internal/platform/metrics"
	infraredis "sector_backend/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env / CONFIG_FILE / 環境変数を読み込む
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cfg.Server.SlogLevel()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis（任意）
	var rdb *redisv9.Client
	if cfg.Redis.Host != "" {
		tmp, err := infraredis.NewRedisClient(ctx, infraredis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			slog.Warn("Redis unavailable. Running with in-memory rate limiting and no report cache.", "error", err)
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close Redis client", "error", err)
				}
			}()
		}
	}

	m := metrics.New()

	limiter, pinger, err := di.NewLimiter(ctx, cfg.RateLimit, rdb)
	if err != nil {
		return err
	}
	gen, err := di.NewReportGenerator(ctx, *cfg, rdb, m)
	if err != nil {
		return err
	}
	analysisH, err := di.NewAnalysisHandler(cfg.Analysis, gen, m)
	if err != nil {
		return err
	}

	creds := cfg.Credentials()
	deps := router.Deps{
		Analysis: analysisH,
		Validator: auth.NewValidator(auth.Credentials{
			Username:     creds.Username,
			Password:     creds.Password,
			PasswordHash: creds.PasswordHash,
		}),
		Limiter:        limiter,
		Metrics:        m,
		TrustedProxies: cfg.Server.TrustedProxies,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
	}
	if pinger != nil {
		deps.Readiness = handler.Pinger(pinger)
	}
	r, err := router.NewRouter(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// モデル呼び出しのタイムアウトより長くする
		WriteTimeout: cfg.Gemini.Timeout + 10*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
