// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"sector_backend/internal/app/config"
	"sector_backend/internal/shared/ratelimiter"
)

// NewLimiter creates the rate limiter selected by configuration.
// For the fixed-window strategy it returns a Redis-backed implementation when Redis is
// available, so that counters are shared between instances. Otherwise it falls back to
// process memory. In-memory limiters get a janitor bound to ctx.
//
// The returned Pinger is non-nil only when the limiter depends on Redis.
func NewLimiter(ctx context.Context, cfg config.RateLimitConfig, rdb *redis.Client) (ratelimiter.Limiter, ratelimiter.Pinger, error) {
	p := ratelimiter.Policy{Limit: cfg.Requests, Window: cfg.Window}

	switch {
	case cfg.Strategy == config.StrategyToken:
		l, err := ratelimiter.NewTokenBucketLimiter(p)
		if err != nil {
			return nil, nil, err
		}
		ratelimiter.StartJanitor(ctx, p.Window, l)
		slog.Info("rate limiter ready", "strategy", "token", "policy", p.String())
		return l, nil, nil

	case rdb != nil:
		l, err := ratelimiter.NewRedisLimiter(rdb, p, "ratelimit")
		if err != nil {
			return nil, nil, err
		}
		slog.Info("rate limiter ready", "strategy", "fixed", "backend", "redis", "policy", p.String())
		return l, l, nil

	default:
		l, err := ratelimiter.NewMemoryLimiter(p)
		if err != nil {
			return nil, nil, err
		}
		ratelimiter.StartJanitor(ctx, p.Window, l)
		slog.Info("rate limiter ready", "strategy", "fixed", "backend", "memory", "policy", p.String())
		return l, nil, nil
	}
}
