// Package cache provides caching decorators backed by Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportGenerator is the generation dependency being decorated.
type ReportGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CachingReportGenerator decorates a ReportGenerator with Redis caching.
// Only successful, non-empty reports are stored; failures always reach the model again.
type CachingReportGenerator struct {
	inner     ReportGenerator
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingReportGenerator decorates a ReportGenerator with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "reports".
// A nil rdb turns the decorator into a pass-through.
func NewCachingReportGenerator(rdb *redis.Client, ttl time.Duration, inner ReportGenerator, namespace string) *CachingReportGenerator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "reports"
	}
	return &CachingReportGenerator{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Generate returns a cached report for the prompt, falling back to the inner generator.
func (c *CachingReportGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if c.rdb == nil {
		return c.inner.Generate(ctx, prompt)
	}

	key := c.cacheKey(prompt)

	// 1) Check cache
	text, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && text != "":
		return text, nil
	case err != nil && !errors.Is(err, redis.Nil):
		// Redis outage must not block generation
		slog.Warn("report cache read failed", "key", key, "error", err)
	}

	// 2) Fallback to the model
	text, err = c.inner.Generate(ctx, prompt)
	if err != nil || text == "" {
		return text, err
	}

	// 3) Store in cache (best effort)
	if err := c.rdb.Set(ctx, key, text, c.ttl).Err(); err != nil {
		slog.Warn("report cache write failed", "key", key, "error", err)
	}
	return text, nil
}

// cacheKey hashes the prompt so free-form sector names never leak into key syntax.
func (c *CachingReportGenerator) cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}
