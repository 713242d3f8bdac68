package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"sector_backend/internal/app/config"
	"sector_backend/internal/feature/analysis/adapters/gemini"
	"sector_backend/internal/feature/analysis/adapters/sectordata"
	"sector_backend/internal/feature/analysis/transport/handler"
	"sector_backend/internal/feature/analysis/usecase"
	"sector_backend/internal/platform/cache"
	infrahttp "sector_backend/internal/platform/http"
	"sector_backend/internal/platform/metrics"
)

// NewReportGenerator creates the Gemini generator with its HTTP client, wrapped with
// latency metrics and, when a cache TTL is set and Redis is available, report caching.
func NewReportGenerator(ctx context.Context, cfg config.Config, rdb *redis.Client, m *metrics.Metrics) (usecase.ReportGenerator, error) {
	httpClient := infrahttp.NewHTTPClient(cfg.Gemini.Timeout)
	g, err := gemini.NewGeminiGenerator(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	}, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create gemini generator: %w", err)
	}
	slog.Info("gemini generator ready", "model", g.Model())

	var gen usecase.ReportGenerator = g
	if m != nil {
		gen = m.InstrumentGenerator(gen)
	}

	// Redisキャッシュでラップ（モデルごとに別namespace）
	if cfg.Analysis.ReportCacheTTL > 0 && rdb != nil {
		gen = cache.NewCachingReportGenerator(rdb, cfg.Analysis.ReportCacheTTL, gen, "reports:"+g.Model())
		slog.Info("report cache enabled", "ttl", cfg.Analysis.ReportCacheTTL)
	}
	return gen, nil
}

// NewAnalysisHandler wires fetcher, generator and usecase into the HTTP handler.
func NewAnalysisHandler(cfg config.AnalysisConfig, gen usecase.ReportGenerator, m *metrics.Metrics) (*handler.AnalysisHandler, error) {
	mode, err := handler.ParseErrorMode(cfg.ErrorMode)
	if err != nil {
		return nil, err
	}
	uc := usecase.NewAnalysisUsecase(sectordata.NewTemplateFetcher(), gen)

	var recorder handler.OutcomeRecorder
	if m != nil {
		recorder = m
	}
	return handler.NewAnalysisHandler(uc, mode, recorder), nil
}
