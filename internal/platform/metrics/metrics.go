// Package metrics はPrometheusメトリクスの収集と公開を提供します。
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sector_analysis"

// Metrics はサービスのメトリクスを保持します。テストで重複登録しないよう専用のRegistryを使用します。
type Metrics struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rateLimit        *prometheus.CounterVec
	analyses         *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
}

// New は新しいMetricsを生成し、Goランタイム・プロセスのコレクタも登録します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimit: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limit decisions by result",
		}, []string{"result"}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Sector analyses by outcome",
		}, []string{"outcome"}),
		generateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_generate_duration_seconds",
			Help:      "Latency of generative model calls",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"result"}),
	}
}

// Registry は内部のRegistryを返します。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler はメトリクス公開用のHTTPハンドラーを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest はHTTPリクエストを記録します。
func (m *Metrics) ObserveRequest(method, route string, statusCode int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, statusClass(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordRateLimit はレート制限の判定結果を記録します。
func (m *Metrics) RecordRateLimit(result string) {
	m.rateLimit.WithLabelValues(result).Inc()
}

// RecordAnalysis は分析リクエストの結果（ok, upstream, timeout, missing_text, invalid, error）を記録します。
func (m *Metrics) RecordAnalysis(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

// Generator はプロンプトからテキストを生成するクライアントです。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type instrumentedGenerator struct {
	next Generator
	m    *Metrics
}

// InstrumentGenerator はモデル呼び出しのレイテンシを記録するデコレーターを返します。
func (m *Metrics) InstrumentGenerator(next Generator) Generator {
	return &instrumentedGenerator{next: next, m: m}
}

func (g *instrumentedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.next.Generate(ctx, prompt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	g.m.generateDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return text, err
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "unknown"
}
