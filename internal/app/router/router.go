// Package router はHTTPルーティングを構築します。
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"sector_backend/internal/api"
	"sector_backend/internal/platform/auth"
	"sector_backend/internal/platform/http/handler"
	"sector_backend/internal/platform/http/middleware"
	"sector_backend/internal/platform/metrics"
	"sector_backend/internal/shared/ratelimiter"
)

// Deps はルーター構築に必要な依存です。
type Deps struct {
	Analysis  api.ServerInterface
	Validator auth.CredentialValidator
	Limiter   ratelimiter.Limiter
	// Readiness はnilならreadyzは常に200を返します。
	Readiness handler.Pinger
	// Metrics はnilならメトリクスを記録せず、/metricsも登録しません。
	Metrics        *metrics.Metrics
	TrustedProxies []string
	// CORSOrigins が空ならCORSヘッダーを付与しません。
	CORSOrigins []string
}

// NewRouter はミドルウェアとルートを登録したハンドラーを返します。
//
// ルーティングはエスケープ済みのパスで行い、パスパラメータのデコードは
// api のバインド時の1回だけにします（"oil+gas" や "100%25" をそのまま返すため）。
func NewRouter(d Deps) (http.Handler, error) {
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = false
	// nilの場合はどのプロキシも信頼せず、RemoteAddrをクライアントアドレスとする
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	var (
		observer middleware.RequestObserver
		recorder middleware.RateLimitRecorder
	)
	if d.Metrics != nil {
		observer = d.Metrics
		recorder = d.Metrics
	}
	r.Use(middleware.RequestID(), middleware.Logger(observer), middleware.Recovery())

	// プリフライトはBasic認証より前で応答する
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  d.CORSOrigins,
			AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
			ExposeHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", middleware.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.OPTIONS("/healthz", handler.Health)
	r.GET("/readyz", handler.Readiness(d.Readiness))
	r.GET("/openapi.yaml", handler.OpenAPISpec(api.Spec))
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// 認証必須のルート
	// Basic認証を先に評価し、401のリクエストはレート制限のカウントを消費しない
	protected := r.Group("/")
	protected.Use(auth.BasicAuth(d.Validator), middleware.RateLimit(d.Limiter, recorder))
	api.RegisterHandlersWithOptions(protected, d.Analysis, api.GinServerOptions{
		ErrorHandler: func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, api.ErrorResponse{Detail: err.Error()})
		},
	})

	return escapedPath(r), nil
}

// escapedPath はRawPathが空のリクエストにもエスケープ済みパスを設定します。
// net/httpはデフォルトのエンコードと一致する場合RawPathを空にするため、
// そのままだとginは既にデコードされたPathでルーティングしてしまいます。
func escapedPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.RawPath == "" {
			u := *req.URL
			u.RawPath = u.EscapedPath()
			req = req.WithContext(req.Context())
			req.URL = &u
		}
		next.ServeHTTP(w, req)
	})
}
