package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver はリクエストの完了を記録します（メトリクス用）。
type RequestObserver interface {
	ObserveRequest(method, route string, statusCode int, d time.Duration)
}

// Logger はリクエストごとに1行の構造化ログを出力するミドルウェアを返します。
// observerがnilでなければ同じ値でメトリクスも記録します。
func Logger(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		// 未登録ルートのラベル爆発を避けるため、パスではなくルートパターンを使う
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		if observer != nil {
			observer.ObserveRequest(c.Request.Method, route, status, latency)
		}
	}
}
