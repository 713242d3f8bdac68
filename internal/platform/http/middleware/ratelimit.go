package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sector_backend/internal/api"
	"sector_backend/internal/shared/ratelimiter"
)

// レート制限の判定結果ラベルです。
const (
	RateLimitAllowed = "allowed"
	RateLimitDenied  = "denied"
	RateLimitError   = "error"
)

// RateLimitRecorder はレート制限の判定結果を記録します。
type RateLimitRecorder interface {
	RecordRateLimit(result string)
}

// RateLimit はクライアントアドレスごとにリクエスト数を制限するミドルウェアを返します。
// 上限超過時は429とRetry-Afterを返します。リミッターのバックエンド障害時はリクエストを通します。
func RateLimit(l ratelimiter.Limiter, recorder RateLimitRecorder) gin.HandlerFunc {
	policy := l.Policy()
	exceeded := api.RateLimitResponse{Error: "Rate limit exceeded: " + policy.String()}

	return func(c *gin.Context) {
		key := c.ClientIP()

		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Error("rate limiter unavailable, allowing request",
				"error", err,
				"remote_addr", key,
				"request_id", GetRequestID(c),
			)
			record(recorder, RateLimitError)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(d)))
			slog.Warn("rate limit exceeded",
				"remote_addr", key,
				"path", c.Request.URL.Path,
				"request_id", GetRequestID(c),
			)
			record(recorder, RateLimitDenied)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, exceeded)
			return
		}

		record(recorder, RateLimitAllowed)
		c.Next()
	}
}

func record(r RateLimitRecorder, result string) {
	if r != nil {
		r.RecordRateLimit(result)
	}
}

// retryAfterSeconds は切り上げた秒数を返します（最低1秒）。
func retryAfterSeconds(d ratelimiter.Decision) int {
	s := int(math.Ceil(d.RetryAfter.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
