package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sector_backend/internal/api"
)

// DetailInternalError はpanic時に返すエラーメッセージです。
const DetailInternalError = "Error processing request: internal error"

// Recovery はpanicを回復し、500 {"detail": ...} を返すミドルウェアを返します。
// panicの内容はログにのみ出力し、クライアントには返しません。
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		slog.Error("panic recovered",
			"error", recovered,
			"request_id", GetRequestID(c),
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{Detail: DetailInternalError})
	})
}
