// Package middleware はアプリケーション共通のGinミドルウェアを提供します。
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID はリクエストIDを運ぶヘッダーです。
	HeaderRequestID = "X-Request-ID"
	// ContextRequestID はginコンテキスト上のリクエストIDのキーです。
	ContextRequestID = "request_id"

	maxRequestIDLen = 128
)

// RequestID はリクエストごとにIDを付与するミドルウェアを返します。
// クライアントが送ったX-Request-IDは長さが妥当な場合のみ引き継ぎます。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID はginコンテキストからリクエストIDを取得します。
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
