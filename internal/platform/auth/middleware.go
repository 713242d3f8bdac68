package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sector_backend/internal/api"
)

const (
	// ContextUsername is the gin context key holding the authenticated username.
	ContextUsername = "username"

	// DetailInvalidCredentials is the 401 response detail.
	DetailInvalidCredentials = "Invalid credentials"

	realm = `Basic realm="sector-analysis"`
)

// CredentialValidator validates a username/password pair.
type CredentialValidator interface {
	Validate(username, password string) (string, error)
}

// BasicAuth returns a Gin middleware that rejects requests whose Basic credentials
// do not match. A missing or malformed Authorization header is treated the same as
// a mismatch.
func BasicAuth(v CredentialValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Read Basic credentials from the Authorization header
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			reject(c, "missing basic credentials")
			return
		}

		// 2. Compare against the configured pair
		user, err := v.Validate(username, password)
		if err != nil {
			reject(c, err.Error())
			return
		}

		// 3. Expose the username to downstream handlers
		c.Set(ContextUsername, user)
		c.Next()
	}
}

func reject(c *gin.Context, reason string) {
	slog.Warn("basic auth rejected", "reason", reason, "remote_addr", c.ClientIP(), "path", c.Request.URL.Path)
	c.Header("WWW-Authenticate", realm)
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Detail: DetailInvalidCredentials})
}
