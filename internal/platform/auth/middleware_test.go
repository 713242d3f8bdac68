package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// TestMain はテスト実行前にGinをテストモードに設定します。
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(BasicAuth(NewValidator(Credentials{Username: "admin", Password: "admin123"})))
	r.GET("/analyze/:sector", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ContextUsername)})
	})
	return r
}

// TestBasicAuth_Rejects は認証情報が不正・欠落している場合に401と固定のdetailが返されることを検証します。
func TestBasicAuth_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		authHeader string
		setBasic   bool
		user, pass string
	}{
		{name: "no header"},
		{name: "bearer token", authHeader: "Bearer token123"},
		{name: "malformed base64", authHeader: "Basic !!!"},
		{name: "wrong password", setBasic: true, user: "admin", pass: "nope"},
		{name: "wrong username", setBasic: true, user: "guest", pass: "admin123"},
	}

	router := setupRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/analyze/textiles", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.setBasic {
				req.SetBasicAuth(tt.user, tt.pass)
			}

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"detail":"Invalid credentials"}`, w.Body.String())
			assert.Equal(t, `Basic realm="sector-analysis"`, w.Header().Get("WWW-Authenticate"))
		})
	}
}

// TestBasicAuth_Accepts は正しい認証情報でリクエストが通過し、ユーザー名がコンテキストに設定されることを検証します。
func TestBasicAuth_Accepts(t *testing.T) {
	t.Parallel()

	router := setupRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/analyze/banking", nil)
	req.SetBasicAuth("admin", "admin123")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"admin"}`, w.Body.String())
}
