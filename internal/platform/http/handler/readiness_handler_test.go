package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// mockPinger はテスト用のPingerモック実装です。
type mockPinger struct {
	pingFn func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.pingFn(ctx)
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		pinger         Pinger
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no backend",
			pinger:         nil,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ready"}`,
		},
		{
			name:           "backend reachable",
			pinger:         &mockPinger{pingFn: func(ctx context.Context) error { return nil }},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ready"}`,
		},
		{
			name:           "backend down",
			pinger:         &mockPinger{pingFn: func(ctx context.Context) error { return errors.New("dial tcp: refused") }},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := gin.New()
			r.GET("/readyz", Readiness(tt.pinger))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		})
	}
}

func TestReadiness_PingHasDeadline(t *testing.T) {
	t.Parallel()

	var hasDeadline bool
	p := &mockPinger{pingFn: func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}}

	r := gin.New()
	r.GET("/readyz", Readiness(p))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.True(t, hasDeadline)
}

func TestOpenAPISpec(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.GET("/openapi.yaml", OpenAPISpec([]byte("openapi: 3.0.3\n")))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Equal(t, "openapi: 3.0.3\n", w.Body.String())
}
