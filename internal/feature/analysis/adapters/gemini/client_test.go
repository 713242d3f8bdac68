package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector_backend/internal/feature/analysis/usecase"
)

// newTestGenerator はhttptestサーバーに向けたGeminiGeneratorを生成するヘルパーです。
func newTestGenerator(t *testing.T, handler http.HandlerFunc) (*GeminiGenerator, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGeminiGenerator(context.Background(), Config{
		APIKey:  "test-key",
		Model:   "gemini-test",
		BaseURL: srv.URL,
	}, srv.Client())
	require.NoError(t, err)
	return g, srv
}

func TestNewGeminiGenerator_MissingAPIKey(t *testing.T) {
	t.Parallel()

	g, err := NewGeminiGenerator(context.Background(), Config{}, nil)

	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewGeminiGenerator_DefaultModel(t *testing.T) {
	t.Parallel()

	g, err := NewGeminiGenerator(context.Background(), Config{APIKey: "k"}, nil)

	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.Model())
}

func TestGeminiGenerator_Generate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantText    string
		wantErr     bool
		wantMissing bool
	}{
		{
			name:     "success: text returned",
			status:   http.StatusOK,
			body:     `{"candidates":[{"content":{"role":"model","parts":[{"text":"## Banking Sector\n..."}]}}]}`,
			wantText: "## Banking Sector\n...",
		},
		{
			name:        "missing text: no candidates",
			status:      http.StatusOK,
			body:        `{"candidates":[]}`,
			wantErr:     true,
			wantMissing: true,
		},
		{
			name:    "error: api returns 500",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"code":500,"message":"backend error","status":"INTERNAL"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotPath string
			g, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			text, err := g.Generate(context.Background(), "prompt")

			assert.Contains(t, gotPath, "gemini-test")
			assert.True(t, strings.HasSuffix(gotPath, ":generateContent"), "path %q", gotPath)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantText, text)
				return
			}
			require.Error(t, err)
			assert.Empty(t, text)
			assert.Equal(t, tt.wantMissing, errors.Is(err, usecase.ErrMissingText))
			if tt.wantMissing {
				assert.True(t, strings.HasPrefix(err.Error(), "Gemini response missing 'text'. Full response: "), "got %q", err.Error())
			}
		})
	}
}

func TestGeminiGenerator_Generate_ContextDeadline(t *testing.T) {
	t.Parallel()

	g, _ := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Generate(ctx, "prompt")

	require.Error(t, err)
	assert.True(t,
		errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded"),
		"unexpected error: %v", err)
}
