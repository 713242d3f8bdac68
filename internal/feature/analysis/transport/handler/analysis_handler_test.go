package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"sector_backend/internal/api"
	"sector_backend/internal/feature/analysis/domain/entity"
	"sector_backend/internal/feature/analysis/transport/handler"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockAnalysisUsecase はAnalysisUsecaseインターフェースのモック実装です。
type mockAnalysisUsecase struct {
	AnalyzeSectorFunc func(ctx context.Context, sector string) (*entity.Analysis, error)
}

func (m *mockAnalysisUsecase) AnalyzeSector(ctx context.Context, sector string) (*entity.Analysis, error) {
	return m.AnalyzeSectorFunc(ctx, sector)
}

// mockRecorder はOutcomeRecorderのモック実装です。
type mockRecorder struct {
	outcomes []string
}

func (m *mockRecorder) RecordAnalysis(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func TestParseErrorMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    handler.ErrorMode
		wantErr bool
	}{
		{"", handler.ErrorModeInBand, false},
		{"inband", handler.ErrorModeInBand, false},
		{"strict", handler.ErrorModeStrict, false},
		{"loud", "", true},
	}
	for _, tt := range tests {
		got, err := handler.ParseErrorMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAnalysisHandler_AnalyzeSector(t *testing.T) {
	upstream := func(ctx context.Context, sector string) (*entity.Analysis, error) {
		return &entity.Analysis{
			Sector:  sector,
			Failure: &entity.Failure{Kind: entity.FailureUpstream, Message: "gemini API request failed: boom"},
		}, nil
	}
	timeout := func(ctx context.Context, sector string) (*entity.Analysis, error) {
		return &entity.Analysis{
			Sector:  sector,
			Failure: &entity.Failure{Kind: entity.FailureTimeout, Message: "context deadline exceeded"},
		}, nil
	}

	tests := []struct {
		name           string
		url            string
		mode           handler.ErrorMode
		mockFunc       func(ctx context.Context, sector string) (*entity.Analysis, error)
		expectedStatus int
		expectedBody   string
		expectedRecord string
	}{
		{
			name: "success: banking report",
			url:  "/analyze/banking",
			mockFunc: func(ctx context.Context, sector string) (*entity.Analysis, error) {
				assert.Equal(t, "banking", sector)
				return &entity.Analysis{Sector: sector, Report: "## Banking Sector\n..."}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"sector":"banking","report":"## Banking Sector\n..."}`,
			expectedRecord: "ok",
		},
		{
			name: "success: escaped sector is echoed decoded",
			url:  "/analyze/IT%20services",
			mockFunc: func(ctx context.Context, sector string) (*entity.Analysis, error) {
				return &entity.Analysis{Sector: sector, Report: "r"}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"sector":"IT services","report":"r"}`,
			expectedRecord: "ok",
		},
		{
			name:           "inband: upstream failure becomes 200 with Error prefix",
			url:            "/analyze/textiles",
			mode:           handler.ErrorModeInBand,
			mockFunc:       upstream,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"sector":"textiles","report":"Error: gemini API request failed: boom"}`,
			expectedRecord: "upstream",
		},
		{
			name:           "strict: upstream failure becomes 502",
			url:            "/analyze/textiles",
			mode:           handler.ErrorModeStrict,
			mockFunc:       upstream,
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"detail":"Error processing request: gemini API request failed: boom"}`,
			expectedRecord: "upstream",
		},
		{
			name:           "strict: timeout becomes 504",
			url:            "/analyze/textiles",
			mode:           handler.ErrorModeStrict,
			mockFunc:       timeout,
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   `{"detail":"Error processing request: context deadline exceeded"}`,
			expectedRecord: "timeout",
		},
		{
			name: "error: usecase returns error",
			url:  "/analyze/steel",
			mockFunc: func(ctx context.Context, sector string) (*entity.Analysis, error) {
				return nil, errors.New("dial tcp 10.0.0.1:443: secret detail")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"Error processing request: internal error"}`,
			expectedRecord: "error",
		},
		{
			name: "error: nil result",
			url:  "/analyze/steel",
			mockFunc: func(ctx context.Context, sector string) (*entity.Analysis, error) {
				return nil, nil
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"Invalid AI response format."}`,
			expectedRecord: "invalid",
		},
		{
			name: "error: sector substituted",
			url:  "/analyze/steel",
			mockFunc: func(ctx context.Context, sector string) (*entity.Analysis, error) {
				return &entity.Analysis{Sector: "iron", Report: "r"}, nil
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"detail":"Invalid AI response format."}`,
			expectedRecord: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockRecorder{}
			h := handler.NewAnalysisHandler(&mockAnalysisUsecase{AnalyzeSectorFunc: tt.mockFunc}, tt.mode, rec)

			router := gin.New()
			api.RegisterHandlers(router, h)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			assert.Equal(t, []string{tt.expectedRecord}, rec.outcomes)
		})
	}
}

// TestAnalysisHandler_NilRecorder はrecorderがnilでもパニックしないことを検証します。
func TestAnalysisHandler_NilRecorder(t *testing.T) {
	uc := &mockAnalysisUsecase{AnalyzeSectorFunc: func(ctx context.Context, sector string) (*entity.Analysis, error) {
		return &entity.Analysis{Sector: sector, Report: "ok"}, nil
	}}
	h := handler.NewAnalysisHandler(uc, "", nil)

	router := gin.New()
	api.RegisterHandlers(router, h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/analyze/auto", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
