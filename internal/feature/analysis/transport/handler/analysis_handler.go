// Package handler はanalysisフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"sector_backend/internal/api"
	"sector_backend/internal/feature/analysis/domain/entity"
)

const (
	// DetailInvalidFormat は分析結果の形式が不正な場合のエラーメッセージです。
	DetailInvalidFormat = "Invalid AI response format."
	// DetailProcessingPrefix は処理エラー時のエラーメッセージの接頭辞です。
	DetailProcessingPrefix = "Error processing request: "
	// sanitizedMessage は内部エラーの詳細の代わりにクライアントへ返すメッセージです。
	sanitizedMessage = "internal error"
)

// ErrorMode はモデル呼び出し失敗時のレスポンス方式です。
type ErrorMode string

const (
	// ErrorModeInBand は失敗を"Error: ..."としてレポート本文に入れ、200を返します。
	ErrorModeInBand ErrorMode = "inband"
	// ErrorModeStrict は失敗を502/504として返します。
	ErrorModeStrict ErrorMode = "strict"
)

// ParseErrorMode は文字列をErrorModeに変換します。未知の値はエラーになります。
func ParseErrorMode(s string) (ErrorMode, error) {
	switch ErrorMode(s) {
	case "", ErrorModeInBand:
		return ErrorModeInBand, nil
	case ErrorModeStrict:
		return ErrorModeStrict, nil
	}
	return "", fmt.Errorf("unknown analysis error mode %q", s)
}

// AnalysisUsecase はセクター分析のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AnalysisUsecase interface {
	AnalyzeSector(ctx context.Context, sector string) (*entity.Analysis, error)
}

// OutcomeRecorder は分析リクエストの結果を記録します（メトリクス用）。
type OutcomeRecorder interface {
	RecordAnalysis(outcome string)
}

// AnalysisHandler はセクター分析のHTTPリクエストを処理します。
type AnalysisHandler struct {
	uc       AnalysisUsecase
	mode     ErrorMode
	recorder OutcomeRecorder
}

// AnalysisHandlerがapi.ServerInterfaceを実装していることをコンパイル時に検証します。
var _ api.ServerInterface = (*AnalysisHandler)(nil)

// NewAnalysisHandler はAnalysisHandlerの新しいインスタンスを生成します。
// recorderはnilでも構いません。
func NewAnalysisHandler(uc AnalysisUsecase, mode ErrorMode, recorder OutcomeRecorder) *AnalysisHandler {
	if mode == "" {
		mode = ErrorModeInBand
	}
	return &AnalysisHandler{uc: uc, mode: mode, recorder: recorder}
}

// AnalyzeSector はセクターの分析レポートを生成して返します。
//
// エンドポイント: GET /analyze/:sector
// 認証（BasicAuth）とレート制限はルーターのミドルウェアで適用済みです。
func (h *AnalysisHandler) AnalyzeSector(c *gin.Context, sector string) {
	analysis, err := h.uc.AnalyzeSector(c.Request.Context(), sector)
	if err != nil {
		slog.Error("sector analysis failed", "error", err, "sector", sector, "remote_addr", c.ClientIP())
		h.record("error")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Detail: DetailProcessingPrefix + sanitizedMessage})
		return
	}

	if analysis == nil || analysis.Sector != sector {
		slog.Error("invalid analysis result", "sector", sector, "result", analysis)
		h.record("invalid")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Detail: DetailInvalidFormat})
		return
	}

	if analysis.Failed() && h.mode == ErrorModeStrict {
		h.record(string(analysis.Failure.Kind))
		c.JSON(statusFor(analysis.Failure.Kind), api.ErrorResponse{
			Detail: DetailProcessingPrefix + analysis.Failure.Message,
		})
		return
	}

	if analysis.Failed() {
		h.record(string(analysis.Failure.Kind))
	} else {
		h.record("ok")
	}
	c.JSON(http.StatusOK, api.AnalysisResponse{
		Sector: analysis.Sector,
		Report: analysis.InBandReport(),
	})
}

func (h *AnalysisHandler) record(outcome string) {
	if h.recorder != nil {
		h.recorder.RecordAnalysis(outcome)
	}
}

// statusFor は失敗種別をHTTPステータスに対応付けます。
func statusFor(kind entity.FailureKind) int {
	if kind == entity.FailureTimeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
