// Package usecase はanalysisフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"sector_backend/internal/feature/analysis/domain/entity"
)

// AnalysisPromptTemplate はセクター分析のプロンプトテンプレートです。
// 1つ目の%sにセクター名、2つ目に取得したセクターデータが入ります。
const AnalysisPromptTemplate = "Analyze the current market data for the %s sector in India and generate a structured markdown report.\n\nData: %s\n"

// ErrMissingText はモデルのレスポンスにテキストが含まれていない場合にReportGeneratorが返すエラーです。
var ErrMissingText = errors.New("response missing 'text'")

// SectorDataFetcher はセクターに関する入力データを取得するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type SectorDataFetcher interface {
	// Fetch はセクター名に対応する説明文を返します。
	Fetch(ctx context.Context, sector string) (string, error)
}

// ReportGenerator はプロンプトから分析レポートを生成するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ReportGenerator interface {
	// Generate はプロンプトからmarkdownレポートを生成します。
	Generate(ctx context.Context, prompt string) (string, error)
}

// analysisUsecase はセクター分析のビジネスロジックを提供します。
type analysisUsecase struct {
	fetcher   SectorDataFetcher
	generator ReportGenerator
}

// NewAnalysisUsecase はanalysisUsecaseの新しいインスタンスを生成します。
func NewAnalysisUsecase(f SectorDataFetcher, g ReportGenerator) *analysisUsecase {
	return &analysisUsecase{fetcher: f, generator: g}
}

// BuildPrompt はセクター名と取得データからモデルに渡すプロンプトを組み立てます。
func BuildPrompt(sector, data string) string {
	return fmt.Sprintf(AnalysisPromptTemplate, sector, data)
}

// AnalyzeSector はセクターデータを取得し、モデルで分析レポートを生成します。
//
// モデル呼び出しの失敗はエラーとして返さず、Analysis.Failureに格納します。
// エラーが返るのはセクターが空の場合とデータ取得に失敗した場合のみです。
func (u *analysisUsecase) AnalyzeSector(ctx context.Context, sector string) (*entity.Analysis, error) {
	if sector == "" {
		return nil, ErrEmptySector
	}

	data, err := u.fetcher.Fetch(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("fetch sector data for %q: %w", sector, err)
	}

	text, err := u.generator.Generate(ctx, BuildPrompt(sector, data))
	if err != nil {
		f := classify(err)
		slog.Warn("report generation failed", "error", err, "sector", sector, "kind", f.Kind)
		return &entity.Analysis{Sector: sector, Failure: f}, nil
	}
	if text == "" {
		return &entity.Analysis{
			Sector: sector,
			Failure: &entity.Failure{
				Kind:    entity.FailureMissingText,
				Message: "model " + ErrMissingText.Error(),
			},
		}, nil
	}

	return &entity.Analysis{Sector: sector, Report: text}, nil
}

// classify はモデル呼び出しのエラーを失敗種別に分類します。
func classify(err error) *entity.Failure {
	kind := entity.FailureUpstream
	var netErr net.Error
	switch {
	case errors.Is(err, ErrMissingText):
		kind = entity.FailureMissingText
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = entity.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = entity.FailureTimeout
	}
	return &entity.Failure{Kind: kind, Message: err.Error()}
}
