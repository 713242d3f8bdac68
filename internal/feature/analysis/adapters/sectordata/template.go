// Package sectordata はセクター分析の入力データを提供するアダプターです。
package sectordata

import (
	"context"
	"fmt"

	"sector_backend/internal/feature/analysis/usecase"
)

// DescriptionTemplate はセクター説明文のテンプレートです。
const DescriptionTemplate = "Latest news and reports about Indian %s sector from trusted sources."

// TemplateFetcher はテンプレートからセクター説明文を生成するSectorDataFetcher実装です。
// 外部I/Oは行いません。
type TemplateFetcher struct{}

// TemplateFetcherがSectorDataFetcherを実装していることをコンパイル時に検証します。
var _ usecase.SectorDataFetcher = TemplateFetcher{}

// NewTemplateFetcher はTemplateFetcherを生成します。
func NewTemplateFetcher() TemplateFetcher {
	return TemplateFetcher{}
}

// Fetch はセクター名を埋め込んだ説明文を返します。常に成功します。
func (TemplateFetcher) Fetch(_ context.Context, sector string) (string, error) {
	return fmt.Sprintf(DescriptionTemplate, sector), nil
}
