// Package gemini はGoogle Gemini APIを使用したレポート生成クライアントを提供します。
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"sector_backend/internal/feature/analysis/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
	// DefaultTimeout はGemini API呼び出し全体のデフォルトタイムアウトです。
	DefaultTimeout = 60 * time.Second
)

// ErrMissingAPIKey はAPIキーが設定されていない場合に返されます。
var ErrMissingAPIKey = errors.New("gemini api key is not set")

// Config はGeminiクライアントの設定を保持します。
type Config struct {
	APIKey  string        // GEMINI_API_KEY
	Model   string        // 空の場合はDefaultModel
	BaseURL string        // テストやプロキシ用。空の場合はSDKのデフォルト
	Timeout time.Duration // HTTPクライアントのタイムアウト
}

// GeminiGenerator はGoogle Gemini APIを使用して分析レポートを生成します。
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// GeminiGeneratorがReportGeneratorを実装していることをコンパイル時に検証します。
var _ usecase.ReportGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator はAPIキー認証でGeminiGeneratorの新しいインスタンスを生成します。
// httpClientがnilの場合はSDKのデフォルトクライアントを使用します。
func NewGeminiGenerator(ctx context.Context, cfg Config, httpClient *http.Client) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Model は使用しているモデル名を返します。
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate はプロンプトからmarkdownレポートを生成します。
// レスポンスにテキストが無い場合はusecase.ErrMissingTextをラップして返します。
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}

	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		return "", fmt.Errorf("Gemini %w. Full response: %s", usecase.ErrMissingText, dump(resp))
	}
	return text, nil
}

// dump はエラーメッセージ用にレスポンスをJSON文字列化します。
func dump(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "<nil>"
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("%+v", *resp)
	}
	return string(b)
}
