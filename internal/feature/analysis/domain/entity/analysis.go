// Package entity はanalysisフィーチャーのドメインモデルを定義します。
package entity

// FailureKind はモデル呼び出しが失敗した理由の分類です。
type FailureKind string

const (
	// FailureUpstream はモデルAPI呼び出し自体のエラー（通信・クライアントライブラリ等）です。
	FailureUpstream FailureKind = "upstream"
	// FailureTimeout はモデルAPI呼び出しがタイムアウト・キャンセルされたことを表します。
	FailureTimeout FailureKind = "timeout"
	// FailureMissingText はレスポンスにテキストが含まれていなかったことを表します。
	FailureMissingText FailureKind = "missing_text"
)

// InBandErrorPrefix はレポート本文に埋め込むエラー文字列の接頭辞です。
const InBandErrorPrefix = "Error: "

// Failure はモデル呼び出しの失敗内容です。
type Failure struct {
	Kind    FailureKind
	Message string
}

// Analysis はセクター分析の結果を表します。
// Failureがnilの場合はReportにモデルの出力（markdown）が入ります。
type Analysis struct {
	Sector  string   // 分析対象のセクター（リクエストパスの値そのまま）
	Report  string   // AI生成のmarkdownレポート
	Failure *Failure // 失敗時のみ設定
}

// Failed は分析が失敗したかどうかを返します。
func (a *Analysis) Failed() bool {
	return a.Failure != nil
}

// InBandReport は失敗をレポート本文に畳み込んだ文字列を返します。
// 成功時はReportをそのまま返します。
func (a *Analysis) InBandReport() string {
	if a.Failure == nil {
		return a.Report
	}
	return InBandErrorPrefix + a.Failure.Message
}
