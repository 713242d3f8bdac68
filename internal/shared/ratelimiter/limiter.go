// Package ratelimiter はクライアントごとのリクエスト頻度を制限するリミッターを提供します。
//
// 実装はメモリ上の固定ウィンドウ、Redis上の固定ウィンドウ（複数インスタンス共有）、
// x/time/rateによるトークンバケットの3種類です。
package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy はポリシーの上限またはウィンドウが0以下の場合に返されます。
var ErrInvalidPolicy = errors.New("rate limit policy must have positive limit and window")

// Policy は「Window内にLimit回まで」という制限ポリシーです。
type Policy struct {
	Limit  int
	Window time.Duration
}

// Validate はポリシーが有効かどうかを検証します。
func (p Policy) Validate() error {
	if p.Limit <= 0 || p.Window <= 0 {
		return fmt.Errorf("%w (limit=%d, window=%s)", ErrInvalidPolicy, p.Limit, p.Window)
	}
	return nil
}

// String は "5 per 1 minute" 形式でポリシーを返します。
func (p Policy) String() string {
	n, unit := int64(p.Window/time.Second), "second"
	switch {
	case p.Window%time.Hour == 0:
		n, unit = int64(p.Window/time.Hour), "hour"
	case p.Window%time.Minute == 0:
		n, unit = int64(p.Window/time.Minute), "minute"
	case p.Window%time.Second != 0:
		return fmt.Sprintf("%d per %s", p.Limit, p.Window)
	}
	return fmt.Sprintf("%d per %d %s", p.Limit, n, unit)
}

// Decision はリミッターの判定結果です。
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter は拒否時に次のリクエストが許可されるまでの目安です。許可時は0です。
	RetryAfter time.Duration
}

// Limiter はキー（クライアントアドレス）ごとにリクエストを許可するか判定します。
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Policy() Policy
}

// Pinger はバックエンドの疎通確認ができるリミッターが実装します。
type Pinger interface {
	Ping(ctx context.Context) error
}
