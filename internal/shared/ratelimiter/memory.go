package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter はプロセス内のmapで固定ウィンドウのカウントを保持するリミッターです。
type MemoryLimiter struct {
	mu      sync.Mutex
	policy  Policy
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiterがLimiterを実装していることをコンパイル時に検証します。
var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter は新しいMemoryLimiterを生成します。
func NewMemoryLimiter(p Policy) (*MemoryLimiter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &MemoryLimiter{
		policy:  p,
		windows: make(map[string]*window),
		now:     time.Now,
	}, nil
}

// Policy は設定されたポリシーを返します。
func (l *MemoryLimiter) Policy() Policy { return l.policy }

// Allow はキーのウィンドウ内カウントが上限未満であれば許可し、カウントを進めます。
// ウィンドウが経過していればカウントをリセットします。
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	// ウィンドウを過ぎたらカウントリセット
	if !ok || now.Sub(w.start) >= l.policy.Window {
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.count >= l.policy.Limit {
		return Decision{
			Allowed:    false,
			Limit:      l.policy.Limit,
			RetryAfter: w.start.Add(l.policy.Window).Sub(now),
		}, nil
	}

	w.count++
	return Decision{
		Allowed:   true,
		Limit:     l.policy.Limit,
		Remaining: l.policy.Limit - w.count,
	}, nil
}

// Len は保持しているキーの数を返します。
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Cleanup はウィンドウが経過したキーを削除します。
func (l *MemoryLimiter) Cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, w := range l.windows {
		if now.Sub(w.start) >= l.policy.Window {
			delete(l.windows, k)
		}
	}
}

// Cleaner はアイドルなキーを削除できるリミッターが実装します。
type Cleaner interface {
	Cleanup()
}

// StartJanitor はevery間隔でc.Cleanupを実行するgoroutineを起動します。
// ctxのキャンセルで停止します。
func StartJanitor(ctx context.Context, every time.Duration, c Cleaner) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}
