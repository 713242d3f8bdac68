package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter はキーごとにx/time/rateのトークンバケットを保持するリミッターです。
// レートはLimit/Window、バーストはLimitです。
type TokenBucketLimiter struct {
	mu      sync.Mutex
	policy  Policy
	every   rate.Limit
	entries map[string]*bucket
	idleTTL time.Duration
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiterがLimiterを実装していることをコンパイル時に検証します。
var _ Limiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter は新しいTokenBucketLimiterを生成します。
func NewTokenBucketLimiter(p Policy) (*TokenBucketLimiter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &TokenBucketLimiter{
		policy:  p,
		every:   rate.Every(p.Window / time.Duration(p.Limit)),
		entries: make(map[string]*bucket),
		idleTTL: 2 * p.Window,
		now:     time.Now,
	}, nil
}

// Policy は設定されたポリシーを返します。
func (l *TokenBucketLimiter) Policy() Policy { return l.policy }

// Allow はトークンが残っていれば1つ消費して許可します。
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	lim := l.get(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, Limit: l.policy.Limit, RetryAfter: l.policy.Window}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, Limit: l.policy.Limit, RetryAfter: delay}, nil
	}

	remaining := int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Limit: l.policy.Limit, Remaining: remaining}, nil
}

func (l *TokenBucketLimiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.entries[key]; ok {
		b.lastSeen = now
		return b.lim
	}

	lim := rate.NewLimiter(l.every, l.policy.Limit)
	l.entries[key] = &bucket{lim: lim, lastSeen: now}
	return lim
}

// Cleanup はidleTTLの間使われていないキーを削除します。
func (l *TokenBucketLimiter) Cleanup() {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, b := range l.entries {
		if b.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// Len は保持しているキーの数を返します。
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
