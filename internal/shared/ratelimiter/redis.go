package ratelimiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript はカウンタのINCRと初回のPEXPIREを1回の呼び出しで行います。
// 戻り値は {現在のカウント, ウィンドウ終了までのミリ秒}。
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter はRedis上で固定ウィンドウのカウントを共有するリミッターです。
// 複数インスタンスで同じカウンタを参照できます。
type RedisLimiter struct {
	rdb    *redis.Client
	policy Policy
	prefix string
}

// RedisLimiterがLimiterとPingerを実装していることをコンパイル時に検証します。
var (
	_ Limiter = (*RedisLimiter)(nil)
	_ Pinger  = (*RedisLimiter)(nil)
)

// NewRedisLimiter は新しいRedisLimiterを生成します。prefixが空の場合は"ratelimit"を使用します。
func NewRedisLimiter(rdb *redis.Client, p Policy, prefix string) (*RedisLimiter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, policy: p, prefix: strings.Trim(prefix, ":")}, nil
}

// Policy は設定されたポリシーを返します。
func (l *RedisLimiter) Policy() Policy { return l.policy }

// Ping はRedisへの疎通を確認します。
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

// Allow はキーのカウンタを進め、上限以内であれば許可します。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowMs := l.policy.Window.Milliseconds()
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.key(key)}, windowMs).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(res) < 2 {
		return Decision{}, fmt.Errorf("redis rate limit: unexpected reply %v", res)
	}

	count, ttlMs := int(res[0]), res[1]
	if count > l.policy.Limit {
		return Decision{
			Allowed:    false,
			Limit:      l.policy.Limit,
			RetryAfter: time.Duration(ttlMs) * time.Millisecond,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Limit:     l.policy.Limit,
		Remaining: l.policy.Limit - count,
	}, nil
}

// key はクライアントキーに対応するRedisキーを返します。
func (l *RedisLimiter) key(k string) string {
	return fmt.Sprintf("%s:%s", l.prefix, k)
}
