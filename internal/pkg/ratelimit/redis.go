package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:contact:"

// fixedWindowScript increments the counter and starts the window on the first hit.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares the fixed window across processes through Redis.
// Keys expire with their window, so the key space stays bounded.
type RedisLimiter struct {
	client redis.Scripter
	cfg    Config
	prefix string
}

// NewRedisLimiter creates a limiter on top of an existing Redis client.
func NewRedisLimiter(client redis.Scripter, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg.withDefaults(), prefix: redisKeyPrefix}
}

func (l *RedisLimiter) Check(ctx context.Context, identifier string) (Result, error) {
	now := l.cfg.Now()
	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + identifier}, l.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	out := Result{Limit: l.cfg.Max, ResetTime: now.Add(ttl)}
	if count > l.cfg.Max {
		return out, nil
	}
	out.Allowed = true
	out.Remaining = l.cfg.Max - count
	return out, nil
}
