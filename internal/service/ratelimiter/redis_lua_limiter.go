// Package ratelimiter caps how many chat turns a session may take per minute.
// The Redis limiter shares buckets across instances; the local limiter is
// used when the service runs without Redis.
package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

// BucketChatTurn is the bucket consulted once per chat turn, keyed by session.
const BucketChatTurn = "chat_turn"

type BucketConfig struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// idleTTL is how long an untouched bucket is kept: twice a full refill.
func (c BucketConfig) idleTTL() time.Duration {
	return time.Duration(2 * float64(c.Capacity) / c.RefillRate * float64(time.Second))
}

// RedisLuaLimiter is a token bucket evaluated atomically in Redis.
type RedisLuaLimiter struct {
	redis   *redis.Client
	buckets map[string]BucketConfig
	script  *redis.Script
}

var _ domain.TurnLimiter = (*RedisLuaLimiter)(nil)

func NewRedisLuaLimiter(rdb *redis.Client, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	own := make(map[string]BucketConfig, len(buckets))
	for name, cfg := range buckets {
		own[name] = cfg
	}
	return &RedisLuaLimiter{
		redis:   rdb,
		buckets: own,
		script:  redis.NewScript(luaTokenBucketScript),
	}
}

// The script returns retry_after in whole milliseconds because Redis
// truncates Lua numbers to integers.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

if last_refill == nil then
  last_refill = now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after_ms = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  local shortage = cost - tokens
  if refill_rate > 0 then
    retry_after_ms = math.ceil(shortage / refill_rate * 1000)
  end
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(last_refill))
if ttl_ms > 0 then
  redis.call("PEXPIRE", key, ttl_ms)
end

return { allowed, retry_after_ms }
`

// Allow takes cost tokens from bucket for subject. Unknown buckets and Redis
// failures fail open.
func (l *RedisLuaLimiter) Allow(ctx context.Context, bucket, subject string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	cfg, ok := l.buckets[bucket]
	if !ok || !cfg.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	redisKey := "rate:" + bucket + ":" + subject
	res, err := l.script.Run(ctx, l.redis, []string{redisKey},
		cfg.Capacity, cfg.RefillRate, nowSec, cost, cfg.idleTTL().Milliseconds()).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("bucket", bucket), slog.Any("error", err))
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("redis rate limiter unexpected script result", slog.String("bucket", bucket), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	retryAfter := time.Duration(toInt64(vals[1])) * time.Millisecond
	return allowed, retryAfter, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
