package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLuaLimiter(t *testing.T, buckets map[string]BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLuaLimiter(rdb, buckets)

	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return limiter, mr
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	ctx := context.Background()
	var limiter *RedisLuaLimiter

	allowed, retryAfter, err := limiter.Allow(ctx, BucketChatTurn, "s1", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed to be true for nil limiter")
	}
	if retryAfter != 0 {
		t.Fatalf("expected zero retryAfter, got %v", retryAfter)
	}
	assert.Nil(t, NewRedisLuaLimiter(nil, nil))
}

func TestAllow_NoBucketConfig_FailOpen(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestRedisLuaLimiter(t, nil)

	allowed, retryAfter, err := limiter.Allow(ctx, "unknown-bucket", "s1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retryAfter)
}

func TestAllow_WithBucket_RespectsCapacityAndRetryAfter(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestRedisLuaLimiter(t, map[string]BucketConfig{
		BucketChatTurn: NewBucketConfigFromPerMinute(3),
	})

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, BucketChatTurn, "s1", 1)
		require.NoError(t, err, "call %d", i)
		require.True(t, allowed, "call %d", i)
		require.Zero(t, retryAfter)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, BucketChatTurn, "s1", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "capacity exhausted")
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, 20*time.Second)

	allowed, _, err = limiter.Allow(ctx, BucketChatTurn, "s2", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "subjects have independent buckets")

	assert.True(t, mr.Exists("rate:chat_turn:s1"))
	assert.Greater(t, mr.TTL("rate:chat_turn:s1"), time.Duration(0))
}

func TestAllow_RedisDown_FailOpen(t *testing.T) {
	limiter, mr := newTestRedisLuaLimiter(t, map[string]BucketConfig{
		BucketChatTurn: NewBucketConfigFromPerMinute(1),
	})
	mr.Close()

	allowed, _, err := limiter.Allow(context.Background(), BucketChatTurn, "s1", 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	cfg := NewBucketConfigFromPerMinute(60)
	assert.Equal(t, int64(60), cfg.Capacity)
	assert.Equal(t, 1.0, cfg.RefillRate)
	assert.Equal(t, 2*time.Minute, cfg.idleTTL())

	zero := NewBucketConfigFromPerMinute(0)
	assert.False(t, zero.enabled())
}

func TestNewRedisLuaLimiter_CopiesBuckets(t *testing.T) {
	ctx := context.Background()
	buckets := map[string]BucketConfig{BucketChatTurn: NewBucketConfigFromPerMinute(1)}
	limiter, _ := newTestRedisLuaLimiter(t, buckets)
	buckets[BucketChatTurn] = BucketConfig{}

	allowed, _, err := limiter.Allow(ctx, BucketChatTurn, "s1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, _, err = limiter.Allow(ctx, BucketChatTurn, "s1", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "later edits to the caller's map do not apply")
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(5), toInt64(int64(5)))
	assert.Equal(t, int64(3), toInt64(3))
	assert.Equal(t, int64(7), toInt64(7.9))
	assert.Equal(t, int64(0), toInt64("not-a-number"))
}
