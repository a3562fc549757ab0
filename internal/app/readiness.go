package app

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPinger is the part of a Redis client needed for readiness.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// BuildReadinessChecks returns the db and redis checks. A check is nil when
// its backing service is not configured, and readyz then skips it.
func BuildReadinessChecks(pool Pinger, rdb RedisPinger) (dbCheck, redisCheck func(ctx context.Context) error) {
	if pool != nil {
		dbCheck = pool.Ping
	}
	if rdb != nil {
		redisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return dbCheck, redisCheck
}
