package ratelimiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fairyhunter13/cv-assistant/internal/domain"
)

type localBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter keeps one x/time/rate limiter per bucket and subject in
// process memory. Buckets idle for longer than a full refill are pruned.
type LocalLimiter struct {
	mu        sync.Mutex
	buckets   map[string]BucketConfig
	limiters  map[string]*localBucket
	now       func() time.Time
	lastPrune time.Time
}

var _ domain.TurnLimiter = (*LocalLimiter)(nil)

func NewLocalLimiter(buckets map[string]BucketConfig) *LocalLimiter {
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &LocalLimiter{
		buckets:  buckets,
		limiters: make(map[string]*localBucket),
		now:      time.Now,
	}
}

// Allow takes cost tokens from bucket for subject. Unknown buckets always allow.
func (l *LocalLimiter) Allow(_ context.Context, bucket, subject string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, ok := l.buckets[bucket]
	if !ok || !cfg.enabled() {
		return true, 0, nil
	}
	now := l.now()
	l.pruneLocked(now, cfg.idleTTL())

	key := bucket + ":" + subject
	b, ok := l.limiters[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(rate.Limit(cfg.RefillRate), int(cfg.Capacity))}
		l.limiters[key] = b
	}
	b.lastSeen = now

	r := b.lim.ReserveN(now, int(cost))
	if !r.OK() {
		return false, 0, nil
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d, nil
	}
	return true, 0, nil
}

func (l *LocalLimiter) pruneLocked(now time.Time, idle time.Duration) {
	if now.Sub(l.lastPrune) < idle {
		return
	}
	l.lastPrune = now
	for k, b := range l.limiters {
		if now.Sub(b.lastSeen) > idle {
			delete(l.limiters, k)
		}
	}
}
