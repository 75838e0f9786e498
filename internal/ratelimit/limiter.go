package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pathshala-labs/pathshala/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiter answers whether a caller may proceed. Backed by redis when
// configured, otherwise by a per-process fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

const (
	couponValidateRate  = 1.0
	couponValidateBurst = 10
)

type redisLimiter struct {
	bucket *TokenBucket
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.bucket.Allow(ctx, "ratelimit:coupon:"+key, couponValidateRate, couponValidateBurst)
}

// memoryLimiter is the single-instance fallback: a fixed one-minute window
// per key.
type memoryLimiter struct {
	mu      sync.Mutex
	limit   int
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func newMemoryLimiter(limit int) *memoryLimiter {
	return &memoryLimiter{
		limit:   limit,
		windows: make(map[string]*window),
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= time.Minute {
		l.windows[key] = &window{start: now, count: 1}
		return &Result{Allowed: true, Remaining: l.limit - 1}, nil
	}
	if w.count >= l.limit {
		return &Result{
			Allowed:    false,
			RetryAfter: w.start.Add(time.Minute).Sub(now),
		}, nil
	}
	w.count++
	return &Result{Allowed: true, Remaining: l.limit - w.count}, nil
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func NewLimiter(p Params) Limiter {
	if p.Config.RedisAddr == "" {
		p.Log.Named("ratelimit").Info("redis not configured, using in-memory rate limiter")
		return newMemoryLimiter(couponValidateBurst * 6)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
	})
	return &redisLimiter{bucket: NewTokenBucket(client)}
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewLimiter),
)
