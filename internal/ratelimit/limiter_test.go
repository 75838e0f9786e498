package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/pathshala-labs/pathshala/internal/config"
	"go.uber.org/zap"
)

func TestMemoryLimiterExhaustsWindow(t *testing.T) {
	l := newMemoryLimiter(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Greater(t, res.RetryAfter.Seconds(), 0.0)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := newMemoryLimiter(1)
	ctx := context.Background()

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, res.Allowed, "a second client must get its own window")
}

func TestNewLimiterFallsBackWithoutRedis(t *testing.T) {
	l := NewLimiter(Params{Config: config.Config{}, Log: zap.NewNop()})
	_, ok := l.(*memoryLimiter)
	require.True(t, ok)
}

func TestNewLimiterUsesRedisWhenConfigured(t *testing.T) {
	l := NewLimiter(Params{Config: config.Config{RedisAddr: "localhost:6379"}, Log: zap.NewNop()})
	_, ok := l.(*redisLimiter)
	require.True(t, ok)
}
