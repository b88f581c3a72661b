package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ZeroRateIsUnlimited(t *testing.T) {
	limiter := New(0, 0)
	assert.True(t, limiter.Unlimited())

	for i := 0; i < 10000; i++ {
		require.True(t, limiter.Allow(), "operation %d", i)
	}
}

func TestAllow_EnforcesBurst(t *testing.T) {
	limiter := New(10, 5)
	assert.False(t, limiter.Unlimited())

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow(), "operation %d should fit the burst", i)
	}
	assert.False(t, limiter.Allow())
}

func TestNew_BurstDefaultsToRate(t *testing.T) {
	limiter := New(3, 0)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow())
	}
	assert.False(t, limiter.Allow())
}

func TestWait_BlocksUntilToken(t *testing.T) {
	limiter := New(20, 1)
	require.True(t, limiter.Allow())

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWait_Cancelled(t *testing.T) {
	limiter := New(1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestWait_DeadlineBeforeToken(t *testing.T) {
	limiter := New(1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}
