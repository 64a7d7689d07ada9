package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}

	ok, _ := l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(30 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	now = now.Add(31 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
}

func TestMemoryLimiter_RejectedAttemptsAreNotRecorded(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	now := start
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = l.Allow(ctx, "ip")
	now = start.Add(10 * time.Second)
	_, _ = l.Allow(ctx, "ip")

	now = start.Add(50 * time.Second)
	ok, _ := l.Allow(ctx, "ip")
	require.False(t, ok)
	assert.Len(t, l.hits["ip"], 2)

	// The first hit has left the window; the rejected one never entered it.
	now = start.Add(65 * time.Second)
	ok, _ = l.Allow(ctx, "ip")
	assert.True(t, ok)
}

func TestMemoryLimiter_SweepDropsIdleKeys(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	now = now.Add(30 * time.Second)
	_, _ = l.Allow(context.Background(), "b")

	now = now.Add(45 * time.Second)
	l.sweep()

	assert.NotContains(t, l.hits, "a")
	assert.Contains(t, l.hits, "b")
}
