package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*WindowLimiter, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewWindowLimiter(client, Config{Name: "test", RateLimit: RateLimit{Window: window, Max: max}})
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowWithinWindow(t *testing.T) {
	l, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	other, err := l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestWindowSlides(t *testing.T) {
	l, clock := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "user")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, clock.Add(time.Minute), res.ResetAt)

	first := res.ResetAt
	*clock = clock.Add(10 * time.Second)
	res, err = l.Allow(ctx, "user")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	// The oldest hit still decides the reset, in the same location.
	assert.Equal(t, first, res.ResetAt)
	assert.Equal(t, time.UTC, res.ResetAt.Location())

	*clock = clock.Add(2 * time.Minute)
	res, err = l.Allow(ctx, "user")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestReset(t *testing.T) {
	l, _ := newLimiter(t, 1, time.Hour)
	ctx := context.Background()

	_, err := l.Allow(ctx, "user")
	require.NoError(t, err)
	require.NoError(t, l.Reset(ctx, "user"))

	res, err := l.Allow(ctx, "user")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
