package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongocat/webapp/internal/core/domain"
)

func newServer(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}

func TestConnect(t *testing.T) {
	srv := newServer(t)

	client, err := Connect(context.Background(), Config{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()

	srv.Close()
	_, err = Connect(context.Background(), Config{Addr: srv.Addr(), Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}

func TestResetThrottle(t *testing.T) {
	srv := newServer(t)
	client, err := Connect(context.Background(), Config{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	throttle := NewResetThrottle(client, time.Minute)

	ok, err := throttle.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = throttle.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "second request inside the window is throttled")

	ok, err = throttle.Allow(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "other addresses are independent")

	for _, k := range srv.Keys() {
		assert.NotContains(t, k, "example.com")
	}

	srv.FastForward(time.Minute + time.Second)
	ok, err = throttle.Allow(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestLeaderboardCache(t *testing.T) {
	srv := newServer(t)
	client, err := Connect(context.Background(), Config{Addr: srv.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	cache := NewLeaderboardCache(client, 5*time.Second)

	_, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	rows := []domain.LeaderboardEntry{{Username: "alice", Score: 50}, {Username: "bob", Score: 50}}
	require.NoError(t, cache.Set(ctx, 10, rows))
	require.NoError(t, cache.Set(ctx, 3, rows[:1]))

	got, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, got)

	require.NoError(t, cache.Invalidate(ctx))
	for _, limit := range []int{3, 10} {
		_, ok, err = cache.Get(ctx, limit)
		require.NoError(t, err)
		assert.False(t, ok, "limit %d should be invalidated", limit)
	}
	require.NoError(t, cache.Invalidate(ctx), "invalidating an empty cache is fine")

	require.NoError(t, cache.Set(ctx, 10, rows))
	srv.FastForward(6 * time.Second)
	_, ok, err = cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok, "snapshot expires after ttl")
}
