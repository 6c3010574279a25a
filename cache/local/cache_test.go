package local

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *LocalCache {
	t.Helper()
	c, err := NewCache(Config{GCInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestGetSet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Del(ctx, "k", "never-set"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepRemovesExpired(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "short", "v", 5*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, ok := c.entries["short"]
		return !ok
	}, time.Second, 10*time.Millisecond)

	v, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestSetNX(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _ := c.Get(ctx, "lock")
	assert.Equal(t, "a", v)
}

func TestSetNX_Concurrent(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.SetNX(ctx, "lock", "x", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestDelIfEquals(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	_, _ = c.SetNX(ctx, "lock", "owner-1", time.Minute)

	ok, err := c.DelIfEquals(ctx, "lock", "owner-2")
	require.NoError(t, err)
	assert.False(t, ok, "foreign token must not release the lock")

	ok, err = c.DelIfEquals(ctx, "lock", "owner-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.SetNX(ctx, "lock", "owner-2", time.Minute)
	assert.True(t, ok)
}

func TestClose_Idempotent(t *testing.T) {
	c, err := NewCache(Config{})
	require.NoError(t, err)
	c.Close()
	c.Close()
}
