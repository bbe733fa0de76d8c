package kv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGetDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestMemoryExpiry(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	now = now.Add(2 * time.Minute)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.TTL(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryIncrFixedWindow(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	count, err := store.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Later increments do not extend the window.
	now = now.Add(30 * time.Second)
	count, err = store.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	ttl, err := store.TTL(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, ttl)

	// Once the window lapses the counter restarts at 1.
	now = now.Add(time.Minute)
	count, err = store.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryTTLWithoutExpiry(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ttl)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("abc"), 0))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryPurge(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "dead", []byte("v"), time.Second))
	require.NoError(t, store.Set(ctx, "live", []byte("v"), time.Hour))

	now = now.Add(time.Minute)
	store.Purge()

	store.mu.Lock()
	_, deadKept := store.entries["dead"]
	_, liveKept := store.entries["live"]
	store.mu.Unlock()

	assert.False(t, deadKept)
	assert.True(t, liveKept)
}

func TestMemoryConcurrentIncr(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Incr(ctx, "counter", time.Minute)
		}()
	}
	wg.Wait()

	count, err := store.Incr(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}
