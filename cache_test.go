package vireo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheBasics(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, err := cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoEntry)

	require.NoError(t, cache.Set(ctx, "k", map[string]any{"v": 1}))
	raw, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, raw["v"])

	require.NoError(t, cache.Remove(ctx, "k"))
	_, err = cache.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNoEntry)

	// Removing a missing key is not an error.
	assert.NoError(t, cache.Remove(ctx, "k"))

	require.NoError(t, cache.Set(ctx, "a", map[string]any{}))
	require.NoError(t, cache.Set(ctx, "b", map[string]any{}))
	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			_ = cache.Set(ctx, key, map[string]any{"i": i})
			_, _ = cache.Get(ctx, key)
			if i%4 == 0 {
				_ = cache.Remove(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

// faultyCache fails every operation, for exercising the durable-tier
// fallbacks.
type faultyCache struct{}

var errCacheDown = errors.New("cache down")

func (faultyCache) Get(context.Context, string) (map[string]any, error) { return nil, errCacheDown }
func (faultyCache) Set(context.Context, string, map[string]any) error  { return errCacheDown }
func (faultyCache) Remove(context.Context, string) error               { return errCacheDown }
func (faultyCache) Clear(context.Context) error                        { return errCacheDown }

func TestTieredCachePromotesDurableHits(t *testing.T) {
	fast := NewMemoryCache()
	durable := NewMemoryCache()
	tiered := NewTieredCache(fast, durable)
	ctx := context.Background()

	require.NoError(t, durable.Set(ctx, "k", map[string]any{"v": 1}))

	raw, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, raw["v"])

	// The durable hit is now in the fast tier.
	promoted, err := fast.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, promoted["v"])
}

func TestTieredCacheFastHitSkipsDurable(t *testing.T) {
	fast := NewMemoryCache()
	tiered := NewTieredCache(fast, faultyCache{})
	ctx := context.Background()

	require.NoError(t, fast.Set(ctx, "k", map[string]any{"v": 1}))

	raw, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, raw["v"])
}

func TestTieredCacheMissOnBothTiers(t *testing.T) {
	tiered := NewTieredCache(NewMemoryCache(), NewMemoryCache())

	_, err := tiered.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestTieredCacheDurableReadFailureIsMiss(t *testing.T) {
	tiered := NewTieredCache(NewMemoryCache(), faultyCache{})

	_, err := tiered.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNoEntry)
}

func TestTieredCacheWritesBothTiers(t *testing.T) {
	fast := NewMemoryCache()
	durable := NewMemoryCache()
	tiered := NewTieredCache(fast, durable)
	ctx := context.Background()

	require.NoError(t, tiered.Set(ctx, "k", map[string]any{"v": 1}))
	assert.Equal(t, 1, fast.Len())
	assert.Equal(t, 1, durable.Len())

	require.NoError(t, tiered.Remove(ctx, "k"))
	assert.Equal(t, 0, fast.Len())
	assert.Equal(t, 0, durable.Len())

	require.NoError(t, tiered.Set(ctx, "a", map[string]any{}))
	require.NoError(t, tiered.Set(ctx, "b", map[string]any{}))
	require.NoError(t, tiered.Clear(ctx))
	assert.Equal(t, 0, fast.Len())
	assert.Equal(t, 0, durable.Len())
}

func TestTieredCacheDurableWriteFailureSurfaces(t *testing.T) {
	tiered := NewTieredCache(NewMemoryCache(), faultyCache{})
	ctx := context.Background()

	assert.ErrorIs(t, tiered.Set(ctx, "k", map[string]any{}), errCacheDown)
	assert.ErrorIs(t, tiered.Remove(ctx, "k"), errCacheDown)
	assert.ErrorIs(t, tiered.Clear(ctx), errCacheDown)
}
