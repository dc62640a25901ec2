package vireo

import (
	"context"
	"errors"
	"sync"
)

// ErrNoEntry is returned by ResponseCache implementations when no entry
// exists for a key. The engine translates it into ErrCachedResponseNotFound
// on the cache-first path.
var ErrNoEntry = errors.New("cache: no entry for key")

// ResponseCache stores raw response bodies keyed by a request's cache
// identity. Implementations must be safe for concurrent use: requests race
// freely on reads and writes, and the engine makes no deduplication
// guarantee for concurrent misses on the same key (last write wins).
//
// The engine always consults the cache from a worker goroutine, so lookups
// may touch durable storage without blocking callers; completion callbacks
// are never invoked synchronously from Execute.
//
// The package provides an in-memory implementation; the rediscache and
// pgcache packages provide Redis- and Postgres-backed ones, and TieredCache
// composes a fast tier over a durable one.
type ResponseCache interface {
	// Get returns the raw body stored under key, or ErrNoEntry.
	Get(ctx context.Context, key string) (map[string]any, error)

	// Set stores a raw body under key, overwriting any previous entry.
	Set(ctx context.Context, key string, raw map[string]any) error

	// Remove deletes the entry for key. Removing a missing key is not an
	// error.
	Remove(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// MemoryCache is a map-backed ResponseCache. It is the engine's default and
// is safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]any
}

// NewMemoryCache creates an empty in-memory response cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]map[string]any)}
}

// Get returns the raw body stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) (map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok := c.entries[key]
	if !ok {
		return nil, ErrNoEntry
	}
	return raw, nil
}

// Set stores a raw body under key.
func (c *MemoryCache) Set(_ context.Context, key string, raw map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = raw
	return nil
}

// Remove deletes the entry for key.
func (c *MemoryCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]map[string]any)
	return nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TieredCache layers a fast cache over a durable one. Reads try the fast
// tier first and promote durable hits into it; writes and removals apply to
// both tiers. A durable-tier failure on read is treated as a miss of that
// tier rather than a hard error.
type TieredCache struct {
	fast    ResponseCache
	durable ResponseCache
}

// NewTieredCache composes a fast tier over a durable tier.
func NewTieredCache(fast, durable ResponseCache) *TieredCache {
	return &TieredCache{fast: fast, durable: durable}
}

// Get returns the entry from the fast tier, falling back to the durable
// tier and promoting its hits.
func (c *TieredCache) Get(ctx context.Context, key string) (map[string]any, error) {
	raw, err := c.fast.Get(ctx, key)
	if err == nil {
		return raw, nil
	}

	raw, err = c.durable.Get(ctx, key)
	if err != nil {
		return nil, ErrNoEntry
	}

	// Promotion failure is not worth failing the read over.
	_ = c.fast.Set(ctx, key, raw)
	return raw, nil
}

// Set stores the entry in both tiers.
func (c *TieredCache) Set(ctx context.Context, key string, raw map[string]any) error {
	if err := c.durable.Set(ctx, key, raw); err != nil {
		return err
	}
	return c.fast.Set(ctx, key, raw)
}

// Remove deletes the entry from both tiers.
func (c *TieredCache) Remove(ctx context.Context, key string) error {
	fastErr := c.fast.Remove(ctx, key)
	durableErr := c.durable.Remove(ctx, key)
	if durableErr != nil {
		return durableErr
	}
	return fastErr
}

// Clear removes every entry from both tiers.
func (c *TieredCache) Clear(ctx context.Context) error {
	fastErr := c.fast.Clear(ctx)
	durableErr := c.durable.Clear(ctx)
	if durableErr != nil {
		return durableErr
	}
	return fastErr
}
