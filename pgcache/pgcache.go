// Package pgcache provides a Postgres-backed vireo.ResponseCache for hosts
// that want cached responses in durable storage, typically as the durable
// tier under vireo.TieredCache.
package pgcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	vireo "github.com/vireolabs/vireo-go"
)

const defaultTable = "response_cache"

// Cache is a Postgres-backed response cache. Entries live in a single table
// of (key, value jsonb) rows, upserted on write.
type Cache struct {
	pool  *pgxpool.Pool
	table string
}

// New connects to Postgres with the given connection string and ensures the
// cache table exists.
func New(ctx context.Context, connString string) (*Cache, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	cache := &Cache{pool: pool, table: defaultTable}
	if err := cache.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return cache, nil
}

// Wrap builds a cache around an existing pool owned by the host. The table
// must already exist; use EnsureSchema when in doubt.
func Wrap(pool *pgxpool.Pool) *Cache {
	return &Cache{pool: pool, table: defaultTable}
}

// EnsureSchema creates the cache table if it does not exist.
func (c *Cache) EnsureSchema(ctx context.Context) error {
	return c.ensureSchema(ctx)
}

func (c *Cache) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`, c.table)
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure cache table: %w", err)
	}
	return nil
}

// Get retrieves the raw body stored under key.
func (c *Cache) Get(ctx context.Context, key string) (map[string]any, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, c.table)

	var encoded []byte
	err := c.pool.QueryRow(ctx, query, key).Scan(&encoded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vireo.ErrNoEntry
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode cached entry: %w", err)
	}
	return raw, nil
}

// Set creates or overwrites the entry for key.
func (c *Cache) Set(ctx context.Context, key string, raw map[string]any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = CURRENT_TIMESTAMP
	`, c.table)

	if _, err := c.pool.Exec(ctx, query, key, encoded); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Remove deletes the entry for key. Missing keys are not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, c.table)
	if _, err := c.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s`, c.table)
	if _, err := c.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Ping checks connectivity to the database.
func (c *Cache) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the underlying pool.
func (c *Cache) Close() {
	c.pool.Close()
}
