// Package rediscache provides a Redis-backed vireo.ResponseCache, letting
// cached responses survive process restarts and be shared between hosts.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	vireo "github.com/vireolabs/vireo-go"
)

// Config holds connection and keying settings for the Redis cache.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string
	// Password is the optional server password.
	Password string
	// DB is the database index.
	DB int
	// KeyPrefix namespaces the cache's keys. Default: "vireo:response:".
	KeyPrefix string
	// TTL is the expiry of stored entries. Zero keeps entries until
	// removed.
	TTL time.Duration
	// DialTimeout bounds the connection check in New. Default: 5s.
	DialTimeout time.Duration
}

// Cache is a Redis-backed response cache.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(config Config) (*Cache, error) {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "vireo:response:"
	}
	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, prefix: config.KeyPrefix, ttl: config.TTL}, nil
}

// Wrap builds a cache around an existing Redis client owned by the host.
func Wrap(client *redis.Client, keyPrefix string, ttl time.Duration) *Cache {
	if keyPrefix == "" {
		keyPrefix = "vireo:response:"
	}
	return &Cache{client: client, prefix: keyPrefix, ttl: ttl}
}

// Get retrieves the raw body stored under key.
func (c *Cache) Get(ctx context.Context, key string) (map[string]any, error) {
	encoded, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, vireo.ErrNoEntry
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode cached entry: %w", err)
	}
	return raw, nil
}

// Set stores the raw body under key.
func (c *Cache) Set(ctx context.Context, key string, raw map[string]any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Remove deletes the entry for key. Missing keys are not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Clear removes every entry under the cache's prefix, leaving unrelated
// keys in the database untouched.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key during clear: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys during clear: %w", err)
	}
	return nil
}

// Ping checks connectivity to the Redis server.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
