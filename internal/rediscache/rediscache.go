// Package rediscache is a thin read-through JSON cache over go-redis,
// used to avoid re-deriving standings and cap figures from Postgres on
// every read in the HTTP query surface. A nil *Cache (no Redis
// configured) makes every method a no-op miss, so callers never need a
// separate "is caching enabled" branch.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a *redis.Client with JSON marshal/unmarshal on get/set.
type Cache struct {
	client *redis.Client
}

// New builds a Cache bound to client. client may be nil, in which case
// every method degrades to a cache miss / no-op write.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get looks up key and unmarshals its value into dest. The second
// return value is false on a miss (including when the cache itself is
// nil or unreachable) — callers treat that identically to "not cached
// yet" and fall through to the source of truth.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false
	}
	return true
}

// Set writes value under key with the given TTL. Errors are swallowed:
// a cache write failing must never fail the read or write path it is
// backing.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, ttl)
}

// Invalidate deletes key, used whenever the row it caches is written.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, key)
}
