// Package cache memoizes upstream HSP response bodies in redis. Historic
// performance data changes rarely, so identical searches within the expiry
// window skip the upstream round trip entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"

	"github.com/latemate/latemate/pkg/redis_client"
)

const expiry = 90 * time.Minute

type Cache struct {
	cache *cache.Cache[string]
}

// Setup builds the response cache over the shared redis client. Without a
// connected client the cache is a no-op and every request goes upstream.
func Setup() *Cache {
	if redis_client.Client == nil {
		return &Cache{}
	}

	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(expiry))

	return &Cache{cache: cache.New[string](redisStore)}
}

// Key derives the cache key for one upstream call from the endpoint name
// and the raw request body.
func Key(endpoint string, body []byte) string {
	digest := sha256.Sum256(append([]byte(endpoint+":"), body...))

	return "latemate:hsp:" + hex.EncodeToString(digest[:])
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}

	value, err := c.cache.Get(ctx, key)
	if err != nil {
		return "", false
	}

	return value, true
}

func (c *Cache) Set(ctx context.Context, key string, value string) {
	if c.cache == nil {
		return
	}

	c.cache.Set(ctx, key, value)
}
