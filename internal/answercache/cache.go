// internal/answercache/cache.go

// Package answercache is the exact-match answer cache tier backed by Redis.
// It sits in front of the semantic cache: identical normalized questions hit
// here without any vector math. Redis being down is a cold cache, never an
// error surfaced to the caller.
package answercache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/textutil"
)

// Entry is the cached payload for one normalized question.
type Entry struct {
	Answer      string  `json:"answer"`
	Attribution string  `json:"attribution"`
	Quality     float64 `json:"quality"`
}

type Cache struct {
	client *redis.Client
	cfg    config.CacheConfig
	logger logger.Logger
}

func New(client *redis.Client, cfg config.CacheConfig, log logger.Logger) *Cache {
	return &Cache{client: client, cfg: cfg, logger: log}
}

// Lookup returns the cached entry for an exact normalized-question match.
func (c *Cache) Lookup(ctx context.Context, query string) (Entry, bool) {
	if c == nil || c.client == nil {
		return Entry{}, false
	}

	key, ok := c.key(query)
	if !ok {
		return Entry{}, false
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return Entry{}, false
	}
	if err != nil {
		c.logger.Warn("exact cache lookup failed, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// Corrupt entries behave like a cold cache.
		c.logger.Warn("exact cache entry corrupt, dropping", map[string]interface{}{
			"error": err.Error(),
		})
		_ = c.client.Del(ctx, key).Err()
		return Entry{}, false
	}
	return e, true
}

// Store writes the answer under the normalized-question key with the
// configured TTL. Low-quality answers are not cached.
func (c *Cache) Store(ctx context.Context, query string, e Entry) {
	if c == nil || c.client == nil {
		return
	}
	if e.Quality <= c.cfg.StoreThreshold {
		return
	}

	key, ok := c.key(query)
	if !ok {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key, payload, c.cfg.TTL()).Err(); err != nil {
		c.logger.Warn("exact cache store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (c *Cache) key(query string) (string, bool) {
	norm := textutil.Normalize(query)
	if norm == "" {
		return "", false
	}
	sum := sha1.Sum([]byte(norm))
	return fmt.Sprintf("%s:%s", c.cfg.KeyPrefix, hex.EncodeToString(sum[:])), true
}
