// internal/semcache/cache.go

// Package semcache implements the in-memory semantic answer cache: queries
// are matched by term-frequency cosine similarity, so near-duplicate
// phrasings short-circuit the whole search pipeline.
package semcache

import (
	"sync"
	"sync/atomic"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/textutil"
)

// entry is immutable after publication; recency is the only mutable field
// and is atomic so read-locked lookups can touch it.
type entry struct {
	normQuery   string
	vector      map[string]float64
	answer      string
	attribution string
	quality     float64
	insertedAt  time.Time
	lastUsed    atomic.Int64 // unix nanos
}

// Hit is a successful semantic lookup.
type Hit struct {
	Answer      string
	Attribution string
	Quality     float64
	Similarity  float64
}

type Cache struct {
	cfg   config.CacheConfig
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

func New(cfg config.CacheConfig) *Cache {
	return &Cache{
		cfg:     cfg,
		clock:   time.Now,
		entries: make(map[string]*entry),
	}
}

// NewWithClock injects a clock for TTL tests.
func NewWithClock(cfg config.CacheConfig, clock func() time.Time) *Cache {
	c := New(cfg)
	c.clock = clock
	return c
}

// Lookup returns the highest-similarity stored answer at or above the
// similarity threshold. Concurrent lookups share the read lock and never
// block each other.
func (c *Cache) Lookup(query string) (Hit, bool) {
	vec := textutil.TermFreq(query)
	if len(vec) == 0 {
		return Hit{}, false
	}
	now := c.clock()

	c.mu.RLock()
	var best *entry
	bestSim := 0.0
	for _, e := range c.entries {
		if now.Sub(e.insertedAt) > c.cfg.TTL() {
			continue
		}
		sim := textutil.Cosine(vec, e.vector)
		if sim > bestSim {
			bestSim = sim
			best = e
		}
	}
	c.mu.RUnlock()

	if best == nil || bestSim < c.cfg.SimilarityThreshold {
		return Hit{}, false
	}

	best.lastUsed.Store(now.UnixNano())
	return Hit{
		Answer:      best.answer,
		Attribution: best.attribution,
		Quality:     best.quality,
		Similarity:  bestSim,
	}, true
}

// Store publishes an answer when its quality clears the store threshold.
// Entries are built fully before insertion, so a concurrent lookup sees
// either nothing or the complete entry.
func (c *Cache) Store(query, answer, attribution string, quality float64) {
	if quality <= c.cfg.StoreThreshold {
		return
	}

	norm := textutil.Normalize(query)
	vec := textutil.TermFreq(query)
	if norm == "" || len(vec) == 0 {
		return
	}
	now := c.clock()

	e := &entry{
		normQuery:   norm,
		vector:      vec,
		answer:      answer,
		attribution: attribution,
		quality:     quality,
		insertedAt:  now,
	}
	e.lastUsed.Store(now.UnixNano())

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneExpiredLocked(now)

	if _, exists := c.entries[norm]; !exists && len(c.entries) >= c.cfg.Capacity {
		c.evictLRULocked()
	}
	c.entries[norm] = e
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) pruneExpiredLocked(now time.Time) {
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) > c.cfg.TTL() {
			delete(c.entries, key)
		}
	}
}

func (c *Cache) evictLRULocked() {
	var oldestKey string
	var oldestUsed int64
	first := true
	for key, e := range c.entries {
		used := e.lastUsed.Load()
		if first || used < oldestUsed {
			first = false
			oldestKey = key
			oldestUsed = used
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
