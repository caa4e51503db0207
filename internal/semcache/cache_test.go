// internal/semcache/cache_test.go
package semcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"search-orchestrator/internal/common/config"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() config.CacheConfig {
	return config.CacheConfig{
		SimilarityThreshold: 0.85,
		StoreThreshold:      0.7,
		TTLSeconds:          3600,
		Capacity:            200,
	}
}

// ==========================
// Cache Tests
// ==========================

func TestCache_StoreAndLookup_SimilarQuery(t *testing.T) {
	c := New(createTestConfig())
	c.Store("Qual é a capital da França?", "Paris é a capital da França.", "wikipedia", 0.9)

	// A close rephrasing clears the 0.85 similarity bar.
	hit, ok := c.Lookup("Qual a capital da França?")
	require.True(t, ok)
	assert.Equal(t, "Paris é a capital da França.", hit.Answer)
	assert.Equal(t, "wikipedia", hit.Attribution)
	assert.InDelta(t, 0.9, hit.Quality, 1e-9)
	assert.GreaterOrEqual(t, hit.Similarity, 0.85)
}

func TestCache_Lookup_UnrelatedQueryMisses(t *testing.T) {
	c := New(createTestConfig())
	c.Store("Qual é a capital da França?", "Paris é a capital da França.", "wikipedia", 0.9)

	_, ok := c.Lookup("Como fazer bolo de chocolate?")
	assert.False(t, ok)
}

func TestCache_Store_BelowQualityThresholdSkipped(t *testing.T) {
	c := New(createTestConfig())

	c.Store("pergunta qualquer sobre física", "resposta fraca", "duckduckgo", 0.7) // not strictly above
	c.Store("outra pergunta sobre química", "resposta ruim", "duckduckgo", 0.3)

	assert.Zero(t, c.Len())
}

func TestCache_Lookup_ExpiredEntrySkipped(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := NewWithClock(createTestConfig(), func() time.Time { return now })

	c.Store("Qual é a capital da França?", "Paris é a capital da França.", "wikipedia", 0.9)

	// Just inside the TTL.
	now = now.Add(59 * time.Minute)
	_, ok := c.Lookup("Qual é a capital da França?")
	assert.True(t, ok)

	// Past the TTL.
	now = now.Add(2 * time.Minute)
	_, ok = c.Lookup("Qual é a capital da França?")
	assert.False(t, ok)
}

func TestCache_Store_EvictsLRUAtCapacity(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := createTestConfig()
	cfg.Capacity = 3
	c := NewWithClock(cfg, func() time.Time { return now })

	c.Store("primeira pergunta sobre história antiga", "resposta um", "wikipedia", 0.9)
	now = now.Add(time.Second)
	c.Store("segunda pergunta sobre geografia europeia", "resposta dois", "wikipedia", 0.9)
	now = now.Add(time.Second)
	c.Store("terceira pergunta sobre biologia marinha", "resposta três", "wikipedia", 0.9)

	// Touch the oldest so it is no longer the LRU victim.
	now = now.Add(time.Second)
	_, ok := c.Lookup("primeira pergunta sobre história antiga")
	require.True(t, ok)

	now = now.Add(time.Second)
	c.Store("quarta pergunta sobre astronomia estelar", "resposta quatro", "wikipedia", 0.9)

	assert.Equal(t, 3, c.Len())
	_, ok = c.Lookup("primeira pergunta sobre história antiga")
	assert.True(t, ok, "recently used entry must survive eviction")
	_, ok = c.Lookup("segunda pergunta sobre geografia europeia")
	assert.False(t, ok, "least recently used entry must be evicted")
}

func TestCache_Store_SameNormalizedQueryReplaces(t *testing.T) {
	c := New(createTestConfig())

	c.Store("Qual é a capital da França?", "resposta antiga", "duckduckgo", 0.8)
	c.Store("qual é a capital da frança", "resposta nova", "wikipedia", 0.9)

	assert.Equal(t, 1, c.Len())
	hit, ok := c.Lookup("Qual é a capital da França?")
	require.True(t, ok)
	assert.Equal(t, "resposta nova", hit.Answer)
}

func TestCache_ConcurrentLookups(t *testing.T) {
	c := New(createTestConfig())
	for i := 0; i < 50; i++ {
		c.Store(
			fmt.Sprintf("pergunta número %d sobre assunto %d", i, i),
			fmt.Sprintf("resposta %d", i),
			"wikipedia",
			0.9,
		)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Lookup(fmt.Sprintf("pergunta número %d sobre assunto %d", i%50, i%50))
				if w == 0 {
					c.Store(fmt.Sprintf("nova pergunta %d do escritor", i), "resposta", "duckduckgo", 0.8)
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestCache_Lookup_EmptyQuery(t *testing.T) {
	c := New(createTestConfig())
	_, ok := c.Lookup("   ")
	assert.False(t, ok)
}
