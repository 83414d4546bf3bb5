package balances

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/pkg/logger"
)

func TestCacheKey_AccountOrderInsensitive(t *testing.T) {
	a := CacheKey("2024-01-01", "2024-02-01", []string{"B", "A"}, "CAD")
	b := CacheKey("2024-01-01", "2024-02-01", []string{"A", "B"}, "CAD")
	assert.Equal(t, a, b)

	unfiltered := CacheKey("2024-01-01", "2024-02-01", nil, "CAD")
	assert.NotEqual(t, a, unfiltered)

	otherCurrency := CacheKey("2024-01-01", "2024-02-01", nil, "USD")
	assert.NotEqual(t, unfiltered, otherCurrency)
}

func TestResultCache_RoundTrip(t *testing.T) {
	db := setupCacheDB(t)
	cache := NewResultCache(db, logger.Disabled())

	stored := SeriesResult{
		StartDate: "2024-01-01",
		EndDate:   "2024-01-02",
		Currency:  "CAD",
	}
	require.NoError(t, cache.Put("alice", "k1", stored))

	var out SeriesResult
	hit, err := cache.Get("alice", "k1", &out)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "CAD", out.Currency)

	hit, err = cache.Get("bob", "k1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestResultCache_PersistsAcrossRestart(t *testing.T) {
	db := setupCacheDB(t)
	first := NewResultCache(db, logger.Disabled())
	require.NoError(t, first.Put("alice", "k1", SeriesResult{Currency: "CAD"}))

	// A fresh cache over the same database warms from disk.
	second := NewResultCache(db, logger.Disabled())
	var out SeriesResult
	hit, err := second.Get("alice", "k1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "CAD", out.Currency)
}

func TestResultCache_DiskMatchesMemoryUnderConcurrentWrites(t *testing.T) {
	db := setupCacheDB(t)
	cache := NewResultCache(db, logger.Disabled())

	// Interleave puts with invalidations. Whatever order wins, the
	// persisted rows must mirror the in-memory state, otherwise a
	// restart would resurrect entries an invalidation already dropped.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			for j := 0; j < 20; j++ {
				assert.NoError(t, cache.Put("alice", key, SeriesResult{Currency: "CAD"}))
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			assert.NoError(t, cache.Invalidate("alice"))
		}
	}()
	wg.Wait()

	var persisted int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM result_cache`).Scan(&persisted))
	assert.Equal(t, cache.Len(), persisted)

	reloaded := NewResultCache(db, logger.Disabled())
	assert.Equal(t, cache.Len(), reloaded.Len())
}

func TestResultCache_InvalidateScopedToOwner(t *testing.T) {
	cache := NewResultCache(setupCacheDB(t), logger.Disabled())
	require.NoError(t, cache.Put("alice", "k1", SeriesResult{Currency: "CAD"}))
	require.NoError(t, cache.Put("bob", "k1", SeriesResult{Currency: "CAD"}))
	require.Equal(t, 2, cache.Len())

	require.NoError(t, cache.Invalidate("alice"))

	var out SeriesResult
	hit, err := cache.Get("alice", "k1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	hit, err = cache.Get("bob", "k1", &out)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, cache.InvalidateAll())
	assert.Equal(t, 0, cache.Len())
}
