package balances

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// ResultCache memoizes computed balance series per owner. Entries live
// in memory behind a RWMutex and are mirrored to the result_cache table
// in cache.db so a restart does not cold-start every dashboard load.
// Invalidation is coarse: any ingest for an owner drops all of that
// owner's entries, never a partial set, so readers can never observe a
// mix of pre- and post-ingest results.
type ResultCache struct {
	db  *sql.DB
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[string]map[string][]byte
}

// NewResultCache creates the cache and loads persisted entries.
func NewResultCache(db *sql.DB, log zerolog.Logger) *ResultCache {
	c := &ResultCache{
		db:      db,
		log:     log.With().Str("service", "result_cache").Logger(),
		entries: make(map[string]map[string][]byte),
	}
	if err := c.load(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to load persisted cache, starting cold")
	}
	return c
}

// CacheKey derives the lookup key for one query shape. Account filters
// are order-insensitive.
func CacheKey(startDate, endDate string, accounts []string, currency string) string {
	filter := "*"
	if len(accounts) > 0 {
		sorted := make([]string, len(accounts))
		copy(sorted, accounts)
		sort.Strings(sorted)
		filter = strings.Join(sorted, ",")
	}
	return fmt.Sprintf("balances|%s|%s|%s|%s", startDate, endDate, filter, currency)
}

// Get returns the cached payload decoded into out. ok is false on miss.
func (c *ResultCache) Get(owner, key string, out interface{}) (bool, error) {
	c.mu.RLock()
	ownerEntries, found := c.entries[owner]
	var payload []byte
	if found {
		payload, found = ownerEntries[key]
	}
	c.mu.RUnlock()

	if !found {
		return false, nil
	}
	if err := msgpack.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return true, nil
}

// Put stores a computed result for an owner, replacing any previous
// entry under the same key.
func (c *ResultCache) Put(owner, key string, value interface{}) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode result for cache: %w", err)
	}

	// The insert happens under the lock so a concurrent Invalidate
	// cannot interleave between the memory write and the persist and
	// leave a dropped row on disk for the next load().
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[owner] == nil {
		c.entries[owner] = make(map[string][]byte)
	}
	c.entries[owner][key] = payload

	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO result_cache (owner, cache_key, payload, computed_at)
		VALUES (?, ?, ?, ?)
	`, owner, key, payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}
	return nil
}

// Invalidate drops every cached entry for an owner. Memory and disk
// are cleared under the same lock hold, so the two always agree.
func (c *ResultCache) Invalidate(owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, owner)

	if _, err := c.db.Exec(`DELETE FROM result_cache WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", owner, err)
	}
	c.log.Debug().Str("owner", owner).Msg("Result cache invalidated")
	return nil
}

// InvalidateAll drops every cached entry for every owner. Used after
// rate and price syncs, which can shift any owner's valuations.
func (c *ResultCache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string][]byte)

	if _, err := c.db.Exec(`DELETE FROM result_cache`); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	c.log.Debug().Msg("Result cache fully invalidated")
	return nil
}

// Len reports the number of live entries across all owners.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, ownerEntries := range c.entries {
		n += len(ownerEntries)
	}
	return n
}

func (c *ResultCache) load() error {
	rows, err := c.db.Query(`SELECT owner, cache_key, payload FROM result_cache`)
	if err != nil {
		return fmt.Errorf("failed to read persisted cache: %w", err)
	}
	defer rows.Close()

	loaded := 0
	c.mu.Lock()
	defer c.mu.Unlock()
	for rows.Next() {
		var owner, key string
		var payload []byte
		if err := rows.Scan(&owner, &key, &payload); err != nil {
			return fmt.Errorf("failed to scan cache row: %w", err)
		}
		if c.entries[owner] == nil {
			c.entries[owner] = make(map[string][]byte)
		}
		c.entries[owner][key] = payload
		loaded++
	}
	if loaded > 0 {
		c.log.Info().Int("entries", loaded).Msg("Result cache warmed from disk")
	}
	return rows.Err()
}
