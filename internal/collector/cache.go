package collector

import (
	"sync"
	"time"

	"MarketScanner/internal/model"
)

// DefaultCacheTTL is the age at which a cached series becomes stale.
const DefaultCacheTTL = 5 * time.Minute

type cacheKey struct {
	symbol, period, interval string
}

type cacheEntry struct {
	series    model.Series
	fetchedAt time.Time
}

// CacheStats summarises cache occupancy.
type CacheStats struct {
	TotalEntries int           `json:"total_entries"`
	ValidEntries int           `json:"valid_entries"`
	TTL          time.Duration `json:"ttl"`
}

// SeriesCache holds cleaned series keyed by (symbol, period, interval). An
// entry whose age reaches the TTL is treated as absent. Entries are only
// ever replaced whole.
type SeriesCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

// NewSeriesCache creates a cache. A nil clock defaults to time.Now.
func NewSeriesCache(ttl time.Duration, now func() time.Time) *SeriesCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SeriesCache{ttl: ttl, now: now, entries: make(map[cacheKey]cacheEntry)}
}

// Get returns the cached series if it is still valid.
func (c *SeriesCache) Get(symbol, period, interval string) (model.Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey{symbol, period, interval}]
	if !ok || !c.fresh(e) {
		return model.Series{}, false
	}
	return e.series, true
}

// Put stores series under the key, stamped with the current clock.
func (c *SeriesCache) Put(symbol, period, interval string, series model.Series) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{symbol, period, interval}] = cacheEntry{series: series, fetchedAt: c.now()}
}

// Clear drops every entry.
func (c *SeriesCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

// Stats counts total and still-valid entries.
func (c *SeriesCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := CacheStats{TotalEntries: len(c.entries), TTL: c.ttl}
	for _, e := range c.entries {
		if c.fresh(e) {
			st.ValidEntries++
		}
	}
	return st
}

func (c *SeriesCache) fresh(e cacheEntry) bool {
	return c.now().Sub(e.fetchedAt) < c.ttl
}
