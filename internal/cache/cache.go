// Package cache implements the Query Cache (C3): a bounded LRU with TTL
// fronting the Metadata Index Client's search and facet calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry pairs a cached value with the time it was written, so Get can
// lazily evict on read once the TTL has elapsed.
type entry struct {
	value     any
	writtenAt time.Time
}

// Cache is a single named LRU with its own TTL and hit/miss counters.
// Single-writer-many-reader: a mutex guards LRU reordering and counters.
type Cache struct {
	mu   sync.Mutex
	lru  *lru.Cache[string, entry]
	ttl  time.Duration
	hits int64
	miss int64
}

// New builds a Cache with the given capacity (entry count) and TTL. A
// non-positive size defaults to 1 to keep the underlying LRU constructible.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 1
	}
	l, _ := lru.New[string, entry](size)
	return &Cache{lru: l, ttl: ttl}
}

// Key canonicalizes a query-argument map into a stable cache key: keys
// sorted, then JSON-encoded, then hashed so arbitrarily large argument sets
// still produce a short key.
func Key(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, args[k])
	}
	data, _ := json.Marshal(ordered)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key if present and not expired. Expired
// entries are evicted lazily, right here, rather than by a background
// sweep.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.miss++
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.writtenAt) > c.ttl {
		c.lru.Remove(key)
		c.miss++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores a value under key, evicting the least-recently-used entry if
// the cache is already at capacity.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{value: value, writtenAt: time.Now()})
}

// Stats is the hit/miss counter snapshot exposed by get_cache_stats.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Stats returns the current hit/miss counters and entry count.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.miss, Entries: c.lru.Len()}
}
