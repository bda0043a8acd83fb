package database

import (
	"fmt"
	"sync"
	"time"
)

const cacheTTL = 30 * time.Second

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

// queryCache is a process-local read cache keyed by (query, args). Any write
// flushes it entirely; with a 30s TTL that is cheaper than tracking which
// tables a query touched.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newQueryCache(ttl time.Duration) *queryCache {
	return &queryCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func cacheKey(query string, args []interface{}) string {
	return query + "|" + fmt.Sprintf("%v", args)
}

func (c *queryCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *queryCache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: time.Now().Add(c.ttl)}
}

func (c *queryCache) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
