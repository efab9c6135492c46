package recent

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL is how long a fetched result is served without asking upstream
const DefaultTTL = 120 * time.Second

// Entry is a cached fetch result
type Entry struct {
	Key       string
	FetchedAt time.Time
	Tracks    []Track
}

// Cache maps request keys to the last successful fetch for that key.
//
// Entries are never evicted: an expired entry stays around as the fallback
// for a later failed fetch and is only replaced by a newer successful one.
// Whether an entry is fresh is decided by the caller through Fresh.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
}

// NewCache creates a cache. A non-positive ttl selects DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
	}
}

// CacheKey returns the key for a request
func CacheKey(user string, limit int) string {
	return fmt.Sprintf("%s_%d", user, limit)
}

// Get returns a copy of the entry for key, whatever its age
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return Entry{}, false
	}
	e.Tracks = cloneTracks(e.Tracks)
	return e, true
}

// Put stores a copy of entry under key, replacing any previous entry
func (c *Cache) Put(key string, entry Entry) {
	entry.Key = key
	entry.Tracks = cloneTracks(entry.Tracks)

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Fresh reports whether entry is younger than the TTL at now
func (c *Cache) Fresh(entry Entry, now time.Time) bool {
	return now.Sub(entry.FetchedAt) < c.ttl
}

// TTL returns the freshness window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
