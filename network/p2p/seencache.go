package p2p

import (
	"sync"
	"time"
)

// SeenCache is a bounded record of recently forwarded message IDs used
// to suppress duplicate relays. Entries expire after a TTL; when the
// cache is full the oldest entry is evicted first, so memory stays
// bounded even under flood.
type SeenCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	order   []string
	ttl     time.Duration
	cap     int
}

// NewSeenCache creates a cache holding at most capacity IDs for ttl.
func NewSeenCache(ttl time.Duration, capacity int) *SeenCache {
	if capacity <= 0 {
		capacity = 8192
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SeenCache{
		entries: make(map[string]time.Time, capacity),
		order:   make([]string, 0, capacity),
		ttl:     ttl,
		cap:     capacity,
	}
}

// AddIfNew records id and reports whether it was previously unseen
// within the TTL window. A single lock covers check and insert so
// concurrent relays of the same message race to exactly one winner.
func (c *SeenCache) AddIfNew(id string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.entries[id]; ok && now.Sub(at) < c.ttl {
		return false
	}

	c.pruneLocked(now)
	if _, ok := c.entries[id]; !ok {
		c.order = append(c.order, id)
	}
	c.entries[id] = now
	return true
}

// Seen reports whether id is currently recorded.
func (c *SeenCache) Seen(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	at, ok := c.entries[id]
	return ok && time.Since(at) < c.ttl
}

// Len returns the number of live entries.
func (c *SeenCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// pruneLocked drops expired entries, then evicts oldest-first until the
// cache is under capacity. Caller holds the write lock.
func (c *SeenCache) pruneLocked(now time.Time) {
	kept := c.order[:0]
	for _, id := range c.order {
		at, ok := c.entries[id]
		if !ok {
			continue
		}
		if now.Sub(at) >= c.ttl {
			delete(c.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept

	for len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
