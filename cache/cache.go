// Package cache memoises extraction-service replies so re-running the
// extraction stage over the same artifact does not pay for the same
// completion twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// entry holds a cached completion with its creation timestamp.
type entry struct {
	text      string
	createdAt time.Time
}

// Cache is an in-memory completion cache bounded by size and age.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries completions for ttl each.
// A background goroutine evicts expired entries until Close is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	go c.cleanupLoop(interval)
	return c
}

// Key derives a cache key from the model and both prompt messages.
func Key(model, system, user string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte("|"))
	h.Write([]byte(system))
	h.Write([]byte("|"))
	h.Write([]byte(user))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached completion for key if it has not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > c.ttl {
		return "", false
	}
	return e.text, true
}

// Set stores a completion. If the cache is at capacity, an arbitrary
// entry is evicted to make room.
func (c *Cache) Set(key, text string) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		// Map iteration order is random.
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{text: text, createdAt: c.now()}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
