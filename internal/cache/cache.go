// Package cache provides a small in-memory TTL cache used to memoize
// search results and other derived read paths. Instances are constructed
// at process start and injected into the components that need them;
// there is no package-level singleton.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the fallback time-to-live for entries stored with a
// non-positive TTL. Staleness is recoverable, so it is kept short.
const DefaultTTL = 5 * time.Minute

// DefaultSweepInterval is how often the background sweep evicts expired
// entries that were never read again.
const DefaultSweepInterval = time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL key-value cache safe for concurrent use.
// Expired entries are dropped lazily on Get and proactively by a
// background sweep started with Start.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	ttl     time.Duration

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// New creates a cache with the given default TTL. A non-positive TTL
// falls back to DefaultTTL.
func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		entries:       make(map[string]entry[V]),
		ttl:           ttl,
		sweepInterval: DefaultSweepInterval,
		done:          make(chan struct{}),
	}
}

// Start launches the periodic sweep goroutine. It returns the cache for
// chaining. Close must be called to stop the sweep.
func (c *Cache[V]) Start() *Cache[V] {
	go func() {
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.done:
				return
			}
		}
	}()
	return c
}

// Close stops the sweep goroutine and drops all entries. It is safe to
// call multiple times.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.Clear()
}

// Get returns the value for key and whether it was present and fresh.
// An expired entry is deleted and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the given TTL. A non-positive TTL uses
// the cache default.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes a single key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteAll removes every given key. Used by write-path invalidation,
// which is best-effort and never fails.
func (c *Cache[V]) DeleteAll(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
