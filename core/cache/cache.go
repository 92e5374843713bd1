// Package cache provides the in-memory cache tier for sefer documents.
//
// The memory tier is the fastest path of the tiered loader: a
// process-lifetime map from sefer identifier to parsed document,
// populated lazily and cleared only when the owning loader is discarded.
// The corpus is five entries at most, so there is no eviction policy;
// the cache simply tracks hits and misses.
//
// A cache instance is constructor-injected into its owner (the loader);
// there is no package-level singleton.
package cache

import (
	"sync"

	"github.com/torahstudy/limud/core/torah"
)

// Cache is a generic key-value cache interface.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache.
	Get(key K) (V, bool)

	// Put stores a value in the cache.
	Put(key K, value V)

	// Remove removes a value from the cache.
	Remove(key K)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Keys returns the keys currently resident in the cache.
	Keys() []K

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// mapCache is a thread-safe map-backed cache implementation.
type mapCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	stats   Stats
}

// NewMapCache creates a new empty map-backed cache.
func NewMapCache[K comparable, V any]() Cache[K, V] {
	return &mapCache[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves a value from the cache.
func (c *mapCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return value, true
}

// Put stores a value in the cache.
func (c *mapCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Remove removes a value from the cache.
func (c *mapCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries from the cache.
func (c *mapCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]V)
}

// Len returns the number of entries in the cache.
func (c *mapCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the keys currently resident in the cache.
func (c *mapCache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns cache statistics.
func (c *mapCache[K, V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.Size = len(c.entries)
	return s
}

// SeferCache is a specialized in-memory cache for sefer documents.
type SeferCache struct {
	cache Cache[int, *torah.Sefer]
}

// NewSeferCache creates a new empty sefer cache.
func NewSeferCache() *SeferCache {
	return &SeferCache{
		cache: NewMapCache[int, *torah.Sefer](),
	}
}

// Get retrieves a sefer from the cache by its identifier.
func (c *SeferCache) Get(seferID int) (*torah.Sefer, bool) {
	return c.cache.Get(seferID)
}

// Put stores a sefer in the cache.
func (c *SeferCache) Put(seferID int, sefer *torah.Sefer) {
	c.cache.Put(seferID, sefer)
}

// Has reports whether a sefer is resident without counting a hit or miss.
func (c *SeferCache) Has(seferID int) bool {
	for _, k := range c.cache.Keys() {
		if k == seferID {
			return true
		}
	}
	return false
}

// Remove removes a sefer from the cache.
func (c *SeferCache) Remove(seferID int) {
	c.cache.Remove(seferID)
}

// Clear removes all sefarim from the cache.
func (c *SeferCache) Clear() {
	c.cache.Clear()
}

// Len returns the number of cached sefarim.
func (c *SeferCache) Len() int {
	return c.cache.Len()
}

// Stats returns cache statistics.
func (c *SeferCache) Stats() Stats {
	return c.cache.Stats()
}
