package cache

import (
	"container/list"
	"fmt"
	"sync"
)

// Metrics is a point-in-time snapshot of cache counters.
type Metrics struct {
	// Hits is the number of Get calls that found the key.
	Hits uint64

	// Misses is the number of Get calls that did not find the key.
	Misses uint64

	// Evictions is the number of entries removed to make room for a new key.
	// Overwriting an existing key does not count as an eviction.
	Evictions uint64

	// Invalidations is the number of Invalidate calls, not entries dropped.
	Invalidations uint64

	// CurrentSize is the number of entries at snapshot time.
	CurrentSize int

	// MaxSize is the configured capacity.
	MaxSize int
}

// HitRate returns the hit percentage across all Get calls, or 0 if the
// cache has not been read yet.
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) * 100.0 / float64(total)
}

// entry is a single cached key-value pair stored in the recency list.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded key-value cache with least-recently-used eviction.
// The zero value is not usable; construct with New.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	index   map[K]*list.Element
	recency *list.List // front = most recently used
	cap     int

	hits          uint64
	misses        uint64
	evictions     uint64
	invalidations uint64
}

// New creates an LRU cache holding at most capacity entries.
func New[K comparable, V any](capacity int) (*LRU[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	return &LRU[K, V]{
		index:   make(map[K]*list.Element, capacity),
		recency: list.New(),
		cap:     capacity,
	}, nil
}

// Get returns the value for key and whether it was present.
// A hit promotes the key to most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	c.recency.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Put inserts or overwrites the value for key. Overwriting promotes the
// key without evicting; inserting into a full cache evicts exactly one
// least-recently-used entry first.
func (c *LRU[K, V]) Put(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.recency.MoveToFront(elem)
		return nil
	}

	if c.recency.Len() >= c.cap {
		c.evictOldest()
	}

	c.index[key] = c.recency.PushFront(&entry[K, V]{key: key, value: value})
	return nil
}

// Invalidate drops every entry. The invalidation counter increments once
// per call, not once per entry.
func (c *LRU[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[K]*list.Element, c.cap)
	c.recency.Init()
	c.invalidations++
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

// Cap returns the configured capacity.
func (c *LRU[K, V]) Cap() int {
	return c.cap
}

// Metrics returns a snapshot of the cache counters.
func (c *LRU[K, V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Metrics{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		Invalidations: c.invalidations,
		CurrentSize:   c.recency.Len(),
		MaxSize:       c.cap,
	}
}

// ResetMetrics zeroes all counters without touching cached entries.
func (c *LRU[K, V]) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits = 0
	c.misses = 0
	c.evictions = 0
	c.invalidations = 0
}

// evictOldest removes the least-recently-used entry.
// Caller must hold the lock.
func (c *LRU[K, V]) evictOldest() {
	oldest := c.recency.Back()
	if oldest == nil {
		return
	}
	c.recency.Remove(oldest)
	delete(c.index, oldest.Value.(*entry[K, V]).key)
	c.evictions++
}
