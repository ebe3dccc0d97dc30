// Package cache implements the symmetric distance cache consulted during
// HNSW graph construction (spec §4.2). Keys are canonicalised to
// (min(i,j), max(i,j)) so insertion order never matters. Its capacity is an
// advisory pre-allocation hint: entries are never evicted.
package cache

import "sync"

// key is a canonicalised (i,j) pair with i <= j.
type key struct {
	lo, hi uint32
}

// Cache is a symmetric pair -> distance cache with an advisory capacity
// hint. It is not shared across concurrent graph constructions; each Graph
// owns exactly one.
type Cache struct {
	mu sync.Mutex

	m        map[key]float32
	capacity int

	hits   uint64
	misses uint64
}

// New creates a Cache pre-sized to capacity entries. A capacity of 0 is
// valid; the cache still works, it just starts with no pre-allocation.
func New(capacity int) *Cache {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache{
		m:        make(map[key]float32, capacity),
		capacity: capacity,
	}
}

func canon(i, j uint32) key {
	if i <= j {
		return key{i, j}
	}
	return key{j, i}
}

// GetValue returns the cached distance between i and j, computing and
// storing it via compute if absent. A single caller triggers compute at
// most once per distinct unordered pair until Resize drops the entries;
// compute runs outside the lock, so concurrent misses on the same pair may
// each call it.
func (c *Cache) GetValue(i, j uint32, compute func(i, j uint32) float32) float32 {
	k := canon(i, j)

	c.mu.Lock()
	if d, ok := c.m[k]; ok {
		c.hits++
		c.mu.Unlock()
		return d
	}
	c.misses++
	c.mu.Unlock()

	d := compute(i, j)

	c.mu.Lock()
	c.m[k] = d
	c.mu.Unlock()

	return d
}

// Resize grows or shrinks the cache's advisory capacity. When preserve is
// false, all entries are dropped; the hit/miss counters are never reset by
// Resize.
func (c *Cache) Resize(newCapacity int, preserve bool) {
	if newCapacity < 0 {
		newCapacity = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = newCapacity

	if !preserve {
		c.m = make(map[key]float32, newCapacity)
		return
	}

	if len(c.m) > newCapacity {
		// Advisory only: a hash map cannot cheaply evict to an exact size,
		// so we simply stop pretending the hint still bounds memory and
		// keep the existing entries.
		return
	}

	grown := make(map[key]float32, newCapacity)
	for k, v := range c.m {
		grown[k] = v
	}
	c.m = grown
}

// Len reports the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// HitRate returns hits / (hits + misses), or 0 if the cache has never been
// queried. It is monotonically non-decreasing in [0,1] as repeated queries
// hit the same pairs.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Counts returns the raw hit/miss counters, mainly for diagnostics and
// tests.
func (c *Cache) Counts() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
