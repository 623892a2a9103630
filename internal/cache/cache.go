package cache

import "sync"

// DefaultWindow is the number of generations an entry survives without
// being touched.
const DefaultWindow = 60

// Cache is a generic generational cache.
// Every hit stamps the entry with the current generation. Age advances the
// generation and evicts entries whose stamp has fallen a full window behind.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*cacheEntry[V]
	window     uint64
	generation uint64
	onEvict    func(K, V)

	// Per-generation counters, reset by Age.
	hits   uint64
	misses uint64

	// Counters published by the most recent Age.
	lastHits   uint64
	lastMisses uint64
	evictions  uint64
}

// cacheEntry holds a cached value with the generation it was last used in.
type cacheEntry[V any] struct {
	value V
	age   uint64
}

// New creates a new cache that evicts entries untouched for window
// generations. A window of 0 selects DefaultWindow.
//
// onEvict, if non-nil, is called for every entry removed by Age, Delete or
// Clear. It runs with the cache lock held and must not call back into the
// cache.
func New[K comparable, V any](window uint64, onEvict func(K, V)) *Cache[K, V] {
	if window == 0 {
		window = DefaultWindow
	}
	return &Cache[K, V]{
		entries: make(map[K]*cacheEntry[V]),
		window:  window,
		onEvict: onEvict,
	}
}

// Get retrieves a value from the cache and refreshes its age.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	entry.age = c.generation
	return entry.value, true
}

// Contains reports whether key is cached without refreshing its age.
func (c *Cache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// GetOrInsert returns the cached value for key or builds it.
//
// build is called at most once per missing key, under the cache lock, so
// concurrent callers never construct the same value twice. If build
// returns an error nothing is stored and the error is returned as is.
func (c *Cache[K, V]) GetOrInsert(key K, build func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.hits++
		entry.age = c.generation
		return entry.value, nil
	}

	value, err := build()
	if err != nil {
		var zero V
		return zero, err
	}

	c.misses++
	c.entries[key] = &cacheEntry[V]{
		value: value,
		age:   c.generation,
	}
	return value, nil
}

// Age advances the generation by one and evicts every entry that was
// last used window or more generations ago. It returns the number of
// evicted entries.
func (c *Cache[K, V]) Age() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++

	evicted := 0
	for key, entry := range c.entries {
		if entry.age+c.window > c.generation {
			continue
		}
		delete(c.entries, key)
		evicted++
		if c.onEvict != nil {
			c.onEvict(key, entry.value)
		}
	}

	c.evictions += uint64(evicted)
	c.lastHits, c.lastMisses = c.hits, c.misses
	c.hits, c.misses = 0, 0

	return evicted
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	if c.onEvict != nil {
		c.onEvict(key, entry.value)
	}
	return true
}

// Clear removes all entries from the cache.
// The generation counter is preserved.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.entries
	c.entries = make(map[K]*cacheEntry[V])
	if c.onEvict != nil {
		for key, entry := range old {
			c.onEvict(key, entry.value)
		}
	}
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Generation returns the current generation.
func (c *Cache[K, V]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.generation
}

// Window returns the eviction window in generations.
func (c *Cache[K, V]) Window() uint64 {
	return c.window
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Len:        len(c.entries),
		Generation: c.generation,
		Hits:       c.hits,
		Misses:     c.misses,
		LastHits:   c.lastHits,
		LastMisses: c.lastMisses,
		Evictions:  c.evictions,
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Generation is the current generation.
	Generation uint64
	// Hits is the number of hits in the current generation.
	Hits uint64
	// Misses is the number of misses in the current generation.
	Misses uint64
	// LastHits is the number of hits in the previous generation.
	LastHits uint64
	// LastMisses is the number of misses in the previous generation.
	LastMisses uint64
	// Evictions is the total number of entries evicted by Age.
	Evictions uint64
}

// HitRate returns the hit rate of the previous generation, 0.0 to 1.0.
func (s Stats) HitRate() float64 {
	total := s.LastHits + s.LastMisses
	if total == 0 {
		return 0
	}
	return float64(s.LastHits) / float64(total)
}
