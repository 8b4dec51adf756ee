package cache

// Cache is a bounded least-recently-used map.
// When an insertion pushes the size past the capacity, the least recently
// used entry is evicted and handed to the eviction callback, if any.
type Cache[K comparable, V any] struct {
	entries  map[K]*lruNode[K, V]
	lru      lruList[K, V]
	capacity int
	onEvict  func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most capacity entries.
// A capacity of zero or less disables storage.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache[K, V]{
		entries:  make(map[K]*lruNode[K, V]),
		capacity: capacity,
	}
}

// OnEvict registers fn to run for every entry removed by eviction, Delete,
// or Clear. It is also called for values rejected by a zero-capacity cache,
// so ownership of a value passed to Set always ends with the cache.
func (c *Cache[K, V]) OnEvict(fn func(K, V)) {
	c.onEvict = fn
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	node, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.lru.MoveToFront(node)
	return node.value, true
}

// Peek returns the value for key without touching recency or statistics.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	node, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return node.value, true
}

// Set stores value under key, replacing and releasing any previous value.
func (c *Cache[K, V]) Set(key K, value V) {
	if c.capacity == 0 {
		c.release(key, value)
		return
	}
	if node, ok := c.entries[key]; ok {
		old := node.value
		node.value = value
		c.lru.MoveToFront(node)
		c.release(key, old)
		return
	}
	c.entries[key] = c.lru.PushFront(key, value)
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Oldest()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.key)
		c.evictions++
		c.release(oldest.key, oldest.value)
	}
}

// GetOrCreate returns the cached value for key, calling create on a miss and
// storing its result.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := create()
	if c.capacity > 0 {
		c.Set(key, v)
	}
	return v
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	node, ok := c.entries[key]
	if !ok {
		return false
	}
	c.lru.Remove(node)
	delete(c.entries, key)
	c.release(key, node.value)
	return true
}

// Clear removes every entry, oldest first.
func (c *Cache[K, V]) Clear() {
	for node := c.lru.Oldest(); node != nil; node = node.prev {
		c.release(node.key, node.value)
	}
	c.entries = make(map[K]*lruNode[K, V])
	c.lru.Clear()
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Capacity returns the configured bound.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Each calls fn for every entry from most to least recently used.
func (c *Cache[K, V]) Each(fn func(K, V)) {
	for node := c.lru.head; node != nil; node = node.next {
		fn(node.key, node.value)
	}
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache[K, V]) release(key K, value V) {
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
