package cache

import (
	"container/list"
	"fmt"
)

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a fixed-capacity mapping that evicts the least recently used key
// when full. The front of the recency list is the most recent entry.
//
// LRU is NOT safe for concurrent use; embed it behind the caller's own lock.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
	stats    *Statistics
}

// NewLRU creates an LRU holding at most capacity entries.
// It panics if capacity < 1.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	mustCapacity(capacity)
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		stats:    NewStatistics(),
	}
}

func mustCapacity(capacity int) {
	if capacity < 1 {
		panic(fmt.Sprintf("cache: LRU capacity must be >= 1, got %d", capacity))
	}
}

// Insert stores value under key and marks it most recent. When a new key
// pushes the cache past capacity, the least recent entry is evicted and its
// value returned with ok=true. Updating an existing key never evicts.
func (c *LRU[K, V]) Insert(key K, value V) (evicted V, ok bool) {
	c.stats.insert()

	if element, exists := c.items[key]; exists {
		element.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(element)
		return evicted, false
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})

	if len(c.items) > c.capacity {
		_, evicted = c.evictOldest()
		return evicted, true
	}
	return evicted, false
}

// Get returns the value for key and marks it most recent.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	element, exists := c.items[key]
	if !exists {
		c.stats.miss()
		var zero V
		return zero, false
	}
	c.stats.hit()
	c.order.MoveToFront(element)
	return element.Value.(*lruEntry[K, V]).value, true
}

// Peek returns the value for key without touching recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	element, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}
	return element.Value.(*lruEntry[K, V]).value, true
}

// ContainsKey reports presence without touching recency.
func (c *LRU[K, V]) ContainsKey(key K) bool {
	_, exists := c.items[key]
	return exists
}

// Remove deletes key and returns its value.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	element, exists := c.items[key]
	if !exists {
		var zero V
		return zero, false
	}
	entry := c.removeElement(element)
	return entry.value, true
}

// MostRecent returns the most recently used entry.
func (c *LRU[K, V]) MostRecent() (K, V, bool) {
	return entryOf[K, V](c.order.Front())
}

// LeastRecent returns the entry that would be evicted next.
func (c *LRU[K, V]) LeastRecent() (K, V, bool) {
	return entryOf[K, V](c.order.Back())
}

// SetCapacity changes the capacity, evicting least recent entries until the
// size fits. It returns the number of evicted entries and panics if capacity < 1.
func (c *LRU[K, V]) SetCapacity(capacity int) int {
	mustCapacity(capacity)
	c.capacity = capacity

	evicted := 0
	for len(c.items) > c.capacity {
		c.evictOldest()
		evicted++
	}
	return evicted
}

// Capacity returns the maximum number of entries.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cache holds no entries.
func (c *LRU[K, V]) IsEmpty() bool {
	return len(c.items) == 0
}

// Keys returns all keys from most to least recent.
func (c *LRU[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*lruEntry[K, V]).key)
	}
	return keys
}

// Clear removes all entries. Capacity and statistics are kept.
func (c *LRU[K, V]) Clear() {
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Stats returns the statistics tracker.
func (c *LRU[K, V]) Stats() *Statistics {
	return c.stats
}

func (c *LRU[K, V]) evictOldest() (K, V) {
	entry := c.removeElement(c.order.Back())
	c.stats.eviction()
	return entry.key, entry.value
}

func (c *LRU[K, V]) removeElement(element *list.Element) *lruEntry[K, V] {
	entry := element.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	return entry
}

func entryOf[K comparable, V any](element *list.Element) (K, V, bool) {
	if element == nil {
		var (
			zeroK K
			zeroV V
		)
		return zeroK, zeroV, false
	}
	entry := element.Value.(*lruEntry[K, V])
	return entry.key, entry.value, true
}
