// Package cache provides a bounded, recency-ordered LRU mapping used by the
// change-detection subsystems (see hotreload.Detector).
//
// The cache is a map plus a doubly linked recency list:
//
//	c := cache.NewLRU[string, int](3)
//	c.Insert("a", 1)
//	c.Insert("b", 2)
//	c.Insert("c", 3)
//	c.Get("a")                    // "a" becomes most recent
//	old, evicted := c.Insert("d", 4) // evicts "b": old == 2, evicted == true
//
// Contracts:
//
//   - Insert returns the evicted value only when an eviction occurred; updating
//     an existing key refreshes its recency and returns ok=false.
//   - Get refreshes recency; Peek and ContainsKey do not.
//   - SetCapacity evicts least recent entries until the size fits.
//   - A capacity below 1 is a programmer error and panics.
//
// LRU is not internally synchronized. Callers that share one across goroutines
// wrap it in their own mutex. Statistics (hits, misses, evictions) are always
// collected and are safe to read concurrently.
package cache
