package cache

import (
	"sync/atomic"
)

// Statistics tracks cache effectiveness. Counters are atomic so a snapshot may
// be read without holding the lock that guards the cache itself.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	inserts   atomic.Int64
	evictions atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

func (s *Statistics) hit()      { s.hits.Add(1) }
func (s *Statistics) miss()     { s.misses.Add(1) }
func (s *Statistics) insert()   { s.inserts.Add(1) }
func (s *Statistics) eviction() { s.evictions.Add(1) }

// Hits returns the number of lookups that found their key.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the number of lookups that did not find their key.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Inserts returns the number of insert operations, updates included.
func (s *Statistics) Inserts() int64 { return s.inserts.Load() }

// Evictions returns the number of entries dropped for capacity.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Reset zeroes all counters.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.inserts.Store(0)
	s.evictions.Store(0)
}

// StatsSummary is a point-in-time copy of Statistics.
type StatsSummary struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Inserts   int64   `json:"inserts"`
	Evictions int64   `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Hits:      s.Hits(),
		Misses:    s.Misses(),
		Inserts:   s.Inserts(),
		Evictions: s.Evictions(),
		HitRatio:  s.HitRatio(),
	}
}
