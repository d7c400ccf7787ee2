// Package memcache provides an in-memory store bounded by the summed
// memory cost of its entries, evicting the least recently used entries
// under pressure.
package memcache

import (
	"sync"
	"sync/atomic"
)

// Store maps keys to values, charging each entry a caller-supplied cost
// in bytes against a fixed budget. All methods are safe for concurrent
// use, and concurrent Gets do not block one another: recency is tracked
// with per-entry atomic sequence stamps rather than a shared list.
type Store[K comparable, V any] struct {
	budget int64

	clock atomic.Uint64 // source of access-order stamps

	mu      sync.RWMutex
	entries map[K]*entry[V]
	cost    int64

	evictions atomic.Uint64
}

// entry pairs a value with its cost and last-access stamp. Entries are
// immutable after insertion except for the stamp, so a value read under
// the read lock stays valid after release.
type entry[V any] struct {
	val  V
	cost int64
	seq  atomic.Uint64
}

// New creates a store bounded to budget bytes of summed entry cost.
// A non-positive budget disables storage: every Set is rejected.
func New[K comparable, V any](budget int64) *Store[K, V] {
	return &Store[K, V]{
		budget:  budget,
		entries: make(map[K]*entry[V]),
	}
}

// Get returns the value for key and marks it most recently used.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	var val V
	if ok {
		e.seq.Store(s.clock.Add(1))
		val = e.val
	}
	s.mu.RUnlock()
	return val, ok
}

// Set inserts or replaces the value for key and evicts least recently
// used entries until the store fits its budget again. The inserted entry
// is the most recently used and is never evicted by its own insertion.
//
// Set reports whether the value was stored: a negative cost, or a cost
// larger than the whole budget, is rejected, and a rejected replacement
// leaves the previous entry in place.
func (s *Store[K, V]) Set(key K, val V, cost int64) bool {
	if cost < 0 || cost > s.budget || s.budget <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.cost -= old.cost
	}

	for s.cost+cost > s.budget {
		if !s.evictOldest() {
			break
		}
	}

	e := &entry[V]{val: val, cost: cost}
	e.seq.Store(s.clock.Add(1))
	s.entries[key] = e
	s.cost += cost
	return true
}

// Delete removes the entry for key, reporting whether one existed.
func (s *Store[K, V]) Delete(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	s.cost -= e.cost
	return true
}

// evictOldest removes the entry with the smallest access stamp.
// Called with the write lock held.
func (s *Store[K, V]) evictOldest() bool {
	var (
		oldestKey K
		oldest    *entry[V]
		oldestSeq uint64
	)
	for k, e := range s.entries {
		if seq := e.seq.Load(); oldest == nil || seq < oldestSeq {
			oldestKey, oldest, oldestSeq = k, e, seq
		}
	}
	if oldest == nil {
		return false
	}
	delete(s.entries, oldestKey)
	s.cost -= oldest.cost
	s.evictions.Add(1)
	return true
}

// Len returns the number of resident entries.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Cost returns the summed cost of resident entries in bytes.
func (s *Store[K, V]) Cost() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cost
}

// Budget returns the configured cost bound in bytes.
func (s *Store[K, V]) Budget() int64 {
	return s.budget
}

// Evictions returns the number of entries evicted under budget pressure.
// Deletes and replacements do not count.
func (s *Store[K, V]) Evictions() uint64 {
	return s.evictions.Load()
}
