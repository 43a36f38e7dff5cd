// Package bucketmap implements the keyed-map collaborator described in
// the external interfaces: get/put/iter-with-continue-or-delete/filter/
// size/destroy, over a plain Go map the same way the teacher caches its
// counters/gauges/timings as map[string]cachedX with a manual expiry
// sweep instead of reaching for an eviction-bounded cache library.
package bucketmap

import "github.com/statsrelay/relaycore/collab"

type entry[V any] struct {
	value    V
	metadata any
}

// Map is a generic keyed store with the iteration contract the sampler
// and elider both rely on for their expiry sweeps.
type Map[V any] struct {
	data map[string]entry[V]
}

// New allocates a Map with the given initial capacity hint.
func New[V any](capacity int) *Map[V] {
	return &Map[V]{data: make(map[string]entry[V], capacity)}
}

// Get returns the value stored for key, if any.
func (m *Map[V]) Get(key string) (V, bool) {
	e, ok := m.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put inserts or replaces the value and metadata stored for key.
func (m *Map[V]) Put(key string, value V, metadata any) {
	m.data[key] = entry[V]{value: value, metadata: metadata}
}

// Iter visits every entry, calling fn with the key, value, and metadata.
// Entries for which fn returns collab.Delete are removed during the same
// pass; it is safe to delete while iterating a Go map.
func (m *Map[V]) Iter(fn func(key string, value V, metadata any) collab.IterDecision) {
	for k, e := range m.data {
		if fn(k, e.value, e.metadata) == collab.Delete {
			delete(m.data, k)
		}
	}
}

// Filter removes every entry for which predicate returns false.
func (m *Map[V]) Filter(predicate func(key string, value V, metadata any) bool) {
	for k, e := range m.data {
		if !predicate(k, e.value, e.metadata) {
			delete(m.data, k)
		}
	}
}

// Size returns the number of entries currently stored.
func (m *Map[V]) Size() int {
	return len(m.data)
}

// Destroy releases every entry. The Map is empty but still usable
// afterwards.
func (m *Map[V]) Destroy() {
	m.data = make(map[string]entry[V])
}
