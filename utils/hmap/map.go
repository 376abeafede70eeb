// Package hmap is a mutable hash table for keys that Go maps cannot hold
// directly, such as abstract states compared up to equivalence.
package hmap

import "github.com/benbjohnson/immutable"

type entry[K, V any] struct {
	key   K
	value V
}

// Map keeps colliding entries in per-hash buckets.
type Map[K, V any] struct {
	hasher  immutable.Hasher[K]
	buckets map[uint32][]entry[K, V]
	size    int
}

func New[K, V any](hasher immutable.Hasher[K]) *Map[K, V] {
	return &Map[K, V]{
		hasher:  hasher,
		buckets: make(map[uint32][]entry[K, V]),
	}
}

func (m *Map[K, V]) find(key K) (h uint32, i int) {
	h = m.hasher.Hash(key)
	for i, e := range m.buckets[h] {
		if m.hasher.Equal(key, e.key) {
			return h, i
		}
	}
	return h, -1
}

func (m *Map[K, V]) Lookup(key K) (v V, ok bool) {
	h, i := m.find(key)
	if i < 0 {
		return v, false
	}
	return m.buckets[h][i].value, true
}

func (m *Map[K, V]) Set(key K, value V) {
	m.Update(key, func(V, bool) V { return value })
}

// Update stores f applied to the current value of key (the zero value when
// absent) and returns the stored value.
func (m *Map[K, V]) Update(key K, f func(old V, found bool) V) V {
	h, i := m.find(key)
	if i >= 0 {
		b := m.buckets[h]
		b[i].value = f(b[i].value, true)
		return b[i].value
	}

	var zero V
	v := f(zero, false)
	m.buckets[h] = append(m.buckets[h], entry[K, V]{key, v})
	m.size++
	return v
}

func (m *Map[K, V]) Len() int {
	return m.size
}

// Range visits the entries in no particular order until do returns false.
func (m *Map[K, V]) Range(do func(K, V) bool) {
	for _, b := range m.buckets {
		for _, e := range b {
			if !do(e.key, e.value) {
				return
			}
		}
	}
}
