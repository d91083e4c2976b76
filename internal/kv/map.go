// Package kv provides Map, a typed key/value map on top of hashtable.Table.
//
// Map owns the keys and values in two arenas and hands the table only
// indices into them, together with the key hashes it computes.
package kv

import (
	"github.com/pkg/errors"

	"github.com/PurpleMyst/akuli-hashtable/internal/hashtable"
)

// Map is a hash map from K to V that keeps every inserted pair, so setting
// a key twice stores two values and Get returns the first. Map is not safe
// for concurrent use.
type Map[K comparable, V any] struct {
	table  *hashtable.Table
	hasher Hasher[K]

	keys   []K
	values []V

	closed bool

	// probe is the key Get is looking for. It is addressed by probeRef so
	// the comparator can resolve it like any stored key.
	probe K
}

const probeRef = ^hashtable.Ref(0)

// New returns an empty Map that hashes keys with hasher.
func New[K comparable, V any](hasher Hasher[K], opts ...hashtable.Option) (*Map[K, V], error) {
	if hasher == nil {
		return nil, errors.New("kv: nil hasher")
	}

	m := &Map[K, V]{hasher: hasher}
	t, err := hashtable.New(hashtable.CompareFunc(m.equal), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "hashtable.New")
	}
	m.table = t
	return m, nil
}

func (m *Map[K, V]) key(r hashtable.Ref) K {
	if r == probeRef {
		return m.probe
	}
	return m.keys[r]
}

func (m *Map[K, V]) equal(a, b hashtable.Ref) (bool, error) {
	return m.key(a) == m.key(b), nil
}

// Set stores value under key. If the table cannot grow, Set returns an
// error wrapping hashtable.ErrNoMem and the map is unchanged.
func (m *Map[K, V]) Set(key K, value V) error {
	hash := m.hasher(key)

	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
	kref := hashtable.Ref(len(m.keys) - 1)
	vref := hashtable.Ref(len(m.values) - 1)

	if err := m.table.Insert(kref, hash, vref); err != nil {
		var zeroK K
		var zeroV V
		m.keys[kref] = zeroK
		m.values[vref] = zeroV
		m.keys = m.keys[:kref]
		m.values = m.values[:vref]
		return err
	}
	return nil
}

// Get returns the value stored first under key. A closed map holds no
// values, so Get reports false after Close.
func (m *Map[K, V]) Get(key K) (V, bool) {
	var zero V
	if m.closed {
		return zero, false
	}

	m.probe = key
	defer m.clearProbe()

	ref, ok, err := m.table.Get(probeRef, m.hasher(key))
	if err != nil || !ok {
		return zero, false
	}
	return m.values[ref], true
}

// GetAll returns all values stored under key in insertion order. It
// returns nil after Close.
func (m *Map[K, V]) GetAll(key K) []V {
	if m.closed {
		return nil
	}
	m.probe = key
	defer m.clearProbe()

	refs, err := m.table.GetAll(probeRef, m.hasher(key))
	if err != nil {
		return nil
	}

	values := make([]V, 0, len(refs))
	for _, r := range refs {
		values = append(values, m.values[r])
	}
	return values
}

func (m *Map[K, V]) clearProbe() {
	var zero K
	m.probe = zero
}

// Len returns the number of stored pairs.
func (m *Map[K, V]) Len() int {
	return m.table.Len()
}

// Each calls fn for every pair in insertion order until fn returns false.
func (m *Map[K, V]) Each(fn func(key K, value V) bool) {
	m.table.Each(func(k hashtable.Ref, _ uint32, v hashtable.Ref) bool {
		return fn(m.keys[k], m.values[v])
	})
}

// Stats returns the statistics of the underlying table.
func (m *Map[K, V]) Stats() hashtable.Stats {
	return m.table.Stats()
}

// Close releases the table and the arenas. Set returns
// hashtable.ErrDestroyed afterwards.
func (m *Map[K, V]) Close() {
	m.closed = true
	m.table.Destroy()
	m.keys = nil
	m.values = nil
}
