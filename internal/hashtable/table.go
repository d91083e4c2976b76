// Package hashtable implements a chained hash table over caller-owned keys
// and values.
//
// The caller computes a 32-bit hash for every key and supplies a Comparator
// to decide key equality. The table stores Refs, opaque handles to the
// caller's data, together with the hash, and never derives or recomputes a
// hash itself. Equal keys may be inserted more than once; every such entry
// is kept and Get returns the one inserted first.
//
// A Table is not safe for concurrent use.
package hashtable

import (
	"unsafe"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const bucketSize = int(unsafe.Sizeof(uint32(0)))

// Table is a chained hash table mapping key Refs to value Refs.
//
// The buckets hold only the index of the first entry of their chain, the
// entries themselves live in an entryStore. This way only the bucket array
// has to be reallocated when the table grows.
type Table struct {
	// The number of buckets is always a power of two and never zero,
	// except after Destroy.
	buckets    []uint32
	numentries uint32
	entries    *entryStore

	cmp  Comparator
	opts options

	grows      int
	duplicates int
}

// New returns an empty table that uses cmp to compare keys.
func New(cmp Comparator, opts ...Option) (*Table, error) {
	if cmp == nil {
		return nil, ErrNilComparator
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.capacity > o.maxCapacity {
		o.capacity = o.maxCapacity
	}

	entries, err := newEntryStore(o.alloc)
	if err != nil {
		return nil, noMem(err)
	}

	buckets, err := allocBuckets(o.alloc, o.capacity)
	if err != nil {
		entries.release()
		return nil, err
	}

	return &Table{
		buckets: buckets,
		entries: entries,
		cmp:     cmp,
		opts:    o,
	}, nil
}

func allocBuckets(alloc Allocator, n uint32) ([]uint32, error) {
	if err := alloc.Allocate(int(n) * bucketSize); err != nil {
		return nil, noMem(err)
	}
	return make([]uint32, n), nil
}

// Destroy releases the storage of the table. The keys and values the table
// referred to are not touched. Any later call on t returns ErrDestroyed.
func (t *Table) Destroy() {
	if t.buckets == nil {
		return
	}
	t.opts.alloc.Free(len(t.buckets) * bucketSize)
	t.entries.release()

	t.buckets = nil
	t.entries = nil
	t.numentries = 0
}

// Len returns the number of entries, counting duplicates.
func (t *Table) Len() int {
	return int(t.numentries)
}

// Cap returns the number of buckets.
func (t *Table) Cap() int {
	return len(t.buckets)
}

func (t *Table) bucket(hash uint32) uint32 {
	return hash & uint32(len(t.buckets)-1)
}

// Insert adds an entry for key with the given hash and value.
//
// If the table already holds an entry with an equal key, a second entry is
// added; Get keeps returning the older one. A comparator error is returned
// unchanged and leaves the table as it was. If the table needs to grow and
// cannot obtain storage, Insert returns ErrNoMem and the table keeps its
// previous capacity and contents.
func (t *Table) Insert(key Ref, hash uint32, value Ref) error {
	if t.buckets == nil {
		return ErrDestroyed
	}

	// Walk the chain first so that a failing comparator aborts before
	// anything is modified.
	duplicate := false
	for i := t.buckets[t.bucket(hash)]; i != 0 && !duplicate; {
		e := t.entries.ref(i)
		if e.hash == hash {
			eq, err := t.cmp.Equal(e.key, key)
			if err != nil {
				return err
			}
			duplicate = eq
		}
		i = e.next
	}

	if err := t.entries.reserve(); err != nil {
		return noMem(err)
	}

	if t.overloaded(t.numentries + 1) {
		if err := t.grow(); err != nil {
			return err
		}
	}

	idx := t.entries.add(entry{key: key, value: value, hash: hash})
	t.link(t.bucket(hash), idx)
	t.numentries++
	if duplicate {
		t.duplicates++
	}
	return nil
}

func (t *Table) overloaded(n uint32) bool {
	return uint64(n)*maxLoadDen > uint64(len(t.buckets))*maxLoadNum
}

// link appends entry idx to the end of the chain of bucket b.
func (t *Table) link(b, idx uint32) {
	i := t.buckets[b]
	if i == 0 {
		t.buckets[b] = idx
		return
	}
	for {
		e := t.entries.ref(i)
		if e.next == 0 {
			e.next = idx
			return
		}
		i = e.next
	}
}

// grow doubles the bucket array and relinks all entries using their stored
// hashes. The comparator is not consulted. The new array is complete before
// it replaces the old one.
func (t *Table) grow() error {
	oldSize := uint32(len(t.buckets))
	if oldSize >= t.opts.maxCapacity {
		return errors.Wrapf(ErrNoMem, "capacity limit of %d buckets reached", t.opts.maxCapacity)
	}
	newSize := oldSize * growthFactor

	buckets, err := allocBuckets(t.opts.alloc, newSize)
	if err != nil {
		return err
	}

	// Prepending in reverse insertion order leaves every chain in
	// insertion order.
	mask := newSize - 1
	for i := t.entries.len(); i > 0; i-- {
		e := t.entries.ref(i)
		b := e.hash & mask
		e.next = buckets[b]
		buckets[b] = i
	}

	t.opts.alloc.Free(int(oldSize) * bucketSize)
	t.buckets = buckets
	t.grows++

	t.opts.log.WithFields(log.Fields{
		"from":    oldSize,
		"to":      newSize,
		"entries": t.numentries,
	}).Debug("hashtable grown")
	return nil
}

// Get returns the value of the first inserted entry whose key equals key.
// The second result reports whether such an entry exists. A comparator
// error stops the search and is returned unchanged.
func (t *Table) Get(key Ref, hash uint32) (Ref, bool, error) {
	if t.buckets == nil {
		return 0, false, ErrDestroyed
	}

	for i := t.buckets[t.bucket(hash)]; i != 0; {
		e := t.entries.ref(i)
		if e.hash == hash {
			eq, err := t.cmp.Equal(e.key, key)
			if err != nil {
				return 0, false, err
			}
			if eq {
				return e.value, true, nil
			}
		}
		i = e.next
	}
	return 0, false, nil
}

// GetAll returns the values of all entries whose key equals key, in
// insertion order.
func (t *Table) GetAll(key Ref, hash uint32) ([]Ref, error) {
	if t.buckets == nil {
		return nil, ErrDestroyed
	}

	var values []Ref
	for i := t.buckets[t.bucket(hash)]; i != 0; {
		e := t.entries.ref(i)
		if e.hash == hash {
			eq, err := t.cmp.Equal(e.key, key)
			if err != nil {
				return nil, err
			}
			if eq {
				values = append(values, e.value)
			}
		}
		i = e.next
	}
	return values, nil
}

// Each calls fn for every entry in insertion order until fn returns false.
func (t *Table) Each(fn func(key Ref, hash uint32, value Ref) bool) {
	if t.buckets == nil {
		return
	}
	n := t.entries.len()
	for i := uint32(1); i <= n; i++ {
		e := t.entries.ref(i)
		if !fn(e.key, e.hash, e.value) {
			return
		}
	}
}
