package hashtable

import (
	"io"
	"math/bits"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultCapacity is the number of buckets of a new table.
	DefaultCapacity = 8

	// maxLoadNum/maxLoadDen is the load factor a table never exceeds after
	// an insert completes.
	maxLoadNum = 3
	maxLoadDen = 4

	growthFactor = 2 // Must be a power of 2.

	// hard upper bound for the bucket array, bucket indices are uint32.
	maxBuckets = 1 << 31
)

// An Allocator is asked for permission before the table allocates storage.
// Allocate returns a non-nil error to refuse a request of size bytes; the
// table then reports ErrNoMem. Free is called with the size of storage the
// table no longer holds.
type Allocator interface {
	Allocate(size int) error
	Free(size int)
}

type unlimited struct{}

func (unlimited) Allocate(int) error { return nil }
func (unlimited) Free(int)           {}

// Budget is an Allocator that grants requests until a fixed number of bytes
// is in use.
type Budget struct {
	limit int
	used  int
}

// NewBudget returns a Budget allowing up to limit bytes.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Allocate reserves size bytes, or fails if that would exceed the limit.
func (b *Budget) Allocate(size int) error {
	if b.used+size > b.limit {
		return errors.Errorf("budget exhausted: %d of %d bytes used, %d requested", b.used, b.limit, size)
	}
	b.used += size
	return nil
}

// Free returns size bytes to the budget.
func (b *Budget) Free(size int) {
	b.used -= size
	if b.used < 0 {
		b.used = 0
	}
}

// Used returns the number of bytes currently reserved.
func (b *Budget) Used() int {
	return b.used
}

type options struct {
	capacity    uint32
	maxCapacity uint32
	alloc       Allocator
	log         log.FieldLogger
}

func defaultOptions() options {
	l := log.New()
	l.SetOutput(io.Discard)

	return options{
		capacity:    DefaultCapacity,
		maxCapacity: maxBuckets,
		alloc:       unlimited{},
		log:         l,
	}
}

// Option configures a Table.
type Option func(*options)

// WithInitialCapacity sets the initial number of buckets. The value is
// rounded up to a power of two and is never below DefaultCapacity.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.capacity = roundCapacity(n)
	}
}

// WithMaxCapacity limits the number of buckets the table may grow to.
// An insert that would need more buckets fails with ErrNoMem.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCapacity = roundCapacity(n)
		}
	}
}

// WithAllocator routes all storage requests of the table through a.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}

// WithLogger sets the logger used for debug output on growth.
func WithLogger(l log.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func roundCapacity(n int) uint32 {
	if n <= DefaultCapacity {
		return DefaultCapacity
	}
	if uint64(n) >= maxBuckets {
		return maxBuckets
	}
	return 1 << bits.Len32(uint32(n-1))
}
