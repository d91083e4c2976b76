package hashtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryStore(t *testing.T) {
	s, err := newEntryStore(unlimited{})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), s.len())

	const n = 1000
	for i := 1; i <= n; i++ {
		require.NoError(t, s.reserve())
		// a second reservation for the same slot is a no-op
		require.NoError(t, s.reserve())
		idx := s.add(entry{key: Ref(i), value: Ref(i * 2), hash: uint32(i)})
		require.Equal(t, uint32(i), idx)
	}
	assert.Equal(t, uint32(n), s.len())

	for i := uint32(1); i <= n; i++ {
		e := s.ref(i)
		require.Equal(t, Ref(i), e.key)
		require.Equal(t, Ref(i*2), e.value)
		require.Equal(t, i, e.hash)
	}
}

func TestEntryStoreBounds(t *testing.T) {
	s, err := newEntryStore(unlimited{})
	require.NoError(t, err)

	assert.Panics(t, func() { s.ref(0) })
	assert.Panics(t, func() { s.ref(1) })
}

func TestEntryStoreAccounting(t *testing.T) {
	b := NewBudget(1 << 20)
	s, err := newEntryStore(b)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, s.reserve())
		s.add(entry{})
	}
	assert.Equal(t, s.allocated, b.Used())

	s.release()
	assert.Equal(t, 0, b.Used())
}

func TestRoundCapacity(t *testing.T) {
	for _, test := range []struct {
		in   int
		want uint32
	}{
		{-1, DefaultCapacity},
		{0, DefaultCapacity},
		{8, 8},
		{9, 16},
		{16, 16},
		{17, 32},
		{1000, 1024},
		{1 << 40, maxBuckets},
	} {
		assert.Equal(t, test.want, roundCapacity(test.in), "roundCapacity(%d)", test.in)
	}
}
