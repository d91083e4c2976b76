package hashtable

// Stats describes the shape of a table.
type Stats struct {
	Entries      int // number of entries, including duplicates
	Buckets      int // number of buckets
	UsedBuckets  int // buckets holding at least one entry
	LongestChain int // entries in the longest chain
	Grows        int // completed growth steps since New
	Duplicates   int // inserts that found an equal key already present
}

// LoadFactor returns Entries/Buckets.
func (s Stats) LoadFactor() float64 {
	if s.Buckets == 0 {
		return 0
	}
	return float64(s.Entries) / float64(s.Buckets)
}

// Stats walks all chains and returns the current statistics.
func (t *Table) Stats() Stats {
	st := Stats{
		Entries:    int(t.numentries),
		Buckets:    len(t.buckets),
		Grows:      t.grows,
		Duplicates: t.duplicates,
	}

	for _, head := range t.buckets {
		if head == 0 {
			continue
		}
		st.UsedBuckets++

		n := 0
		for i := head; i != 0; i = t.entries.ref(i).next {
			n++
		}
		if n > st.LongestChain {
			st.LongestChain = n
		}
	}
	return st
}
