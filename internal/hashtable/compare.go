package hashtable

// Ref is an opaque handle to a key or value owned by the caller, usually an
// index into a caller-side arena. The table stores and hands back Refs but
// never dereferences them; keeping the referenced data alive for the
// lifetime of the table is the caller's job.
type Ref uint64

// Comparator decides whether the keys behind two Refs are equal. A non-nil
// error aborts the running Insert or Get and is returned to its caller
// unchanged.
type Comparator interface {
	Equal(a, b Ref) (bool, error)
}

// CompareFunc adapts an ordinary function to the Comparator interface.
// State the function needs is captured by the closure.
type CompareFunc func(a, b Ref) (bool, error)

// Equal calls f(a, b).
func (f CompareFunc) Equal(a, b Ref) (bool, error) {
	return f(a, b)
}
