package hashtable

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoMem is returned when the table cannot obtain storage, either
	// because the Allocator refused the request or because growing would
	// exceed the configured maximum capacity. The table is left unchanged.
	ErrNoMem = errors.New("hashtable: out of memory")

	// ErrNilComparator is returned by New when no comparator is given.
	ErrNilComparator = errors.New("hashtable: nil comparator")

	// ErrDestroyed is returned by every operation on a destroyed table.
	ErrDestroyed = errors.New("hashtable: table destroyed")
)

// allocError reports an Allocator refusal. It matches both ErrNoMem and
// the error returned by the Allocator.
type allocError struct {
	err error
}

func noMem(err error) error {
	return &allocError{err: err}
}

func (e *allocError) Error() string {
	return ErrNoMem.Error() + ": " + e.err.Error()
}

func (e *allocError) Unwrap() []error {
	return []error{ErrNoMem, e.err}
}

// ComparatorError carries an integer failure code reported by a comparator.
// The engine never interprets the code, it only hands the error back.
type ComparatorError struct {
	Code int
}

func (e *ComparatorError) Error() string {
	return fmt.Sprintf("hashtable: comparator failed with code %d", e.Code)
}

// ComparatorCode returns the code of a ComparatorError contained in err and
// true, or 0 and false if err does not carry one.
func ComparatorCode(err error) (int, bool) {
	var ce *ComparatorError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}
