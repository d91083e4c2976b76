// Package abi exposes a hashtable.Table through a flat, status-code based
// surface: create, insert, get and destroy. It is meant for bindings that
// cannot carry Go errors across their boundary.
package abi

import (
	"github.com/pkg/errors"

	"github.com/PurpleMyst/akuli-hashtable/internal/hashtable"
)

// Status codes returned by Insert. Any other value is an error code reported
// by the comparator and passed through unchanged. Comparator error codes
// must be greater than 1; negative values are reserved.
const (
	StatusOK    = 0
	StatusNoMem = 1
)

// Results of a comparator call and of Get. Any other value is an error code.
const (
	NotEqual = 0
	Equal    = 1

	NotFound = 0
	Found    = 1
)

// statusMisuse is returned for calls on a nil or destroyed handle.
const statusMisuse = -1

// CmpFunc compares the keys behind a and b. It returns Equal, NotEqual or a
// positive error code greater than 1; userdata is whatever the caller passed
// to Insert or Get.
type CmpFunc func(a, b hashtable.Ref, userdata any) int

// Handle is a table created by Create.
type Handle struct {
	table    *hashtable.Table
	cmp      CmpFunc
	userdata any
}

// handleComparator runs the comparator of a handle with the userdata of the
// call in progress.
type handleComparator struct {
	h *Handle
}

func (c handleComparator) Equal(a, b hashtable.Ref) (bool, error) {
	switch rc := c.h.cmp(a, b, c.h.userdata); rc {
	case Equal:
		return true, nil
	case NotEqual:
		return false, nil
	default:
		return false, &hashtable.ComparatorError{Code: rc}
	}
}

// Create returns a new table using cmp, or nil if cmp is nil or the table
// cannot be allocated.
func Create(cmp CmpFunc, opts ...hashtable.Option) *Handle {
	if cmp == nil {
		return nil
	}

	h := &Handle{cmp: cmp}
	t, err := hashtable.New(handleComparator{h: h}, opts...)
	if err != nil {
		return nil
	}
	h.table = t
	return h
}

// Insert stores (key, value) under hash. It returns StatusOK, StatusNoMem or
// the error code of the comparator.
func Insert(h *Handle, key hashtable.Ref, hash uint32, value hashtable.Ref, userdata any) int {
	if h == nil || h.table == nil {
		return statusMisuse
	}

	h.userdata = userdata
	defer func() { h.userdata = nil }()

	return status(h.table.Insert(key, hash, value))
}

// Get looks up key. It returns Found and stores the value in out, NotFound
// leaving out untouched, or the error code of the comparator.
func Get(h *Handle, key hashtable.Ref, hash uint32, out *hashtable.Ref, userdata any) int {
	if h == nil || h.table == nil {
		return statusMisuse
	}

	h.userdata = userdata
	defer func() { h.userdata = nil }()

	v, ok, err := h.table.Get(key, hash)
	if err != nil {
		return status(err)
	}
	if !ok {
		return NotFound
	}
	if out != nil {
		*out = v
	}
	return Found
}

// Destroy releases the table behind h. The handle must not be used again.
func Destroy(h *Handle) {
	if h == nil || h.table == nil {
		return
	}
	h.table.Destroy()
	h.table = nil
}

func status(err error) int {
	if err == nil {
		return StatusOK
	}
	if code, ok := hashtable.ComparatorCode(err); ok {
		return code
	}
	if errors.Is(err, hashtable.ErrNoMem) {
		return StatusNoMem
	}
	return statusMisuse
}
