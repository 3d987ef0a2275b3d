package memutils

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
)

// Layout describes the memory footprint of a single allocation: its size in bytes and the
// alignment its address must satisfy. Size may be zero for zero-sized types. Alignment is
// always at least 1 and always a power of two.
type Layout struct {
	Size  int
	Align uint
}

// LayoutOf returns the Layout for values of type T. It is a pure type-level computation
// with no failure mode.
func LayoutOf[T any]() Layout {
	var probe T
	return Layout{
		Size:  int(unsafe.Sizeof(probe)),
		Align: uint(unsafe.Alignof(probe)),
	}
}

// Validate verifies the Layout invariants: a non-negative size and a power-of-two,
// non-zero alignment.
func (l Layout) Validate() error {
	if l.Size < 0 {
		return cerrors.Newf("layout size is negative: %d", l.Size)
	}
	if l.Align == 0 {
		return cerrors.Wrap(PowerOfTwoError, "alignment is 0")
	}

	return CheckPow2(l.Align, "alignment")
}
