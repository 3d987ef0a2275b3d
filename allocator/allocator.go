// Package allocator provides the fallible memory boundary used by tryalloc: a narrow
// allocate/deallocate interface over manually managed, non-garbage-collected memory,
// along with a production implementation and decorators for tracking, pooling, and fault
// injection.
package allocator

import (
	"unsafe"

	"github.com/pkg/errors"
)

var (
	// ErrLeakedAllocations is the error returned from Validate or Destroy methods when
	// allocations are still live at a point where none should remain
	ErrLeakedAllocations error = errors.New("allocations were leaked")
	// ErrCorruption is the error returned from CheckCorruption when a debug margin no
	// longer holds its magic value
	ErrCorruption error = errors.New("memory corruption detected")
	// ErrMarginsDisabled is the error returned from CheckCorruption when the binary was
	// built without the debug_try_alloc tag and no margins exist to check
	ErrMarginsDisabled error = errors.New("corruption detection requires the debug_try_alloc build tag")
)

// Allocator hands out raw, uninitialized memory. Allocate returns nil when the request
// cannot be satisfied; it must not panic or abort for ordinary exhaustion. The returned
// pointer is aligned to align, which must be a power of two. Callers never pass a size
// of zero - zero-sized requests are short-circuited above this boundary, since their
// behavior differs between underlying allocators.
//
// Deallocate must be called with the same size and alignment the memory was allocated
// with.
type Allocator interface {
	Allocate(size int, align uint) unsafe.Pointer
	Deallocate(ptr unsafe.Pointer, size int, align uint)
}
