package tryalloc

import (
	"unsafe"

	"github.com/vkngwrapper/tryalloc/allocator"
	"github.com/vkngwrapper/tryalloc/memutils"
)

var active allocator.Allocator = allocator.NewSystem(nil)

// SetAllocator replaces the process-wide allocator used by New and OrDrop. Swap
// allocators at start-up, before any Box is live - boxes deallocate through the
// allocator that created them, so a swap does not invalidate existing handles, but it
// is not synchronized against concurrent allocation.
func SetAllocator(a allocator.Allocator) {
	if a == nil {
		panic("tryalloc: SetAllocator called with a nil allocator")
	}
	active = a
}

// CurrentAllocator returns the allocator New and OrDrop currently draw from
func CurrentAllocator() allocator.Allocator {
	return active
}

// New attempts to move x into allocator-managed memory. On failure the returned error
// is a *ErrorWith[T] carrying x back to the caller, so the value is never lost to a
// failed attempt. New does not retry and never panics for ordinary exhaustion.
func New[T any](x T) (*Box[T], error) {
	box, ok := move(x)
	if !ok {
		return nil, &ErrorWith[T]{Err: Error{info: infoFor[T]}, Value: x}
	}
	return box, nil
}

// OrDrop attempts to move x into allocator-managed memory, discarding x on failure and
// returning only the bare Error. Use it when the failure will be propagated or wrapped
// rather than recovered from.
func OrDrop[T any](x T) (*Box[T], error) {
	box, ok := move(x)
	if !ok {
		return nil, Error{info: infoFor[T]}
	}
	return box, nil
}

func move[T any](x T) (*Box[T], bool) {
	layout := memutils.LayoutOf[T]()
	if layout.Size == 0 {
		// Zero-sized values get a dangling-but-valid handle; the allocator is never
		// involved in either direction.
		return &Box[T]{ptr: unsafe.Pointer(&zerobase)}, true
	}

	a := active
	ptr := a.Allocate(layout.Size, layout.Align)
	if ptr == nil {
		return nil, false
	}

	*(*T)(ptr) = x
	return &Box[T]{ptr: ptr, alloc: a}, true
}
