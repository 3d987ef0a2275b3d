package tryalloc

import (
	"unsafe"

	"github.com/vkngwrapper/tryalloc/allocator"
	"github.com/vkngwrapper/tryalloc/memutils"
)

// zerobase backs every zero-sized Box, the same way the runtime backs zero-size
// allocations with a single static word. Its alignment covers every zero-sized Go type.
var zerobase uint64

// Box is an owning handle to a value resident in allocator-managed memory. Exactly one
// Box owns each allocation; Free releases the value's memory back to the allocator that
// provided it. Boxes are not synchronized - each belongs to a single owner.
type Box[T any] struct {
	ptr   unsafe.Pointer
	alloc allocator.Allocator
}

// Get returns a pointer to the boxed value. The pointer is only valid until Free is
// called. Calling Get on a freed or nil Box returns nil.
func (b *Box[T]) Get() *T {
	if b == nil {
		return nil
	}
	return (*T)(b.ptr)
}

// Take moves the value back out of the box and frees the backing memory
func (b *Box[T]) Take() T {
	value := *(*T)(b.ptr)
	b.Free()
	return value
}

// Free returns the backing memory to the allocator. It is idempotent and safe to call
// on a nil Box.
func (b *Box[T]) Free() {
	if b == nil || b.ptr == nil {
		return
	}

	layout := memutils.LayoutOf[T]()
	if b.alloc != nil && layout.Size > 0 {
		b.alloc.Deallocate(b.ptr, layout.Size, layout.Align)
	}

	b.ptr = nil
	b.alloc = nil
}
