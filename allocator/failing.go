package allocator

import (
	"sync/atomic"
	"unsafe"
)

// FailSwitch is a fault-injection allocator for exercising failure paths: after Fail is
// called every Allocate reports failure, and Fallback restores pass-through to the next
// allocator. Deallocate always passes through, so memory allocated before Fail can still
// be released while failures are being injected.
type FailSwitch struct {
	fail atomic.Bool
	next Allocator
}

func NewFailSwitch(next Allocator) *FailSwitch {
	return &FailSwitch{next: next}
}

// Fail causes every subsequent Allocate to return nil
func (f *FailSwitch) Fail() {
	f.fail.Store(true)
}

// Fallback restores pass-through to the next allocator
func (f *FailSwitch) Fallback() {
	f.fail.Store(false)
}

func (f *FailSwitch) Allocate(size int, align uint) unsafe.Pointer {
	if f.fail.Load() {
		return nil
	}
	return f.next.Allocate(size, align)
}

func (f *FailSwitch) Deallocate(ptr unsafe.Pointer, size int, align uint) {
	f.next.Deallocate(ptr, size, align)
}
