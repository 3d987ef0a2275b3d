package tryalloc

import (
	"fmt"
	"reflect"
	"syscall"

	"github.com/vkngwrapper/tryalloc/memutils"
)

type allocInfo struct {
	layout memutils.Layout
	name   string
}

// infoFor recomputes a failed attempt's layout and type name from the generic context,
// so Error itself only has to store one word.
func infoFor[T any]() allocInfo {
	return allocInfo{
		layout: memutils.LayoutOf[T](),
		name:   reflect.TypeOf((*T)(nil)).Elem().String(),
	}
}

// Error describes a failed allocation attempt. It is exactly one machine word, freely
// copyable, and owns nothing; being pointer-shaped, it also boxes into the error
// interface without allocating, which matters when the process is already out of
// memory.
type Error struct {
	info func() allocInfo
}

func (e Error) Error() string {
	info := e.info()
	return fmt.Sprintf("memory allocation of %s (for type %s) failed",
		formatBinarySize(info.layout.Size), info.name)
}

// Layout reports the size and alignment of the failed attempt
func (e Error) Layout() memutils.Layout {
	return e.info().layout
}

// Is reports syscall.ENOMEM as a match, so errors.Is(err, syscall.ENOMEM) treats
// allocation failures as the host's out-of-memory error kind
func (e Error) Is(target error) bool {
	return target == syscall.ENOMEM
}

// Handle gives up on the failure, panicking with the diagnostic message. For callers
// with no recovery path of their own.
func (e Error) Handle() {
	panic("tryalloc: " + e.Error())
}

// ErrorWith pairs an allocation Error with the value whose move failed, returning
// ownership of that value to the caller. Both fields are exported so the caller can
// recover the value, drop it, or retry at a higher level.
type ErrorWith[T any] struct {
	Err   Error
	Value T
}

func (e *ErrorWith[T]) Error() string {
	return e.Err.Error()
}

func (e *ErrorWith[T]) Unwrap() error {
	return e.Err
}

// WithoutPayload discards the value and returns the bare one-word Error
func (e *ErrorWith[T]) WithoutPayload() Error {
	return e.Err
}
