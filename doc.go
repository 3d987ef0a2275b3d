// Package tryalloc moves values into manually managed memory through a fallible
// allocator, handing the value back to the caller instead of failing hard when memory
// cannot be had. It exists for workloads where out-of-memory must be a recoverable
// event: the entire allocation path routes through an allocate-or-nil primitive, and a
// failed attempt surfaces as an ordinary error value carrying the size and alignment of
// the request.
//
//	box, err := tryalloc.New(value)
//	if err != nil {
//		var failed *tryalloc.ErrorWith[Payload]
//		errors.As(err, &failed)
//		retryLater(failed.Value) // the original value, returned intact
//	}
//	defer box.Free()
//
// Callers that do not want the value back can use OrDrop, which returns only the bare
// one-word Error:
//
//	box, err := tryalloc.OrDrop(value)
//
// Error is exactly one machine word and renders a readable diagnostic, for example
// "memory allocation of 2.44 kibibytes (for type [2500]uint8) failed". Allocation
// failures also satisfy errors.Is(err, syscall.ENOMEM).
//
// Boxed values live outside the Go garbage collector. Pointers stored inside a boxed
// value are invisible to the collector, so the caller must keep their referents alive
// through a reachable reference for as long as the box holds them.
package tryalloc
