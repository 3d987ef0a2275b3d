package allocator

import (
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/tryalloc/memutils"
)

// Tracking wraps another Allocator and records every live allocation, which makes leaks
// and attempt/failure counts visible to tests and to diagnostics dumps. It adds one map
// write per allocation, so production callers that do not need bookkeeping should use
// the inner allocator directly.
//
// Tracking is safe for concurrent use if its inner allocator is.
type Tracking struct {
	mutex  sync.Mutex
	inner  Allocator
	logger *slog.Logger

	live  *swiss.Map[uintptr, memutils.Layout]
	stats memutils.DetailedStatistics
}

// NewTracking creates a Tracking allocator around inner. logger may be nil to disable
// the per-call debug lines.
func NewTracking(logger *slog.Logger, inner Allocator) *Tracking {
	t := &Tracking{
		inner:  inner,
		logger: logger,
		live:   swiss.NewMap[uintptr, memutils.Layout](16),
	}
	t.stats.Clear()
	return t
}

func (t *Tracking) Allocate(size int, align uint) unsafe.Pointer {
	if t.logger != nil {
		t.logger.Debug("Tracking::Allocate", slog.Int("Size", size), slog.Uint64("Align", uint64(align)))
	}

	ptr := t.inner.Allocate(size, align)

	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.stats.AttemptCount++
	if ptr == nil {
		t.stats.AddFailure(size)
		return nil
	}

	t.stats.AddAllocation(size)
	t.live.Put(uintptr(ptr), memutils.Layout{Size: size, Align: align})
	return ptr
}

func (t *Tracking) Deallocate(ptr unsafe.Pointer, size int, align uint) {
	if t.logger != nil {
		t.logger.Debug("Tracking::Deallocate", slog.Int("Size", size))
	}

	t.mutex.Lock()
	layout, known := t.live.Get(uintptr(ptr))
	if known {
		t.live.Delete(uintptr(ptr))
		t.stats.RemoveAllocation(layout.Size)
	}
	t.mutex.Unlock()

	if !known && t.logger != nil {
		t.logger.Warn("Tracking::Deallocate called with an unknown pointer", slog.Int("Size", size))
	}

	t.inner.Deallocate(ptr, size, align)
}

// Stats returns a snapshot of the allocator's counters
func (t *Tracking) Stats() memutils.DetailedStatistics {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.stats
}

// Validate returns an error if any allocation is still live. Call it after all heap
// handles have been freed to prove nothing leaked.
func (t *Tracking) Validate() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.live.Count() != 0 {
		return cerrors.Wrapf(ErrLeakedAllocations,
			"%d live allocations remain (%d bytes)", t.live.Count(), t.stats.AllocationBytes)
	}
	if t.stats.AllocationCount != 0 {
		return cerrors.Newf("allocation count %d does not match the empty live map", t.stats.AllocationCount)
	}

	return nil
}

// BuildStatsString writes a json object describing the allocator's counters and live
// allocations to writer
func (t *Tracking) BuildStatsString(writer *jwriter.Writer) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	obj := writer.Object()
	obj.Name("Attempts").Int(t.stats.AttemptCount)
	obj.Name("Failures").Int(t.stats.FailureCount)
	obj.Name("FailureBytes").Int(t.stats.FailureBytes)
	obj.Name("Allocations").Int(t.stats.AllocationCount)
	obj.Name("AllocationBytes").Int(t.stats.AllocationBytes)
	if t.stats.AllocationCount > 0 {
		obj.Name("AllocationSizeMin").Int(t.stats.AllocationSizeMin)
		obj.Name("AllocationSizeMax").Int(t.stats.AllocationSizeMax)
	}

	liveArray := obj.Name("Live").Array()
	t.live.Iter(func(ptr uintptr, layout memutils.Layout) bool {
		liveObj := liveArray.Object()
		liveObj.Name("Size").Int(layout.Size)
		liveObj.Name("Align").Int(int(layout.Align))
		liveObj.End()
		return false
	})
	liveArray.End()

	obj.End()
}
