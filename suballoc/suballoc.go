// Package suballoc maintains the allocation metadata for a single fixed-size block of
// memory: which byte ranges are in use and which are free. It does not touch the block's
// memory itself, so it can be driven entirely from tests without a live allocation.
package suballoc

import (
	"sort"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	"github.com/vkngwrapper/tryalloc/memutils"
)

var (
	// ErrNoSpace is the error returned from Metadata.Alloc when no free range in the block
	// can fit the requested size and alignment
	ErrNoSpace error = errors.New("no free range can fit the request")
	// ErrUnknownOffset is the error returned from Metadata.Free when the provided offset
	// does not map to a live suballocation
	ErrUnknownOffset error = errors.New("offset does not map to a live suballocation")
)

type freeSpan struct {
	offset int
	size   int
}

// Metadata tracks the suballocations within one block. Free ranges are kept sorted by
// offset and adjacent ranges are always merged, so the first fit found is also the
// lowest-offset fit.
type Metadata struct {
	size      int
	freeBytes int
	free      []freeSpan
	used      *swiss.Map[int, int]
}

func New(size int) *Metadata {
	return &Metadata{
		size:      size,
		freeBytes: size,
		free:      []freeSpan{{offset: 0, size: size}},
		used:      swiss.NewMap[int, int](8),
	}
}

// Size returns the size of the block in bytes
func (m *Metadata) Size() int { return m.size }

// FreeBytes returns the number of bytes not currently assigned to a suballocation
func (m *Metadata) FreeBytes() int { return m.freeBytes }

// IsEmpty returns true when no suballocations are live in the block
func (m *Metadata) IsEmpty() bool { return m.used.Count() == 0 }

// Alloc reserves size bytes at an offset aligned to align and returns that offset. When
// the debug_try_alloc build tag is present, memutils.DebugMargin extra bytes are reserved
// after the suballocation for corruption markers.
func (m *Metadata) Alloc(size int, align uint) (int, error) {
	if size <= 0 {
		return 0, cerrors.Newf("suballocation size must be positive: %d", size)
	}
	memutils.DebugCheckPow2(align, "align")

	reserved := size + memutils.DebugMargin
	for spanIndex, span := range m.free {
		offset := memutils.AlignUp(span.offset, align)
		if offset+reserved > span.offset+span.size {
			continue
		}

		m.carve(spanIndex, offset, reserved)
		m.used.Put(offset, size)
		m.freeBytes -= reserved
		return offset, nil
	}

	return 0, cerrors.Wrapf(ErrNoSpace, "size is %d, align is %d", size, align)
}

// Free releases the suballocation at offset and returns its size. The freed range is
// merged back into the free list.
func (m *Metadata) Free(offset int) (int, error) {
	size, ok := m.used.Get(offset)
	if !ok {
		return 0, cerrors.Wrapf(ErrUnknownOffset, "offset is %d", offset)
	}

	m.used.Delete(offset)
	reserved := size + memutils.DebugMargin
	m.insertFree(freeSpan{offset: offset, size: reserved})
	m.freeBytes += reserved
	return size, nil
}

// carve removes reserved bytes beginning at offset from the free span at spanIndex,
// leaving behind the alignment gap before it and the remainder after it.
func (m *Metadata) carve(spanIndex, offset, reserved int) {
	span := m.free[spanIndex]

	var remainder []freeSpan
	if offset > span.offset {
		remainder = append(remainder, freeSpan{offset: span.offset, size: offset - span.offset})
	}
	if end := offset + reserved; end < span.offset+span.size {
		remainder = append(remainder, freeSpan{offset: end, size: span.offset + span.size - end})
	}

	m.free = append(m.free[:spanIndex], append(remainder, m.free[spanIndex+1:]...)...)
}

func (m *Metadata) insertFree(span freeSpan) {
	insertAt := sort.Search(len(m.free), func(i int) bool {
		return m.free[i].offset > span.offset
	})

	if insertAt > 0 && m.free[insertAt-1].offset+m.free[insertAt-1].size == span.offset {
		// Merge into the preceding span, then check whether that closed the gap to the
		// following span as well
		m.free[insertAt-1].size += span.size
		if insertAt < len(m.free) && m.free[insertAt].offset == m.free[insertAt-1].offset+m.free[insertAt-1].size {
			m.free[insertAt-1].size += m.free[insertAt].size
			m.free = append(m.free[:insertAt], m.free[insertAt+1:]...)
		}
		return
	}

	if insertAt < len(m.free) && span.offset+span.size == m.free[insertAt].offset {
		m.free[insertAt].offset = span.offset
		m.free[insertAt].size += span.size
		return
	}

	m.free = append(m.free, freeSpan{})
	copy(m.free[insertAt+1:], m.free[insertAt:])
	m.free[insertAt] = span
}

// VisitAllocations calls visit for each live suballocation with its offset and size,
// stopping early if visit returns true. Iteration order is not specified.
func (m *Metadata) VisitAllocations(visit func(offset, size int) bool) {
	m.used.Iter(func(offset, size int) bool {
		return visit(offset, size)
	})
}

// AddDetailedStatistics accumulates this block's live suballocations into stats
func (m *Metadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	m.used.Iter(func(offset, size int) bool {
		stats.AddAllocation(size)
		return false
	})
}

// BlockJsonData populates a json object with information about this block
func (m *Metadata) BlockJsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(m.size)
	json.Name("FreeBytes").Int(m.freeBytes)
	json.Name("Allocations").Int(m.used.Count())
	json.Name("FreeRanges").Int(len(m.free))
}

// Validate walks the free list and verifies the block invariants: sorted, merged,
// in-bounds free ranges whose byte total matches the bookkeeping, and free and used
// bytes that add up to the block size.
func (m *Metadata) Validate() error {
	freeTotal := 0
	prevEnd := -1

	for _, span := range m.free {
		if span.size <= 0 {
			return cerrors.Newf("free range at offset %d has invalid size %d", span.offset, span.size)
		}
		if span.offset < 0 || span.offset+span.size > m.size {
			return cerrors.Newf("free range %d+%d lies outside the block", span.offset, span.size)
		}
		if span.offset < prevEnd {
			return cerrors.Newf("free range at offset %d overlaps its predecessor", span.offset)
		}
		if span.offset == prevEnd {
			return cerrors.Newf("free range at offset %d was not merged with its predecessor", span.offset)
		}

		freeTotal += span.size
		prevEnd = span.offset + span.size
	}

	if freeTotal != m.freeBytes {
		return cerrors.Newf("free list holds %d bytes but %d were expected", freeTotal, m.freeBytes)
	}

	usedTotal := 0
	m.used.Iter(func(offset, size int) bool {
		usedTotal += size + memutils.DebugMargin
		return false
	})

	if freeTotal+usedTotal != m.size {
		return cerrors.Newf("free bytes %d and used bytes %d do not sum to block size %d", freeTotal, usedTotal, m.size)
	}

	return nil
}
