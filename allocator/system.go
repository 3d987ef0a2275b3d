package allocator

import (
	"sync"
	"unsafe"

	"github.com/cznic/memory"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/tryalloc/memutils"
)

const (
	// baseAlign is the alignment cznic/memory provides for every block it returns
	baseAlign uint = 16

	ptrSize = int(unsafe.Sizeof(uintptr(0)))
)

// System allocates from an mmap-backed heap that lives outside the Go garbage
// collector. Its Allocate returns nil instead of aborting when the underlying allocator
// reports failure, which makes it the production backing for tryalloc.
//
// System is safe for concurrent use. The zero value is not valid - use NewSystem.
type System struct {
	mutex  sync.Mutex
	inner  memory.Allocator
	logger *slog.Logger
}

// NewSystem creates a System allocator. logger may be nil, in which case allocation
// failures are not logged.
func NewSystem(logger *slog.Logger) *System {
	return &System{logger: logger}
}

func (s *System) Allocate(size int, align uint) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	memutils.DebugCheckPow2(align, "align")

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if align <= baseAlign {
		block, err := s.inner.Malloc(size)
		if err != nil {
			s.logFailure(size, align, err)
			return nil
		}
		return unsafe.Pointer(&block[0])
	}

	// Over-aligned request: grab enough extra room to align up past a stashed copy of
	// the block's base address, which Deallocate needs to reconstruct the original
	// block.
	block, err := s.inner.Malloc(overAlignedSize(size, align))
	if err != nil {
		s.logFailure(size, align, err)
		return nil
	}

	base := uintptr(unsafe.Pointer(&block[0]))
	aligned := uintptr(memutils.AlignUp(int(base)+ptrSize, align))
	*(*uintptr)(unsafe.Pointer(aligned - uintptr(ptrSize))) = base
	return unsafe.Pointer(aligned)
}

func (s *System) Deallocate(ptr unsafe.Pointer, size int, align uint) {
	if ptr == nil || size <= 0 {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	blockSize := size
	base := uintptr(ptr)
	if align > baseAlign {
		base = *(*uintptr)(unsafe.Pointer(base - uintptr(ptrSize)))
		blockSize = overAlignedSize(size, align)
	}

	err := s.inner.Free(unsafe.Slice((*byte)(unsafe.Pointer(base)), blockSize))
	if err != nil && s.logger != nil {
		s.logger.Error("System::Deallocate", slog.Any("Error", err))
	}
}

// Close unmaps every region the underlying allocator holds. All allocations must have
// been deallocated first.
func (s *System) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.inner.Close()
}

// overAlignedSize is the block size backing an over-aligned request: the payload, room
// to slide up to the next align boundary, and a word for the stashed base address.
func overAlignedSize(size int, align uint) int {
	return size + int(align) + ptrSize
}

func (s *System) logFailure(size int, align uint, err error) {
	if s.logger != nil {
		s.logger.Debug("System::Allocate failed",
			slog.Int("Size", size),
			slog.Uint64("Align", uint64(align)),
			slog.Any("Error", err),
		)
	}
}
