package allocator

import (
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/tryalloc/memutils"
	"github.com/vkngwrapper/tryalloc/suballoc"
)

type poolBlock struct {
	ptr  unsafe.Pointer
	meta *suballoc.Metadata
}

// Pooled serves small allocations by carving up large fixed-size blocks taken from an
// upstream allocator, which keeps per-value mmap traffic off the hot path. Requests too
// large for a block pass straight through to the upstream allocator. Blocks are returned
// upstream as soon as their last suballocation is freed.
//
// Pooled is safe for concurrent use if its upstream allocator is.
type Pooled struct {
	mutex    sync.Mutex
	upstream Allocator
	logger   *slog.Logger

	blockSize int
	blocks    []*poolBlock
}

// NewPooled creates a Pooled allocator drawing power-of-two blockSize blocks from
// upstream. logger may be nil.
func NewPooled(logger *slog.Logger, upstream Allocator, blockSize int) (*Pooled, error) {
	if blockSize <= 0 {
		return nil, cerrors.Newf("block size must be positive: %d", blockSize)
	}
	err := memutils.CheckPow2(blockSize, "block size")
	if err != nil {
		return nil, err
	}

	return &Pooled{
		upstream:  upstream,
		logger:    logger,
		blockSize: blockSize,
	}, nil
}

func (p *Pooled) Allocate(size int, align uint) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	if p.logger != nil {
		p.logger.Debug("Pooled::Allocate", slog.Int("Size", size), slog.Uint64("Align", uint64(align)))
	}

	if size+memutils.DebugMargin > p.blockSize || align > baseAlign {
		return p.upstream.Allocate(size, align)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, block := range p.blocks {
		offset, err := block.meta.Alloc(size, align)
		if err == nil {
			return p.finishAlloc(block, offset, size)
		}
	}

	ptr := p.upstream.Allocate(p.blockSize, baseAlign)
	if ptr == nil {
		return nil
	}

	block := &poolBlock{ptr: ptr, meta: suballoc.New(p.blockSize)}
	p.blocks = append(p.blocks, block)

	offset, err := block.meta.Alloc(size, align)
	if err != nil {
		// A fresh block always fits a request no larger than the block size
		panic(err)
	}
	return p.finishAlloc(block, offset, size)
}

func (p *Pooled) finishAlloc(block *poolBlock, offset, size int) unsafe.Pointer {
	if memutils.DebugMargin > 0 {
		memutils.WriteMagicValue(block.ptr, offset+size)
	}
	return unsafe.Add(block.ptr, offset)
}

func (p *Pooled) Deallocate(ptr unsafe.Pointer, size int, align uint) {
	if ptr == nil || size <= 0 {
		return
	}

	p.mutex.Lock()

	for blockIndex, block := range p.blocks {
		base := uintptr(block.ptr)
		addr := uintptr(ptr)
		if addr < base || addr >= base+uintptr(p.blockSize) {
			continue
		}

		_, err := block.meta.Free(int(addr - base))
		if err != nil {
			p.mutex.Unlock()
			panic(err)
		}
		memutils.DebugValidate(block.meta)

		if block.meta.IsEmpty() {
			p.blocks = append(p.blocks[:blockIndex], p.blocks[blockIndex+1:]...)
			p.mutex.Unlock()
			p.upstream.Deallocate(block.ptr, p.blockSize, baseAlign)
			return
		}

		p.mutex.Unlock()
		return
	}

	p.mutex.Unlock()

	// Not carved from any block, so it was a pass-through allocation
	p.upstream.Deallocate(ptr, size, align)
}

// CheckCorruption validates the debug margin after every live suballocation. It returns
// ErrMarginsDisabled when the binary was built without margins.
func (p *Pooled) CheckCorruption() error {
	if memutils.DebugMargin == 0 {
		return ErrMarginsDisabled
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	for blockIndex, block := range p.blocks {
		var corruptOffset = -1
		block.meta.VisitAllocations(func(offset, size int) bool {
			if !memutils.ValidateMagicValue(block.ptr, offset+size) {
				corruptOffset = offset
				return true
			}
			return false
		})
		if corruptOffset >= 0 {
			return cerrors.Wrapf(ErrCorruption, "block %d, offset %d", blockIndex, corruptOffset)
		}
	}

	return nil
}

// Validate checks the metadata invariants of every block
func (p *Pooled) Validate() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for blockIndex, block := range p.blocks {
		err := block.meta.Validate()
		if err != nil {
			return cerrors.Wrapf(err, "block %d", blockIndex)
		}
	}

	return nil
}

// Stats accumulates the live suballocations of every block into a snapshot
func (p *Pooled) Stats() memutils.DetailedStatistics {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	for _, block := range p.blocks {
		block.meta.AddDetailedStatistics(&stats)
	}
	return stats
}

// PrintDetailedMap writes a json object describing every block and its suballocation
// state to writer
func (p *Pooled) PrintDetailedMap(writer *jwriter.Writer) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	obj := writer.Object()
	obj.Name("BlockSize").Int(p.blockSize)
	obj.Name("BlockCount").Int(len(p.blocks))

	blockArray := obj.Name("Blocks").Array()
	for _, block := range p.blocks {
		blockObj := blockArray.Object()
		block.meta.BlockJsonData(blockObj)
		blockObj.End()
	}
	blockArray.End()

	obj.End()
}

// Destroy returns every block to the upstream allocator. It fails with
// ErrLeakedAllocations if any suballocation is still live.
func (p *Pooled) Destroy() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, block := range p.blocks {
		if !block.meta.IsEmpty() {
			return cerrors.Wrapf(ErrLeakedAllocations, "a pool block still has live suballocations")
		}
	}

	for _, block := range p.blocks {
		p.upstream.Deallocate(block.ptr, p.blockSize, baseAlign)
	}
	p.blocks = nil

	return nil
}
