package suballoc

import (
	"encoding/json"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/tryalloc/memutils"
)

func TestAllocFirstFit(t *testing.T) {
	meta := New(1024)

	offset, err := meta.Alloc(100, 1)
	require.NoError(t, err)
	require.Equal(t, 0, offset)

	offset, err = meta.Alloc(100, 1)
	require.NoError(t, err)
	require.Equal(t, 100+memutils.DebugMargin, offset)

	require.NoError(t, meta.Validate())
	require.False(t, meta.IsEmpty())
}

func TestAllocRespectsAlignment(t *testing.T) {
	meta := New(1024)

	_, err := meta.Alloc(10, 1)
	require.NoError(t, err)

	offset, err := meta.Alloc(64, 64)
	require.NoError(t, err)
	require.Equal(t, 0, offset%64)
	require.GreaterOrEqual(t, offset, 10)

	require.NoError(t, meta.Validate())
}

func TestAllocOutOfSpace(t *testing.T) {
	meta := New(128)

	_, err := meta.Alloc(128-memutils.DebugMargin, 1)
	require.NoError(t, err)

	_, err = meta.Alloc(1, 1)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestFreeMergesNeighbors(t *testing.T) {
	meta := New(512)

	first, err := meta.Alloc(64, 1)
	require.NoError(t, err)
	second, err := meta.Alloc(64, 1)
	require.NoError(t, err)
	third, err := meta.Alloc(64, 1)
	require.NoError(t, err)

	size, err := meta.Free(first)
	require.NoError(t, err)
	require.Equal(t, 64, size)
	_, err = meta.Free(third)
	require.NoError(t, err)
	_, err = meta.Free(second)
	require.NoError(t, err)

	require.NoError(t, meta.Validate())
	require.True(t, meta.IsEmpty())
	require.Equal(t, 512, meta.FreeBytes())

	// a fully merged block can serve its whole size again
	offset, err := meta.Alloc(512-memutils.DebugMargin, 1)
	require.NoError(t, err)
	require.Equal(t, 0, offset)
}

func TestFreeUnknownOffset(t *testing.T) {
	meta := New(256)

	_, err := meta.Free(32)
	require.ErrorIs(t, err, ErrUnknownOffset)
}

func TestAddDetailedStatistics(t *testing.T) {
	meta := New(1024)

	_, err := meta.Alloc(100, 1)
	require.NoError(t, err)
	_, err = meta.Alloc(50, 1)
	require.NoError(t, err)

	var stats memutils.DetailedStatistics
	stats.Clear()
	meta.AddDetailedStatistics(&stats)

	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 150, stats.AllocationBytes)
	require.Equal(t, 50, stats.AllocationSizeMin)
	require.Equal(t, 100, stats.AllocationSizeMax)
}

func TestBlockJsonData(t *testing.T) {
	meta := New(1024)

	_, err := meta.Alloc(100, 1)
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	obj := writer.Object()
	meta.BlockJsonData(obj)
	obj.End()
	require.NoError(t, writer.Error())

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(writer.Bytes(), &decoded))
	require.Equal(t, 1024, decoded["TotalBytes"])
	require.Equal(t, 1, decoded["Allocations"])
	require.Equal(t, 1024-100-memutils.DebugMargin, decoded["FreeBytes"])
}
