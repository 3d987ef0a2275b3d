package memutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetailedStatisticsLifecycle(t *testing.T) {
	var stats DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.AllocationSizeMin)

	stats.AttemptCount++
	stats.AddAllocation(128)
	stats.AttemptCount++
	stats.AddAllocation(16)
	stats.AttemptCount++
	stats.AddFailure(4096)

	require.Equal(t, 3, stats.AttemptCount)
	require.Equal(t, 1, stats.FailureCount)
	require.Equal(t, 4096, stats.FailureBytes)
	require.Equal(t, 2, stats.AllocationCount)
	require.Equal(t, 144, stats.AllocationBytes)
	require.Equal(t, 16, stats.AllocationSizeMin)
	require.Equal(t, 128, stats.AllocationSizeMax)

	stats.RemoveAllocation(128)
	require.Equal(t, 1, stats.AllocationCount)
	require.Equal(t, 16, stats.AllocationBytes)
	// high-water marks survive frees
	require.Equal(t, 128, stats.AllocationSizeMax)
}

func TestAddDetailedStatistics(t *testing.T) {
	var a, b DetailedStatistics
	a.Clear()
	b.Clear()

	a.AddAllocation(64)
	b.AddAllocation(8)
	b.AddFailure(512)

	a.AddDetailedStatistics(&b)

	require.Equal(t, 2, a.AllocationCount)
	require.Equal(t, 72, a.AllocationBytes)
	require.Equal(t, 8, a.AllocationSizeMin)
	require.Equal(t, 64, a.AllocationSizeMax)
	require.Equal(t, 1, a.FailureCount)
	require.Equal(t, 512, a.FailureBytes)
}
