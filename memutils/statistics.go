package memutils

import "math"

// Statistics is a set of basic counters describing an allocator's activity: how many
// attempts have been made, how many of those failed, and how many allocations are
// currently live.
type Statistics struct {
	AttemptCount    int
	FailureCount    int
	AllocationCount int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.AttemptCount = 0
	s.FailureCount = 0
	s.AllocationCount = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.AttemptCount += other.AttemptCount
	s.FailureCount += other.FailureCount
	s.AllocationCount += other.AllocationCount
	s.AllocationBytes += other.AllocationBytes
}

// DetailedStatistics extends Statistics with the size extremes of live allocations and
// the byte total of failed requests. AllocationSizeMin is math.MaxInt while no
// allocation has been recorded.
type DetailedStatistics struct {
	Statistics
	FailureBytes      int
	AllocationSizeMin int
	AllocationSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FailureBytes = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

// RemoveAllocation retires a live allocation from the counters. The size extremes are
// high-water marks and are left untouched.
func (s *DetailedStatistics) RemoveAllocation(size int) {
	s.AllocationCount--
	s.AllocationBytes -= size
}

func (s *DetailedStatistics) AddFailure(size int) {
	s.FailureCount++
	s.FailureBytes += size
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FailureBytes += other.FailureBytes

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}
