package stitch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteTimes(n int, start time.Time) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Minute)
	}
	return out
}

func TestGetTimeIntervalsFewTimesUsesOneProcess(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := minuteTimes(4, start)

	intervals, numProcesses := GetTimeIntervals(times, 4)
	assert.Equal(t, 1, numProcesses)
	require.Len(t, intervals, 1)
	assert.Equal(t, times[0], intervals[0].Start)
	assert.Equal(t, times[3], intervals[0].End)
}

func TestGetTimeIntervalsSplitsAndSharesBoundary(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := minuteTimes(12, start)

	intervals, numProcesses := GetTimeIntervals(times, 2)
	require.Equal(t, 2, numProcesses)
	require.Len(t, intervals, 2)
	// Consecutive intervals share their boundary time.
	assert.Equal(t, intervals[0].End, intervals[1].Start)
	assert.Equal(t, times[0], intervals[0].Start)
	assert.Equal(t, times[len(times)-1], intervals[len(intervals)-1].End)
}

func TestGetTimeIntervalsReducesProcessesWhenIntervalsTooSmall(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := minuteTimes(12, start)

	// Requesting 6 processes over 12 times would give 2 times per
	// interval; too small, so num_processes must shrink.
	_, numProcesses := GetTimeIntervals(times, 6)
	assert.Less(t, numProcesses, 6)
}
