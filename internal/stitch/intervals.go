// Package stitch splits a run's time domain into contiguous intervals
// for parallel tracking and, once every interval has been tracked
// independently, joins the interval-local masks and attribute csvs back
// into one run-wide output (spec §4.9, §5's "embarrassingly parallel
// over contiguous time intervals").
package stitch

import (
	"math"
	"time"
)

// TimeInterval is one contiguous, closed span of times a single worker
// tracks independently of every other interval.
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// minTimesPerInterval mirrors the source implementation's hard-coded
// floor: below this many times per interval, parallelism buys nothing
// and only adds stitching overhead.
const minTimesPerInterval = 6

// GetTimeIntervals splits times (already sorted ascending) into up to
// numProcesses contiguous intervals, consecutive intervals sharing
// their boundary time so the matcher has a previous frame to match
// against at the start of every interval but the first. If there are
// too few times to give every process a useful share, num_processes is
// reduced (down to 1, meaning "track the whole domain in one pass").
func GetTimeIntervals(times []time.Time, numProcesses int) ([]TimeInterval, int) {
	if len(times) == 0 {
		return nil, 1
	}
	if len(times) < minTimesPerInterval {
		return []TimeInterval{{Start: times[0], End: times[len(times)-1]}}, 1
	}
	if numProcesses < 1 {
		numProcesses = 1
	}

	intervalSize := int(math.Ceil(float64(len(times)) / float64(numProcesses)))
	if intervalSize < minTimesPerInterval {
		numProcesses = int(math.Ceil(float64(len(times)) / minTimesPerInterval))
		intervalSize = int(math.Ceil(float64(len(times)) / float64(numProcesses)))
	}

	var intervals []TimeInterval
	previous, next := 0, intervalSize
	end := len(times) - 1
	for next <= end {
		intervals = append(intervals, TimeInterval{Start: times[previous], End: times[next]})
		previous = next
		next = previous + intervalSize
	}
	if next > end {
		intervals = append(intervals, TimeInterval{Start: times[previous], End: times[end]})
	}
	return intervals, numProcesses
}
