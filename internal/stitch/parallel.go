package stitch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/alitto/pond"
)

// TrackFunc runs the full time loop for one contiguous interval,
// writing its output under outDir. The run driver supplies it, since
// only the driver knows how to wire a track.Tracks with the right
// adapter, grid, and storage-backed mask writer; stitch only owns the
// interval split and the post-hoc join.
type TrackFunc func(ctx context.Context, interval TimeInterval, index int, outDir string) error

// RunParallel splits times into up to numProcesses contiguous intervals
// (GetTimeIntervals) and runs trackFn once per interval, per §5's "N
// independent processes run in parallel; each owns disjoint file-system
// subtrees." A single interval runs trackFn inline with no pool at all,
// matching the source implementation's num_processes == 1 fast path.
func RunParallel(ctx context.Context, times []time.Time, numProcesses int, root string, trackFn TrackFunc) ([]TimeInterval, error) {
	intervals, numProcesses := GetTimeIntervals(times, numProcesses)
	if len(intervals) <= 1 {
		if len(intervals) == 0 {
			return intervals, nil
		}
		return intervals, trackFn(ctx, intervals[0], 0, filepath.Join(root, intervalDirName(0)))
	}

	pool := pond.New(numProcesses, 0, pond.MinWorkers(numProcesses), pond.Context(ctx))

	var mu sync.Mutex
	var firstErr error
	for i, iv := range intervals {
		i, iv := i, iv
		pool.Submit(func() {
			err := trackFn(ctx, iv, i, filepath.Join(root, intervalDirName(i)))
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("interval %d: %w", i, err)
				}
				mu.Unlock()
			}
		})
	}
	pool.StopAndWait()
	return intervals, firstErr
}

func intervalDirName(i int) string {
	return fmt.Sprintf("interval_%d", i)
}
