package stitch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunParallelDispatchesOneCallPerInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := minuteTimes(20, start)

	var mu sync.Mutex
	seen := map[int]TimeInterval{}
	trackFn := func(_ context.Context, interval TimeInterval, index int, outDir string) error {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = interval
		assert.Contains(t, outDir, fmt.Sprintf("interval_%d", index))
		return nil
	}

	intervals, err := RunParallel(context.Background(), times, 2, "/out", trackFn)
	require.NoError(t, err)
	assert.Len(t, seen, len(intervals))
}

func TestRunParallelSingleIntervalRunsInline(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := minuteTimes(3, start)

	var called int
	trackFn := func(_ context.Context, _ TimeInterval, index int, _ string) error {
		called++
		assert.Equal(t, 0, index)
		return nil
	}

	_, err := RunParallel(context.Background(), times, 4, "/out", trackFn)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
}

func TestRunParallelPropagatesFirstError(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times := minuteTimes(20, start)

	trackFn := func(_ context.Context, _ TimeInterval, index int, _ string) error {
		if index == 1 {
			return fmt.Errorf("boom")
		}
		return nil
	}

	_, err := RunParallel(context.Background(), times, 2, "/out", trackFn)
	assert.Error(t, err)
}
