package stitch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStitchMasksRemapsAndDropsOverlapFrame(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	t2 := t0.Add(20 * time.Minute)

	interval0 := []MaskFrame{
		{Time: t0, Labels: [][]int{{1, 0}, {0, 0}}},
		{Time: t1, Labels: [][]int{{1, 0}, {0, 0}}},
	}
	interval1 := []MaskFrame{
		{Time: t1, Labels: [][]int{{1, 0}, {0, 0}}}, // reprocessed overlap frame
		{Time: t2, Labels: [][]int{{1, 0}, {0, 0}}},
	}
	idDicts := []map[int]int{
		{1: 1}, // interval0's own labels already at their final numbering
		{1: 1}, // interval1's label 1 maps to the same final id
	}

	out := StitchMasks([][]MaskFrame{interval0, interval1}, idDicts)
	require.Len(t, out, 3)
	assert.Equal(t, t0, out[0].Time)
	assert.Equal(t, t1, out[1].Time)
	assert.Equal(t, t2, out[2].Time)
	for _, f := range out {
		assert.Equal(t, 1, f.Labels[0][0])
	}
}

func TestApplyLabelMappingLeavesBackgroundAlone(t *testing.T) {
	labels := [][]int{{0, 3}, {3, 0}}
	out := applyLabelMapping(map[int]int{3: 9}, labels)
	assert.Equal(t, [][]int{{0, 9}, {9, 0}}, out)
}
