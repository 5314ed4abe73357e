package stitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLabelsBijectiveOnMatchingRegion(t *testing.T) {
	last := [][]int{
		{1, 1, 0},
		{0, 2, 2},
	}
	// Same binary footprint, but the grouper assigned different labels.
	next := [][]int{
		{5, 5, 0},
		{0, 7, 7},
	}
	mapping, err := MatchLabels(last, next)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 5, 2: 7}, mapping)
}

func TestMatchLabelsEmptyWhenRegionsDiffer(t *testing.T) {
	last := [][]int{
		{1, 1, 0},
		{0, 0, 0},
	}
	next := [][]int{
		{0, 1, 1},
		{0, 0, 0},
	}
	mapping, err := MatchLabels(last, next)
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestMatchLabelsErrorsOnAmbiguousMapping(t *testing.T) {
	last := [][]int{
		{1, 1},
	}
	next := [][]int{
		{5, 6},
	}
	_, err := MatchLabels(last, next)
	assert.Error(t, err)
}
