package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/identity"
	"github.com/thuner-project/thuner/internal/options"
)

func mask(labels [][]int, n int) *detect.Mask {
	return &detect.Mask{Labels: labels, NumLabels: n}
}

func TestRunAcceptsComponentSpanningAllBands(t *testing.T) {
	low := mask([][]int{
		{1, 1, 0},
		{1, 1, 0},
		{0, 0, 0},
	}, 1)
	mid := mask([][]int{
		{2, 2, 0},
		{2, 2, 0},
		{0, 0, 0},
	}, 1)
	high := mask([][]int{
		{3, 3, 0},
		{3, 3, 0},
		{0, 0, 0},
	}, 1)

	o := options.GroupOptions{MemberObjects: []string{"low", "mid", "high"}, MatchedObject: "mid"}
	res, err := Run(map[string]*detect.Mask{"low": low, "mid": mid, "high": high}, o)
	require.NoError(t, err)

	require.NotNil(t, res.MatchedMask)
	assert.Equal(t, 1, res.MatchedMask.NumLabels)
	assert.Equal(t, 1, res.MatchedMask.Labels[0][0])
	assert.ElementsMatch(t, []int{1, 2, 3}, idsToInts(res.ComponentMemberIDs[1]))
}

func TestRunRejectsComponentMissingOneBand(t *testing.T) {
	// Scenario 5: overlap present in the first two bands, absent from
	// the third. Expect no grouped object.
	low := mask([][]int{
		{1, 1},
		{0, 0},
	}, 1)
	mid := mask([][]int{
		{2, 2},
		{0, 0},
	}, 1)
	high := mask([][]int{
		{0, 0},
		{0, 0},
	}, 0)

	o := options.GroupOptions{MemberObjects: []string{"low", "mid", "high"}, MatchedObject: "mid"}
	res, err := Run(map[string]*detect.Mask{"low": low, "mid": mid, "high": high}, o)
	require.NoError(t, err)

	assert.Equal(t, 0, res.MatchedMask.NumLabels)
	assert.Empty(t, res.ComponentMemberIDs)
	for r := range res.MatchedMask.Labels {
		for c := range res.MatchedMask.Labels[r] {
			assert.Equal(t, 0, res.MatchedMask.Labels[r][c])
		}
	}
}

func TestRunKeepsDisjointComponentsSeparate(t *testing.T) {
	low := mask([][]int{
		{1, 0, 4, 0},
	}, 2)
	high := mask([][]int{
		{2, 0, 5, 0},
	}, 2)

	o := options.GroupOptions{MemberObjects: []string{"low", "high"}, MatchedObject: "low"}
	res, err := Run(map[string]*detect.Mask{"low": low, "high": high}, o)
	require.NoError(t, err)

	assert.Equal(t, 2, res.MatchedMask.NumLabels)
	assert.NotEqual(t, res.MatchedMask.Labels[0][0], res.MatchedMask.Labels[0][2])
	assert.Len(t, res.ComponentMemberIDs, 2)
}

func idsToInts(ids []identity.UniversalID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
