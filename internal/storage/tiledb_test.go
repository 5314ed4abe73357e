package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/stitch"
)

func TestMaskStoreWriteMaskChunkThenReadMaskFramesRoundTrip(t *testing.T) {
	root := t.TempDir()
	store, err := NewMaskStore(root)
	require.NoError(t, err)
	defer store.Close()

	store.Reserve("cell", "", 2, 2, 2)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	require.NoError(t, store.WriteMaskChunk("cell", "", t0, [][]int{{0, 1}, {1, 1}}))
	require.NoError(t, store.WriteMaskChunk("cell", "", t1, [][]int{{0, 0}, {1, 1}}))

	frames, err := store.ReadMaskFrames(root, "cell", "")
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.True(t, frames[0].Time.Equal(t0))
	assert.Equal(t, [][]int{{0, 1}, {1, 1}}, frames[0].Labels)
	assert.True(t, frames[1].Time.Equal(t1))
	assert.Equal(t, [][]int{{0, 0}, {1, 1}}, frames[1].Labels)
}

func TestMaskStoreWriteMaskChunkRejectsStepsBeyondReservedCapacity(t *testing.T) {
	root := t.TempDir()
	store, err := NewMaskStore(root)
	require.NoError(t, err)
	defer store.Close()

	store.Reserve("cell", "", 1, 1, 1)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.WriteMaskChunk("cell", "", t0, [][]int{{1}}))

	err = store.WriteMaskChunk("cell", "", t0.Add(time.Minute), [][]int{{1}})
	assert.Error(t, err)
}

func TestMaskStoreWriteMaskFramesWritesStitchedResult(t *testing.T) {
	root := t.TempDir()
	store, err := NewMaskStore(root)
	require.NoError(t, err)
	defer store.Close()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	frames := []stitch.MaskFrame{
		{Time: t0, Labels: [][]int{{1, 0}, {0, 1}}},
		{Time: t0.Add(10 * time.Minute), Labels: [][]int{{1, 1}, {0, 0}}},
	}
	require.NoError(t, store.WriteMaskFrames(root, "cell", "convective", frames))

	got, err := store.ReadMaskFrames(root, "cell", "convective")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, frames[0].Labels, got[0].Labels)
	assert.Equal(t, frames[1].Labels, got[1].Labels)
}

func TestMaskStoreArrayURISeparatesMembers(t *testing.T) {
	store := &MaskStore{root: "/out"}
	assert.Equal(t, filepath.Join("/out", "masks", "mcs.tiledb"), store.arrayURI("mcs", ""))
	assert.Equal(t, filepath.Join("/out", "masks", "mcs/convective.tiledb"), store.arrayURI("mcs", "convective"))
}
