package stitch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/fsutil"
)

type fakeMaskStore struct {
	frames map[string][]MaskFrame // key: intervalDir+"|"+object+"|"+member
	writes map[string][]MaskFrame
}

func newFakeMaskStore() *fakeMaskStore {
	return &fakeMaskStore{frames: map[string][]MaskFrame{}, writes: map[string][]MaskFrame{}}
}

func (s *fakeMaskStore) key(dir, object, member string) string {
	return dir + "|" + object + "|" + member
}

func (s *fakeMaskStore) put(dir, object, member string, frames []MaskFrame) {
	s.frames[s.key(dir, object, member)] = frames
}

func (s *fakeMaskStore) ReadMaskFrames(dir, object, member string) ([]MaskFrame, error) {
	return s.frames[s.key(dir, object, member)], nil
}

func (s *fakeMaskStore) WriteMaskFrames(root, object, member string, frames []MaskFrame) error {
	s.writes[s.key(root, object, member)] = frames
	return nil
}

func TestRunStitchesAttributesAndMasksAcrossIntervals(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	root := "/run"

	header := "time,id,universal_id,parents\n"
	require.NoError(t, fsys.WriteFile(root+"/interval_0/attributes/cell/core.csv",
		[]byte(header+"2026-01-01T00:00:00,1,1,\n2026-01-01T00:10:00,1,1,\n"), 0o644))
	require.NoError(t, fsys.WriteFile(root+"/interval_1/attributes/cell/core.csv",
		[]byte(header+"2026-01-01T00:10:00,1,1,\n2026-01-01T00:20:00,1,1,\n"), 0o644))

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	t2 := t0.Add(20 * time.Minute)
	store := newFakeMaskStore()
	store.put(root+"/interval_0", "cell", "", []MaskFrame{
		{Time: t0, Labels: [][]int{{1}}},
		{Time: t1, Labels: [][]int{{1}}},
	})
	store.put(root+"/interval_1", "cell", "", []MaskFrame{
		{Time: t1, Labels: [][]int{{1}}},
		{Time: t2, Labels: [][]int{{1}}},
	})

	intervals := []TimeInterval{{}, {}}
	objects := []ObjectSpec{{Name: "cell", Types: []string{"core"}}}

	err := Run(fsys, root, intervals, objects, store, store, false)
	require.NoError(t, err)

	out, err := ReadFrame(fsys, root+"/attributes/cell/core.csv")
	require.NoError(t, err)
	require.Len(t, out.Rows, 3)
	idIdx := out.colIndex("universal_id")
	first := out.Rows[0][idIdx]
	for _, row := range out.Rows {
		assert.Equal(t, first, row[idIdx])
	}

	written := store.writes[root+"|cell|"]
	assert.NotEmpty(t, written)
}

func TestRunCleanupRemovesIntervalDirectories(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	root := "/run"
	header := "time,id,universal_id,parents\n"
	require.NoError(t, fsys.WriteFile(root+"/interval_0/attributes/cell/core.csv", []byte(header+"2026-01-01T00:00:00,1,1,\n"), 0o644))

	intervals := []TimeInterval{{}}
	objects := []ObjectSpec{{Name: "cell", Types: []string{"core"}}}

	err := Run(fsys, root, intervals, objects, nil, nil, true)
	require.NoError(t, err)
	assert.False(t, fsys.Exists(root+"/interval_0/attributes/cell/core.csv"))
}
