package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/fsutil"
)

func TestFrameWriteReadRoundTrip(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	f := Frame{
		Header: []string{"time", "universal_id", "u_displacement"},
		Rows: [][]string{
			{"2026-01-01T00:00:00", "1", "1.500"},
			{"2026-01-01T00:10:00", "1", "2.000"},
		},
	}
	require.NoError(t, f.Write(fsys, "/out/analysis/cell/velocities.csv"))

	back, err := ReadFrame(fsys, "/out/analysis/cell/velocities.csv")
	require.NoError(t, err)
	assert.Equal(t, f.Header, back.Header)
	assert.Equal(t, f.Rows, back.Rows)
}

func TestFrameFloat64ColumnMissingErrors(t *testing.T) {
	f := Frame{Header: []string{"time"}, Rows: [][]string{{"2026-01-01T00:00:00"}}}
	_, err := f.Float64Column("u_displacement")
	assert.Error(t, err)
}

func TestFrameGroupByIDOrdersByTimeWithinGroup(t *testing.T) {
	f := Frame{
		Header: []string{"time", "universal_id"},
		Rows: [][]string{
			{"2026-01-01T00:10:00", "1"},
			{"2026-01-01T00:00:00", "1"},
			{"2026-01-01T00:00:00", "2"},
		},
	}
	groups, order, err := f.groupByID("universal_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, order)
	assert.Equal(t, []int{1, 0}, groups[1])
	assert.Equal(t, []int{2}, groups[2])
}
