package stitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/fsutil"
)

func TestFrameWriteReadRoundTrip(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	f := Frame{
		Header: []string{"time", "id", "universal_id", "parents"},
		Rows: [][]string{
			{"2026-01-01T00:00:00", "1", "1", ""},
			{"2026-01-01T00:10:00", "1", "1", ""},
		},
	}
	require.NoError(t, f.Write(fsys, "/out/core.csv"))

	back, err := ReadFrame(fsys, "/out/core.csv")
	require.NoError(t, err)
	assert.Equal(t, f.Header, back.Header)
	assert.Equal(t, f.Rows, back.Rows)
}

func TestReadFrameMissingFileErrors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	_, err := ReadFrame(fsys, "/missing.csv")
	assert.Error(t, err)
}
