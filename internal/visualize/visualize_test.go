package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/fsutil"
)

const coreCSV = `time,universal_id,latitude,longitude
2026-01-01T00:00:00,1,-12.000,131.000
2026-01-01T00:10:00,1,-12.010,131.020
2026-01-01T00:00:00,2,-13.500,130.500
`

func TestTrackPathsRendersOneSeriesPerObject(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.MkdirAll("/out/attributes/cell", 0o755))
	require.NoError(t, fsys.WriteFile("/out/attributes/cell/core.csv", []byte(coreCSV), 0o644))

	outPath := filepath.Join(t.TempDir(), "track_paths.html")
	err := TrackPaths(fsys, "/out/attributes/cell/core.csv", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id_1")
	assert.Contains(t, string(data), "id_2")
}
