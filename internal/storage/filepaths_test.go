package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/options"
)

func TestFilepathLedgerAppendsRowsWithHeader(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	paths := options.Paths{Root: "/out", FS: fsys}
	ledger := NewFilepathLedger(fsys, paths, "radar")

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(10 * time.Minute)
	require.NoError(t, ledger.Append(t0, "/data/radar/0000.nc"))
	require.NoError(t, ledger.Append(t1, "/data/radar/0001.nc"))

	rows, err := ledger.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "/data/radar/0000.nc", rows[0][1])
	assert.Equal(t, "/data/radar/0001.nc", rows[1][1])

	raw, err := fsys.ReadFile(paths.FilepathsDir() + "/radar.csv")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "time,filepath")
}

func TestRegridderWeightsDirIsReadOnlyPath(t *testing.T) {
	paths := options.NewPaths("/out")
	assert.Equal(t, paths.RegridderWeightsDir(), RegridderWeightsDir(paths))
}
