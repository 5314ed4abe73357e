package track

import (
	"time"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
)

// Dataset is an adapter-owned handle to one converted source dataset
// (a netCDF file, a radar volume, ...). The core never inspects it; it
// is only ever passed back into GridFromDataset.
type Dataset any

// Adapter implements the external ingestion contract: locating files,
// converting them into the adapter's own dataset representation, and
// extracting gridded field slices from them. The core never reads raw
// files directly (spec §6).
type Adapter interface {
	// GetFilepaths lists the source files a run will step through, in
	// time order.
	GetFilepaths(o options.RunOptions) ([]string, error)

	// ConvertDataset loads filepath for t and returns the adapter's
	// dataset handle together with the domain boundary coordinates (a
	// possibly simplified polygon used to build the boundary mask).
	ConvertDataset(t time.Time, filepath string, trackOpts options.TrackOptions, gridOpts options.GridOptions) (dataset Dataset, boundaryCoords, simpleBoundaryCoords [][2]float32, err error)

	// UpdateInputRecord advances rec's dataset window to cover t,
	// loading a new file via ConvertDataset when the currently loaded
	// dataset no longer covers t within its start/end buffers.
	UpdateInputRecord(t time.Time, rec *InputRecord, trackOpts options.TrackOptions, gridOpts options.GridOptions) error

	// GridFromDataset extracts the named variable at t from dataset as
	// a 3-D (altitude, row, col) field.
	GridFromDataset(dataset Dataset, variable string, t time.Time) (detect.Field3D, error)
}

// InputRecord owns one track dataset's currently loaded window: the
// dataset handle an adapter last converted, the grid it was regridded
// onto, and the buffers that decide when a new file must be loaded.
// A record keeps its Dataset until the next load replaces it; nothing
// in this package sets Dataset back to nil.
type InputRecord struct {
	Dataset     Dataset
	Grid        *geo.FieldGrid
	CurrentTime time.Time

	StartBuffer time.Duration
	EndBuffer   time.Duration
}

// NeedsReload reports whether t falls outside rec's currently loaded
// window, accounting for the configured start/end buffers.
func (rec *InputRecord) NeedsReload(t time.Time) bool {
	if rec.Dataset == nil {
		return true
	}
	windowStart := rec.CurrentTime.Add(-rec.StartBuffer)
	windowEnd := rec.CurrentTime.Add(rec.EndBuffer)
	return t.Before(windowStart) || t.After(windowEnd)
}
