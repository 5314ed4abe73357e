// Package synthetic implements track.Adapter over an in-memory
// parametric field instead of any real file format, grounded on
// original_source/thor/data/synthetic.py's translating Gaussian cell
// generator. It exists for the track loop's integration tests and the
// end-to-end scenarios named in the tracking core's acceptance
// suite (stationary blob, translating blob, merger, split); the core
// never reads raw files directly, and this adapter never produces any.
package synthetic

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
	"github.com/thuner-project/thuner/internal/track"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// Object is one synthetic convective cell: a translating, optionally
// elliptical Gaussian bump on the field, parameterised the way
// synthetic.py's create_object_dictionary is.
type Object struct {
	Start time.Time

	CenterLatitude  float64
	CenterLongitude float64

	Radius       float64 // km, horizontal 1-sigma radius
	AltCenter    float64 // metres
	AltRadius    float64 // metres
	Intensity    float64
	Eccentricity float64 // 1 = circular, <1 stretches along Orientation
	Orientation  float64 // radians

	Direction float64 // radians, counterclockwise from east
	Speed     float64 // metres/second

	// End, if non-zero, stops the object contributing to the field
	// at or after this time — used to build split/merge scenarios
	// out of several overlapping Objects with staggered lifetimes.
	End time.Time
}

// position returns the object's (lat, lon) centre at t, translating it
// at Speed along Direction from Start. Objects starting after t or
// ending at/before t contribute nothing (active reports false).
func (o Object) position(t time.Time) (lat, lon float64, active bool) {
	if t.Before(o.Start) {
		return 0, 0, false
	}
	if !o.End.IsZero() && !t.Before(o.End) {
		return 0, 0, false
	}
	dt := t.Sub(o.Start).Seconds()
	dist := o.Speed * dt
	dy := dist * math.Sin(o.Direction)
	dx := dist * math.Cos(o.Direction)
	lon, lat = geo.CartesianToGeographicLCC(dx, dy, float32(o.CenterLatitude), float32(o.CenterLongitude))
	return lat, lon, true
}

// Dataset is the adapter's handle for one converted time step: the
// field values already evaluated at t, since there is no file to defer
// decoding from.
type Dataset struct {
	Time   time.Time
	Values detect.Field3D // (altitude, row, col)
}

// Adapter generates reflectivity-like fields over a fixed grid and
// time range from a set of synthetic Objects, implementing
// track.Adapter.
type Adapter struct {
	Grid    *geo.Grid
	Objects []Object
	Start   time.Time
	End     time.Time
	Step    time.Duration
}

// NewAdapter returns an Adapter over grid, generating one field per
// step from start to end inclusive. grid must be geographic: Object
// positions and radii are expressed in lat/lon degrees and km, the
// same units synthetic.py's create_object_dictionary uses.
func NewAdapter(grid *geo.Grid, objects []Object, start, end time.Time, step time.Duration) (*Adapter, error) {
	if grid.Name != "geographic" {
		return nil, trackerr.New(trackerr.KindConfig, "synthetic.NewAdapter",
			fmt.Errorf("synthetic adapter requires a geographic grid, got %q", grid.Name))
	}
	return &Adapter{Grid: grid, Objects: objects, Start: start, End: end, Step: step}, nil
}

var _ track.Adapter = (*Adapter)(nil)

// GetFilepaths returns one virtual path per time step in [Start, End],
// encoding the step time so ConvertDataset can regenerate the field
// without any adapter-side state.
func (a *Adapter) GetFilepaths(options.RunOptions) ([]string, error) {
	if a.Step <= 0 {
		return nil, trackerr.New(trackerr.KindConfig, "synthetic.Adapter.GetFilepaths",
			fmt.Errorf("step must be positive"))
	}
	var paths []string
	for t := a.Start; !t.After(a.End); t = t.Add(a.Step) {
		paths = append(paths, virtualPath(t))
	}
	return paths, nil
}

func virtualPath(t time.Time) string {
	return "synthetic://" + t.UTC().Format(time.RFC3339)
}

func parseVirtualPath(path string) (time.Time, error) {
	const prefix = "synthetic://"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return time.Time{}, trackerr.New(trackerr.KindConfig, "synthetic.parseVirtualPath",
			fmt.Errorf("not a synthetic path: %s", path))
	}
	return time.Parse(time.RFC3339, path[len(prefix):])
}

// ConvertDataset evaluates every active Object's Gaussian contribution
// onto the grid at t and returns the full-domain boundary (the
// synthetic grid always covers its own declared extent).
func (a *Adapter) ConvertDataset(t time.Time, filepath string, trackOpts options.TrackOptions, gridOpts options.GridOptions) (track.Dataset, [][2]float32, [][2]float32, error) {
	stepTime, err := parseVirtualPath(filepath)
	if err != nil {
		return nil, nil, nil, err
	}
	if !stepTime.Equal(t) {
		stepTime = t
	}

	values := a.evaluate(stepTime)
	boundary := domainBoundary(a.Grid)
	return Dataset{Time: stepTime, Values: values}, boundary, boundary, nil
}

// evaluate builds the (altitude, row, col) field at t by summing every
// active object's elliptical Gaussian, following
// synthetic.py's add_reflectivity rotated-coordinate formula.
func (a *Adapter) evaluate(t time.Time) detect.Field3D {
	rows, cols := a.Grid.Shape()
	depth := len(a.Grid.Altitude)
	if depth == 0 {
		depth = 1
	}
	field := make(detect.Field3D, depth)
	for z := range field {
		field[z] = make([][]float32, rows)
		for r := range field[z] {
			field[z][r] = make([]float32, cols)
		}
	}

	for _, obj := range a.Objects {
		lat, lon, active := obj.position(t)
		if !active {
			continue
		}
		addGaussian(field, a.Grid, lat, lon, obj)
	}
	return field
}

func addGaussian(field detect.Field3D, g *geo.Grid, lat, lon float64, obj Object) {
	horizRadiusDeg := obj.Radius / 111.32
	eccentricity := obj.Eccentricity
	if eccentricity == 0 {
		eccentricity = 1
	}
	cosO, sinO := math.Cos(obj.Orientation), math.Sin(obj.Orientation)

	for z, altitude := range altitudesOrDefault(g.Altitude, obj.AltCenter) {
		altDelta := 0.0
		if obj.AltRadius > 0 {
			altDelta = (float64(altitude) - obj.AltCenter) / obj.AltRadius
		}
		for r, cellLat := range g.Latitude {
			for c, cellLon := range g.Longitude {
				dLon := float64(cellLon) - lon
				dLat := float64(cellLat) - lat
				xRot := dLon*cosO + dLat*sinO
				yRot := -dLon*sinO + dLat*cosO

				distance := math.Sqrt(
					(xRot/horizRadiusDeg)*(xRot/horizRadiusDeg) +
						(yRot/(horizRadiusDeg*eccentricity))*(yRot/(horizRadiusDeg*eccentricity)) +
						altDelta*altDelta,
				)
				value := obj.Intensity * math.Exp(-(distance*distance)/2)
				if value < 0.05*obj.Intensity {
					continue
				}
				if value > float64(field[z][r][c]) {
					field[z][r][c] = float32(value)
				}
			}
		}
	}
}

func altitudesOrDefault(altitude []float32, fallback float64) []float32 {
	if len(altitude) > 0 {
		return altitude
	}
	return []float32{float32(fallback)}
}

func domainBoundary(g *geo.Grid) [][2]float32 {
	lats, lons := g.Latitude, g.Longitude
	if len(lats) == 0 || len(lons) == 0 {
		return nil
	}
	minLat, maxLat := minMax(lats)
	minLon, maxLon := minMax(lons)
	return [][2]float32{
		{minLat, minLon}, {minLat, maxLon}, {maxLat, maxLon}, {maxLat, minLon}, {minLat, minLon},
	}
}

func minMax(v []float32) (min, max float32) {
	min, max = v[0], v[0]
	for _, x := range v[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

// UpdateInputRecord loads a fresh dataset for t whenever rec's window
// no longer covers it; the synthetic field has no real buffering
// window, so every reload simply regenerates the field at t.
func (a *Adapter) UpdateInputRecord(t time.Time, rec *track.InputRecord, trackOpts options.TrackOptions, gridOpts options.GridOptions) error {
	if !rec.NeedsReload(t) {
		return nil
	}
	dataset, _, _, err := a.ConvertDataset(t, virtualPath(t), trackOpts, gridOpts)
	if err != nil {
		return err
	}
	rec.Dataset = dataset
	rec.CurrentTime = t
	if rec.Grid == nil {
		rec.Grid = geo.NewFieldGrid(a.Grid)
	}
	return nil
}

// GridFromDataset returns the already-evaluated field from dataset;
// variable is accepted for interface conformance but ignored, since
// the synthetic generator only ever produces one field.
func (a *Adapter) GridFromDataset(dataset track.Dataset, variable string, t time.Time) (detect.Field3D, error) {
	ds, ok := dataset.(Dataset)
	if !ok {
		return nil, trackerr.New(trackerr.KindConfig, "synthetic.Adapter.GridFromDataset",
			fmt.Errorf("dataset is not a synthetic.Dataset"))
	}
	return ds.Values, nil
}

// SortedTimes returns a.Start..a.End stepped by a.Step, the same time
// sequence GetFilepaths walks, useful for tests driving the track loop
// directly without going through the adapter's virtual paths.
func (a *Adapter) SortedTimes() []time.Time {
	var times []time.Time
	for t := a.Start; !t.After(a.End); t = t.Add(a.Step) {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
