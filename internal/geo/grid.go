// Package geo carries the coordinate systems, projections, and distance
// arithmetic shared by every tracking component: the grid a dataset is
// regridded onto, the geodesic and Lambert Conformal Conic math needed to
// relate pixel displacements to metres, and the per-cell area grid used
// by the detector's minimum-area filter.
package geo

import (
	"fmt"
	"math"

	"github.com/thuner-project/thuner/internal/options"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// Grid is the coordinate system a dataset has been regridded onto, built
// from a validated options.GridOptions.
type Grid struct {
	Name string // "geographic" or "cartesian"

	Latitude  []float32
	Longitude []float32
	Y         []float32
	X         []float32
	Altitude  []float32

	GeographicSpacing [2]float32 // (dlat, dlon) degrees
	CartesianSpacing  [2]float32 // (dy, dx) metres

	CentralLatitude  float32
	CentralLongitude float32
}

// NewGrid builds a Grid from validated options, computing a central
// projection origin from the coordinate mean when one was not supplied
// (mirrors the original's geographic_to_cartesian_lcc default).
func NewGrid(o options.GridOptions) (*Grid, error) {
	if err := o.Validate(); err != nil {
		return nil, trackerr.New(trackerr.KindConfig, "geo.NewGrid", err)
	}
	g := &Grid{
		Name:      o.Name,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Y:         o.Y,
		X:         o.X,
		Altitude:  o.Altitude,
	}
	if o.GeographicSpacing != nil {
		g.GeographicSpacing = *o.GeographicSpacing
	}
	if o.CartesianSpacing != nil {
		g.CartesianSpacing = *o.CartesianSpacing
	}
	switch {
	case o.CentralLatitude != nil && o.CentralLongitude != nil:
		g.CentralLatitude = *o.CentralLatitude
		g.CentralLongitude = *o.CentralLongitude
	case o.Name == "geographic":
		g.CentralLatitude = mean(o.Latitude)
		g.CentralLongitude = mean(o.Longitude)
	}
	return g, nil
}

func mean(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += float64(x)
	}
	return float32(sum / float64(len(v)))
}

// Shape returns the grid's (rows, cols) extent.
func (g *Grid) Shape() (rows, cols int) {
	if g.Name == "cartesian" {
		return len(g.Y), len(g.X)
	}
	return len(g.Latitude), len(g.Longitude)
}

// FieldGrid is a single time slice of gridded data together with the
// masks that bound where values are physically meaningful: DomainMask
// marks cells inside the instrument's coverage, BoundaryMask marks cells
// within one search margin of the domain edge (detector/matcher both
// consult this to avoid spurious edge detections and edge-clipped cost
// comparisons).
type FieldGrid struct {
	Grid         *Grid
	DomainMask   [][]bool
	BoundaryMask [][]bool
}

// NewFieldGrid builds a FieldGrid with both masks set to all-true,
// matching datasets that cover their full declared grid.
func NewFieldGrid(g *Grid) *FieldGrid {
	rows, cols := g.Shape()
	domain := make([][]bool, rows)
	boundary := make([][]bool, rows)
	for r := 0; r < rows; r++ {
		domain[r] = make([]bool, cols)
		boundary[r] = make([]bool, cols)
		for c := 0; c < cols; c++ {
			domain[r][c] = true
			boundary[r][c] = true
		}
	}
	return &FieldGrid{Grid: g, DomainMask: domain, BoundaryMask: boundary}
}

// Vector2 is a row/column pixel displacement, the unit flow vectors and
// raw object motion are expressed in before conversion to metres.
type Vector2 struct {
	DRow float64
	DCol float64
}

// NewGeographicGrid rounds a dataset's observed lat/lon extent out to the
// nearest multiple of dlat/dlon, producing the regular coordinate arrays
// a geographic Grid is built from.
func NewGeographicGrid(lats, lons []float32, dlat, dlon float32) (newLats, newLons []float32, err error) {
	if len(lats) == 0 || len(lons) == 0 {
		return nil, nil, fmt.Errorf("geo.NewGeographicGrid: empty coordinate input")
	}
	if dlat <= 0 || dlon <= 0 {
		return nil, nil, fmt.Errorf("geo.NewGeographicGrid: spacing must be positive")
	}
	minLat := math.Floor(float64(minOf(lats))/float64(dlat)) * float64(dlat)
	maxLat := math.Ceil(float64(maxOf(lats))/float64(dlat)) * float64(dlat)
	minLon := math.Floor(float64(minOf(lons))/float64(dlon)) * float64(dlon)
	maxLon := math.Ceil(float64(maxOf(lons))/float64(dlon)) * float64(dlon)

	newLats = arangeRound8(minLat, maxLat, float64(dlat))
	newLons = arangeRound8(minLon, maxLon, float64(dlon))
	return newLats, newLons, nil
}

func arangeRound8(start, stop, step float64) []float32 {
	n := int(math.Round((stop-start)/step)) + 1
	out := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		v := start + float64(i)*step
		out = append(out, float32(math.Round(v*1e8)/1e8))
	}
	return out
}

func minOf(v []float32) float32 {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(v []float32) float32 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// SubsetCurvilinear finds the bounding row/col window of a curvilinear
// lat/lon field that falls within [latMin,latMax] x [lonMin,lonMax].
func SubsetCurvilinear(lat, lon [][]float32, latMin, latMax, lonMin, lonMax float32) (rowStart, rowEnd, colStart, colEnd int, err error) {
	if len(lat) == 0 || len(lon) == 0 || len(lat) != len(lon) {
		return 0, 0, 0, 0, fmt.Errorf("geo.SubsetCurvilinear: lat/lon must be non-empty and same shape")
	}
	rowStart, colStart = -1, -1
	found := false
	for r := range lat {
		for c := range lat[r] {
			inLat := lat[r][c] >= latMin && lat[r][c] <= latMax
			inLon := lon[r][c] >= lonMin && lon[r][c] <= lonMax
			if !inLat || !inLon {
				continue
			}
			if rowStart == -1 || r < rowStart {
				rowStart = r
			}
			if r > rowEnd {
				rowEnd = r
			}
			if colStart == -1 || c < colStart {
				colStart = c
			}
			if c > colEnd {
				colEnd = c
			}
			found = true
		}
	}
	if !found {
		return 0, 0, 0, 0, fmt.Errorf("geo.SubsetCurvilinear: no points found in the specified lat/lon range")
	}
	return rowStart, rowEnd + 1, colStart, colEnd + 1, nil
}
