package match

import (
	"math"

	"github.com/thuner-project/thuner/internal/flow"
	"github.com/thuner-project/thuner/internal/geo"
)

// objectInfo summarises one labeled object of a mask: its bounding box in
// pixel space, its pixel centroid, and its area in square kilometres.
type objectInfo struct {
	Label   int
	Box     flow.Box
	CentreR float64
	CentreC float64
	AreaKm2 float32
}

// describeObjects scans labels once and returns one objectInfo per label
// in 1..numLabels, indexed by label-1 (label 0 is background).
func describeObjects(labels [][]int, cellAreas [][]float32, numLabels int) []objectInfo {
	infos := make([]objectInfo, numLabels)
	for i := range infos {
		infos[i] = objectInfo{
			Label: i + 1,
			Box:   flow.Box{RowStart: math.MaxInt32, ColStart: math.MaxInt32},
		}
	}
	sumR := make([]float64, numLabels)
	sumC := make([]float64, numLabels)
	count := make([]int, numLabels)

	rows := len(labels)
	for r := 0; r < rows; r++ {
		cols := len(labels[r])
		for c := 0; c < cols; c++ {
			lab := labels[r][c]
			if lab <= 0 || lab > numLabels {
				continue
			}
			idx := lab - 1
			info := &infos[idx]
			if r < info.Box.RowStart {
				info.Box.RowStart = r
			}
			if r+1 > info.Box.RowEnd {
				info.Box.RowEnd = r + 1
			}
			if c < info.Box.ColStart {
				info.Box.ColStart = c
			}
			if c+1 > info.Box.ColEnd {
				info.Box.ColEnd = c + 1
			}
			sumR[idx] += float64(r)
			sumC[idx] += float64(c)
			count[idx]++
			if cellAreas != nil {
				info.AreaKm2 += cellAreas[r][c]
			}
		}
	}
	for i := range infos {
		if count[i] == 0 {
			continue
		}
		infos[i].CentreR = sumR[i] / float64(count[i])
		infos[i].CentreC = sumC[i] / float64(count[i])
	}
	return infos
}

// centreDistanceKm returns the geodesic (geographic grids) or Euclidean
// (cartesian grids) distance in kilometres between two pixel centroids.
func centreDistanceKm(a, b objectInfo, g *geo.Grid) float64 {
	switch g.Name {
	case "geographic":
		lat1, lon1 := interpCoord(g.Latitude, a.CentreR), interpCoord(g.Longitude, a.CentreC)
		lat2, lon2 := interpCoord(g.Latitude, b.CentreR), interpCoord(g.Longitude, b.CentreC)
		return geo.GeodesicDistance(float32(lon1), float32(lat1), float32(lon2), float32(lat2)) / 1000
	case "cartesian":
		y1, x1 := interpCoord(g.Y, a.CentreR), interpCoord(g.X, a.CentreC)
		y2, x2 := interpCoord(g.Y, b.CentreR), interpCoord(g.X, b.CentreC)
		dy, dx := y2-y1, x2-x1
		return math.Sqrt(dy*dy+dx*dx) / 1000
	default:
		return 0
	}
}

// interpCoord linearly interpolates coords at a fractional pixel index,
// clamping to the array bounds.
func interpCoord(coords []float32, idx float64) float64 {
	if len(coords) == 0 {
		return 0
	}
	if idx <= 0 {
		return float64(coords[0])
	}
	if idx >= float64(len(coords)-1) {
		return float64(coords[len(coords)-1])
	}
	lo := int(idx)
	frac := idx - float64(lo)
	return float64(coords[lo])*(1-frac) + float64(coords[lo+1])*frac
}
