package attribute

import "github.com/thuner-project/thuner/internal/geo"

// centreLatLon converts a pixel (row, col) centroid to (lat, lon)
// degrees: geographic grids interpolate the coordinate arrays directly
// (latitude varies only with row, longitude only with col, on a regular
// grid); cartesian grids interpolate (y, x) metres and project back
// through the grid's LCC origin.
func centreLatLon(g *geo.Grid, row, col float64) (lat, lon float32) {
	switch g.Name {
	case "geographic":
		return float32(interpCoord(g.Latitude, row)), float32(interpCoord(g.Longitude, col))
	case "cartesian":
		y, x := interpCoord(g.Y, row), interpCoord(g.X, col)
		lon64, lat64 := geo.CartesianToGeographicLCC(x, y, g.CentralLatitude, g.CentralLongitude)
		return float32(lat64), float32(lon64)
	default:
		return 0, 0
	}
}

// interpCoord linearly interpolates coords at a fractional pixel index,
// clamping to the array bounds (mirrors internal/match's helper of the
// same name; kept local since the two packages have no other shared
// dependency worth introducing for one pure function).
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
