package flow

import (
	"github.com/thuner-project/thuner/internal/geo"
)

// Box is a half-open (row, col) window: rows [RowStart,RowEnd), cols
// [ColStart,ColEnd).
type Box struct {
	RowStart, RowEnd int
	ColStart, ColEnd int
}

// Centre returns the box's integer centre pixel.
func (b Box) Centre() (row, col int) {
	return (b.RowStart + b.RowEnd) / 2, (b.ColStart + b.ColEnd) / 2
}

// Expand grows b by marginRows/marginCols on every side and clips the
// result to [0,rows) x [0,cols).
func (b Box) Expand(marginRows, marginCols, rows, cols int) Box {
	out := Box{
		RowStart: b.RowStart - marginRows,
		RowEnd:   b.RowEnd + marginRows,
		ColStart: b.ColStart - marginCols,
		ColEnd:   b.ColEnd + marginCols,
	}
	if out.RowStart < 0 {
		out.RowStart = 0
	}
	if out.ColStart < 0 {
		out.ColStart = 0
	}
	if out.RowEnd > rows {
		out.RowEnd = rows
	}
	if out.ColEnd > cols {
		out.ColEnd = cols
	}
	return out
}

// Crop extracts the window described by b from field.
func Crop(field [][]float32, b Box) [][]float32 {
	out := make([][]float32, b.RowEnd-b.RowStart)
	for i, r := 0, b.RowStart; r < b.RowEnd; i, r = i+1, r+1 {
		out[i] = append([]float32(nil), field[r][b.ColStart:b.ColEnd]...)
	}
	return out
}

// MarginPixels converts a margin in kilometres to a (rows, cols) pixel
// margin at the given grid location: cartesian grids divide directly by
// the constant spacing, geographic grids divide by the geodesic distance
// spanned by one grid step at that latitude/longitude so the margin
// covers the same ground distance regardless of latitudinal distortion.
func MarginPixels(marginKm float32, g *geo.Grid, row, col int) (marginRows, marginCols int) {
	marginM := float64(marginKm) * 1000
	switch g.Name {
	case "cartesian":
		marginRows = int(marginM/float64(g.CartesianSpacing[0])) + 1
		marginCols = int(marginM/float64(g.CartesianSpacing[1])) + 1
	case "geographic":
		row = clamp(row, len(g.Latitude))
		col = clamp(col, len(g.Longitude))
		rowStep := 1
		if row+1 >= len(g.Latitude) {
			rowStep = -1
		}
		colStep := 1
		if col+1 >= len(g.Longitude) {
			colStep = -1
		}
		dRowM := geo.GeodesicDistance(g.Longitude[col], g.Latitude[row], g.Longitude[col], g.Latitude[row+rowStep])
		dColM := geo.GeodesicDistance(g.Longitude[col], g.Latitude[row], g.Longitude[col+colStep], g.Latitude[row])
		if dRowM == 0 {
			dRowM = 1
		}
		if dColM == 0 {
			dColM = 1
		}
		marginRows = int(marginM/dRowM) + 1
		marginCols = int(marginM/dColM) + 1
	}
	return marginRows, marginCols
}
