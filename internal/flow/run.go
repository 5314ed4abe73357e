package flow

import (
	"fmt"

	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
)

// LocalFlow estimates the pixel displacement of the region around
// objectBox between previous and current, expanding the box by
// o.LocalFlowMarginKm (converted to pixels at the box centre) before
// cropping and correlating.
func LocalFlow(previous, current [][]float32, objectBox Box, g *geo.Grid, o options.FlowOptions) (geo.Vector2, error) {
	rows, cols := fieldShape(current)
	row, col := objectBox.Centre()
	marginRows, marginCols := MarginPixels(o.LocalFlowMarginKm, g, row, col)
	box := objectBox.Expand(marginRows, marginCols, rows, cols)

	return correlate(previous, current, box)
}

// GlobalFlow estimates a single displacement vector for the whole field,
// using a box centred on the grid expanded by o.GlobalFlowMarginKm.
func GlobalFlow(previous, current [][]float32, g *geo.Grid, o options.FlowOptions) (geo.Vector2, error) {
	rows, cols := fieldShape(current)
	centreRow, centreCol := rows/2, cols/2
	marginRows, marginCols := MarginPixels(o.GlobalFlowMarginKm, g, centreRow, centreCol)

	centre := Box{RowStart: centreRow, RowEnd: centreRow + 1, ColStart: centreCol, ColEnd: centreCol + 1}
	box := centre.Expand(marginRows, marginCols, rows, cols)

	return correlate(previous, current, box)
}

func correlate(previous, current [][]float32, box Box) (geo.Vector2, error) {
	if box.RowEnd-box.RowStart < 2 || box.ColEnd-box.ColStart < 2 {
		return geo.Vector2{}, fmt.Errorf("flow.correlate: search box too small to correlate")
	}
	prevCrop := Crop(previous, box)
	currCrop := Crop(current, box)

	dRow, dCol := Estimate(prevCrop, currCrop)
	return geo.Vector2{DRow: float64(dRow), DCol: float64(dCol)}, nil
}

func fieldShape(field [][]float32) (rows, cols int) {
	return len(field), len(field[0])
}
