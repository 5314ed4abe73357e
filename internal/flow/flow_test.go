package flow

import (
	"math"
	"testing"

	"github.com/thuner-project/thuner/internal/geo"
)

func gaussianBlob(rows, cols, row0, col0 int, amplitude, sigma float64) [][]float32 {
	field := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		field[r] = make([]float32, cols)
		for c := 0; c < cols; c++ {
			dr := float64(r - row0)
			dc := float64(c - col0)
			field[r][c] = float32(amplitude * math.Exp(-(dr*dr+dc*dc)/(2*sigma*sigma)))
		}
	}
	return field
}

func TestEstimate_StationaryBlob(t *testing.T) {
	previous := gaussianBlob(32, 32, 16, 16, 10, 3)
	current := gaussianBlob(32, 32, 16, 16, 10, 3)

	dRow, dCol := Estimate(previous, current)
	if dRow != 0 || dCol != 0 {
		t.Errorf("expected zero displacement for a stationary blob, got (%d, %d)", dRow, dCol)
	}
}

func TestEstimate_TranslatingBlob(t *testing.T) {
	previous := gaussianBlob(32, 32, 16, 16, 10, 3)
	current := gaussianBlob(32, 32, 20, 12, 10, 3) // +4 rows, -4 cols

	dRow, dCol := Estimate(previous, current)
	if dRow != 4 || dCol != -4 {
		t.Errorf("expected displacement (4, -4), got (%d, %d)", dRow, dCol)
	}
}

func TestWrapToSigned(t *testing.T) {
	cases := []struct {
		idx, n, want int
	}{
		{0, 32, 0},
		{15, 32, 15},
		{16, 32, 16}, // midpoint: spec treats as positive half
		{17, 32, -15},
		{31, 32, -1},
	}
	for _, c := range cases {
		got := wrapToSigned(c.idx, c.n)
		if got != c.want {
			t.Errorf("wrapToSigned(%d, %d) = %d, want %d", c.idx, c.n, got, c.want)
		}
	}
}

func TestGaussianBlur2D_KeepsShapeAndPeak(t *testing.T) {
	field := gaussianBlob(16, 16, 8, 8, 1, 2)
	var before []float64
	for _, row := range field {
		for _, v := range row {
			before = append(before, float64(v))
		}
	}
	toFloat64 := func(f [][]float32) [][]float64 {
		out := make([][]float64, len(f))
		for r := range f {
			out[r] = make([]float64, len(f[r]))
			for c := range f[r] {
				out[r][c] = float64(f[r][c])
			}
		}
		return out
	}
	blurred := gaussianBlur2D(toFloat64(field), 2)
	if len(blurred) != 16 || len(blurred[0]) != 16 {
		t.Fatalf("unexpected blurred shape %dx%d", len(blurred), len(blurred[0]))
	}
	// The peak should remain roughly centred after smoothing.
	row, col := argmax2D(blurred)
	if row != 8 || col != 8 {
		t.Errorf("expected blurred peak to remain near (8,8), got (%d,%d)", row, col)
	}
}

func TestReplaceNaN(t *testing.T) {
	nan := float32(math.NaN())
	field := [][]float32{{1, nan}, {nan, 4}}
	out := replaceNaN(field)
	if out[0][1] != 0 || out[1][0] != 0 {
		t.Errorf("expected NaNs replaced with 0, got %v", out)
	}
	if out[0][0] != 1 || out[1][1] != 4 {
		t.Errorf("expected non-NaN values preserved, got %v", out)
	}
}

func TestBoxExpandClipsToFrame(t *testing.T) {
	b := Box{RowStart: 0, RowEnd: 2, ColStart: 0, ColEnd: 2}
	expanded := b.Expand(5, 5, 10, 10)
	if expanded.RowStart != 0 || expanded.ColStart != 0 {
		t.Errorf("expected clipping at the frame edge, got %+v", expanded)
	}
	if expanded.RowEnd != 7 || expanded.ColEnd != 7 {
		t.Errorf("expected box to expand within frame bounds, got %+v", expanded)
	}
}

func TestMarginPixels_Cartesian(t *testing.T) {
	g := &geo.Grid{Name: "cartesian", CartesianSpacing: [2]float32{1000, 1000}}
	rows, cols := MarginPixels(10, g, 0, 0) // 10km margin, 1km cells
	if rows != 11 || cols != 11 {
		t.Errorf("expected 11 pixel margin (10km/1km + 1), got (%d, %d)", rows, cols)
	}
}
