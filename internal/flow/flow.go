package flow

import "math"

// Estimate returns the signed (Δrow, Δcol) pixel displacement of current
// relative to previous, via FFT phase correlation: NaNs are replaced
// with zero, the cross-covariance surface is Gaussian-smoothed with
// σ = min(shape)/8, and the displacement is the argmax position relative
// to zero lag.
func Estimate(previous, current [][]float32) (dRow, dCol int) {
	rows := len(current)
	cols := len(current[0])

	cleanPrev := replaceNaN(previous)
	cleanCurr := replaceNaN(current)

	cov := crossCovariance(cleanCurr, cleanPrev)

	sigma := float64(minInt(rows, cols)) / 8
	smoothed := gaussianBlur2D(cov, sigma)

	argRow, argCol := argmax2D(smoothed)
	return wrapToSigned(argRow, rows), wrapToSigned(argCol, cols)
}

func replaceNaN(field [][]float32) [][]float32 {
	out := make([][]float32, len(field))
	for r := range field {
		out[r] = make([]float32, len(field[r]))
		for c, v := range field[r] {
			if v != v { // NaN
				out[r][c] = 0
				continue
			}
			out[r][c] = v
		}
	}
	return out
}

// wrapToSigned maps a zero-based FFT-domain lag index (which wraps at
// n, since the DFT has period n) to a signed displacement centred at
// zero: indices past the midpoint represent a negative shift.
func wrapToSigned(idx, n int) int {
	if idx > n/2 {
		return idx - n
	}
	return idx
}

func argmax2D(field [][]float64) (row, col int) {
	best := math.Inf(-1)
	for r, rowVals := range field {
		for c, v := range rowVals {
			if v > best {
				best = v
				row, col = r, c
			}
		}
	}
	return row, col
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
