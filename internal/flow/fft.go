// Package flow estimates pixel displacement between two successive
// frames of a field via phase correlation: an FFT cross-covariance peak
// gives the most likely shift between a previous and current patch,
// either globally (one vector per field) or locally (one vector per
// object search box).
package flow

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2D computes the 2-D discrete Fourier transform of real-valued
// data by rows then columns, matching the spec's cross-covariance
// algorithm; gonum's fourier package only transforms 1-D sequences, so
// the 2-D transform is built up dimension by dimension.
func fft2D(data [][]float32) [][]complex128 {
	rows := len(data)
	cols := len(data[0])

	out := make([][]complex128, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]complex128, cols)
		for c := 0; c < cols; c++ {
			out[r][c] = complex(float64(data[r][c]), 0)
		}
	}

	rowFFT := fourier.NewCmplxFFT(cols)
	for r := 0; r < rows; r++ {
		out[r] = rowFFT.Coefficients(nil, out[r])
	}

	colFFT := fourier.NewCmplxFFT(rows)
	col := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = out[r][c]
		}
		col = colFFT.Coefficients(col, col)
		for r := 0; r < rows; r++ {
			out[r][c] = col[r]
		}
	}
	return out
}

// ifft2D is the inverse of fft2D: column-wise then row-wise inverse DFT,
// normalized by the total element count (gonum's Sequence is unnormalized).
func ifft2D(data [][]complex128) [][]complex128 {
	rows := len(data)
	cols := len(data[0])

	out := make([][]complex128, rows)
	for r := range out {
		out[r] = append([]complex128(nil), data[r]...)
	}

	colFFT := fourier.NewCmplxFFT(rows)
	col := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = out[r][c]
		}
		col = colFFT.Sequence(col, col)
		for r := 0; r < rows; r++ {
			out[r][c] = col[r]
		}
	}

	rowFFT := fourier.NewCmplxFFT(cols)
	n := float64(rows * cols)
	for r := 0; r < rows; r++ {
		out[r] = rowFFT.Sequence(out[r], out[r])
		for c := 0; c < cols; c++ {
			out[r][c] /= complex(n, 0)
		}
	}
	return out
}

// crossCovariance computes the phase-correlation cross-covariance
// surface between two equally-shaped real fields: normalize the
// cross-power spectrum by its magnitude (mapping zero magnitude to one,
// so a silent patch does not divide by zero) and inverse-transform back
// to the spatial domain.
func crossCovariance(current, previous [][]float32) [][]float64 {
	fCurrent := fft2D(current)
	fPrevious := fft2D(previous)

	rows := len(fCurrent)
	cols := len(fCurrent[0])

	cross := make([][]complex128, rows)
	for r := 0; r < rows; r++ {
		cross[r] = make([]complex128, cols)
		for c := 0; c < cols; c++ {
			f := fCurrent[r][c] * cmplxConj(fPrevious[r][c])
			mag := cmplxAbs(f)
			if mag == 0 {
				mag = 1
			}
			cross[r][c] = f / complex(mag, 0)
		}
	}

	spatial := ifft2D(cross)
	spatialReal := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		spatialReal[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			spatialReal[r][c] = real(spatial[r][c])
		}
	}
	return spatialReal
}

func cmplxConj(z complex128) complex128 { return complex(real(z), -imag(z)) }
func cmplxAbs(z complex128) float64     { return math.Hypot(real(z), imag(z)) }
