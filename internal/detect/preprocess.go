// Package detect turns a 3-D gridded field into a labeled 2-D object
// mask: flatten across altitude, classify pixels as convective by
// threshold or the Steiner et al. (1995) scheme, label connected
// components, and drop components below a minimum area.
package detect

import (
	"fmt"
	"math"

	"github.com/thuner-project/thuner/internal/options"
)

// Field3D is a (altitude, row, col) gridded field.
type Field3D [][][]float32

// Flatten reduces a Field3D to a single (row, col) layer per
// DetectOptions.FlattenMethod: vertical_max takes the maximum over the
// altitude range [Altitudes[0], Altitudes[1]); cross_section takes the
// single level nearest Altitudes[0].
func Flatten(field Field3D, altitudeCoords []float32, o options.DetectOptions) ([][]float32, error) {
	if len(field) == 0 || len(altitudeCoords) != len(field) {
		return nil, fmt.Errorf("detect.Flatten: field altitude extent does not match altitude coordinates")
	}

	switch o.FlattenMethod {
	case "vertical_max":
		lo, hi := o.Altitudes[0], o.Altitudes[1]
		indices := make([]int, 0, len(altitudeCoords))
		for i, z := range altitudeCoords {
			if z >= lo && z < hi {
				indices = append(indices, i)
			}
		}
		if len(indices) == 0 {
			return nil, fmt.Errorf("detect.Flatten: no altitude levels in [%f, %f)", lo, hi)
		}
		return verticalMax(field, indices), nil
	case "cross_section":
		idx := nearestAltitudeIndex(altitudeCoords, o.Altitudes[0])
		if idx < 0 {
			return nil, fmt.Errorf("detect.Flatten: no altitude levels available")
		}
		return field[idx], nil
	default:
		return nil, fmt.Errorf("detect.Flatten: unknown flatten method %q", o.FlattenMethod)
	}
}

func nearestAltitudeIndex(altitudeCoords []float32, target float32) int {
	best := -1
	bestDiff := float32(math.MaxFloat32)
	for i, z := range altitudeCoords {
		diff := float32(math.Abs(float64(z - target)))
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

func verticalMax(field Field3D, indices []int) [][]float32 {
	rows, cols := len(field[indices[0]]), len(field[indices[0]][0])
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float32, cols)
		for c := 0; c < cols; c++ {
			maxVal := float32(math.NaN())
			seen := false
			for _, idx := range indices {
				v := field[idx][r][c]
				if isNaN32(v) {
					continue
				}
				if !seen || v > maxVal {
					maxVal = v
					seen = true
				}
			}
			if seen {
				out[r][c] = maxVal
			} else {
				out[r][c] = float32(math.NaN())
			}
		}
	}
	return out
}

// Preprocess applies a 3x3 median filter to suppress speckle noise
// before classification. NaN neighbours are excluded from the median;
// a fully-NaN 3x3 window leaves the centre pixel as NaN.
func Preprocess(field [][]float32) [][]float32 {
	rows := len(field)
	if rows == 0 {
		return field
	}
	cols := len(field[0])
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float32, cols)
		for c := 0; c < cols; c++ {
			window := make([]float32, 0, 9)
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					rr, cc := r+dr, c+dc
					if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
						continue
					}
					v := field[rr][cc]
					if !isNaN32(v) {
						window = append(window, v)
					}
				}
			}
			out[r][c] = median(window)
		}
	}
	return out
}

func median(v []float32) float32 {
	if len(v) == 0 {
		return float32(math.NaN())
	}
	cp := append([]float32(nil), v...)
	insertionSort(cp)
	n := len(cp)
	if n%2 == 1 {
		return cp[n/2]
	}
	return (cp[n/2-1] + cp[n/2]) / 2
}

func insertionSort(v []float32) {
	for i := 1; i < len(v); i++ {
		key := v[i]
		j := i - 1
		for j >= 0 && v[j] > key {
			v[j+1] = v[j]
			j--
		}
		v[j+1] = key
	}
}

func isNaN32(v float32) bool { return v != v }
