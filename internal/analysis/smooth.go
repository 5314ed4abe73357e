package analysis

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// formatFloat mirrors internal/attribute.Table's csv float rendering
// (NA for NaN, fixed precision) without that package's per-attribute
// precision metadata, since analysis output columns are all derived
// velocities with no Attribute descriptor of their own.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Smooth applies a centred rolling mean of the given window (in steps,
// not duration) to each named column, independently per universal_id,
// per original_source/thor/analyze/utils.py's temporal_smooth: "group
// over all indexes except time ... rolling(window, min_periods=1,
// center=True).mean()". Columns not named are copied through unchanged.
// Rows are returned re-ordered: grouped by universal_id, time ascending
// within each group.
func Smooth(f Frame, idColumn string, columns []string, window int) (Frame, error) {
	if window < 1 {
		window = 1
	}
	groups, order, err := f.groupByID(idColumn)
	if err != nil {
		return Frame{}, err
	}
	raw := make(map[string][]float64, len(columns))
	for _, c := range columns {
		col, err := f.Float64Column(c)
		if err != nil {
			return Frame{}, err
		}
		raw[c] = col
	}

	out := Frame{Header: f.Header}
	colIdx := make(map[string]int, len(columns))
	for _, c := range columns {
		colIdx[c] = f.ColIndex(c)
	}
	for _, id := range order {
		idxs := groups[id]
		smoothed := make(map[string][]float64, len(columns))
		for _, c := range columns {
			smoothed[c] = rollingMean(raw[c], idxs, window)
		}
		for pos, rowIdx := range idxs {
			row := append([]string{}, f.Rows[rowIdx]...)
			for _, c := range columns {
				row[colIdx[c]] = formatFloat(smoothed[c][pos])
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// rollingMean computes, for each position in idxs (already time-ordered
// within the group), the mean of values over a centred window of size
// window clipped to the group's bounds (pandas' min_periods=1 behaviour:
// a short window at either edge still produces a value).
func rollingMean(values []float64, idxs []int, window int) []float64 {
	n := len(idxs)
	out := make([]float64, n)
	half := window / 2
	for i := 0; i < n; i++ {
		lo := i - half
		hi := i + (window - half) - 1
		if lo < 0 {
			lo = 0
		}
		if hi >= n {
			hi = n - 1
		}
		slice := make([]float64, 0, hi-lo+1)
		for j := lo; j <= hi; j++ {
			slice = append(slice, values[idxs[j]])
		}
		out[i] = stat.Mean(slice, nil)
	}
	return out
}
