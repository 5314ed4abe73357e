// Package analysis implements the post-run pass over a completed run's
// attribute csvs: temporal smoothing of kinematic columns, quality-based
// filtering of short-lived or poorly-contained objects, and bearing-based
// quadrant classification of system propagation. It never touches masks
// or the track loop; it only reads and rewrites the csvs
// internal/attribute.Table and internal/stitch.StitchAttribute already
// produced, grounded on original_source/thor/analyze/mcs.py and
// original_source/thor/analyze/utils.py's read_attribute_csv/
// temporal_smooth.
package analysis

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"

	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// Frame is a parsed attribute csv, the same plain-text shape
// internal/attribute.Table writes and internal/stitch.Frame reads.
// Analysis keeps its own copy rather than importing internal/stitch,
// since the two packages operate on the run at different times (join
// vs. post-run) and have no other reason to depend on each other.
type Frame struct {
	Header []string
	Rows   [][]string
}

// ReadFrame loads and parses one attribute csv.
func ReadFrame(fsys fsutil.FileSystem, path string) (Frame, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Frame{}, trackerr.New(trackerr.KindIO, "analysis.ReadFrame", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return Frame{}, trackerr.New(trackerr.KindIO, "analysis.ReadFrame", err)
	}
	if len(records) == 0 {
		return Frame{}, nil
	}
	return Frame{Header: records[0], Rows: records[1:]}, nil
}

// Write renders the frame back to csv.
func (f Frame) Write(fsys fsutil.FileSystem, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if f.Header != nil {
		_ = w.Write(f.Header)
	}
	for _, row := range f.Rows {
		_ = w.Write(row)
	}
	w.Flush()
	if err := fsys.MkdirAll(dirOf(path), 0o755); err != nil {
		return trackerr.New(trackerr.KindIO, "analysis.Frame.Write", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return trackerr.New(trackerr.KindIO, "analysis.Frame.Write", err)
	}
	return nil
}

func dirOf(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	return path[:i]
}

// ColIndex returns the column position of name, or -1 if absent.
func (f Frame) ColIndex(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Float64Column parses column name as float64, row by row. Missing
// ("NA") or unparsable cells are not mapped to NaN: the first such cell
// makes Float64Column return an error.
func (f Frame) Float64Column(name string) ([]float64, error) {
	idx := f.ColIndex(name)
	if idx < 0 {
		return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.Float64Column",
			errColumnMissing(name))
	}
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.Float64Column", err)
		}
		out[i] = v
	}
	return out, nil
}

// Int64Column parses column name as int64.
func (f Frame) Int64Column(name string) ([]int64, error) {
	idx := f.ColIndex(name)
	if idx < 0 {
		return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.Int64Column",
			errColumnMissing(name))
	}
	out := make([]int64, len(f.Rows))
	for i, row := range f.Rows {
		v, err := strconv.ParseInt(row[idx], 10, 64)
		if err != nil {
			return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.Int64Column", err)
		}
		out[i] = v
	}
	return out, nil
}

// BoolColumn parses column name as bool.
func (f Frame) BoolColumn(name string) ([]bool, error) {
	idx := f.ColIndex(name)
	if idx < 0 {
		return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.BoolColumn",
			errColumnMissing(name))
	}
	out := make([]bool, len(f.Rows))
	for i, row := range f.Rows {
		v, err := strconv.ParseBool(row[idx])
		if err != nil {
			return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.BoolColumn", err)
		}
		out[i] = v
	}
	return out, nil
}

// TimeColumn parses the "time" column in the layout
// internal/attribute.Table writes it in (ISO-8601, no trailing zone).
func (f Frame) TimeColumn() ([]time.Time, error) {
	idx := f.ColIndex("time")
	if idx < 0 {
		return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.TimeColumn",
			errColumnMissing("time"))
	}
	out := make([]time.Time, len(f.Rows))
	for i, row := range f.Rows {
		t, err := time.Parse("2006-01-02T15:04:05", row[idx])
		if err != nil {
			return nil, trackerr.New(trackerr.KindNumericalEdge, "analysis.Frame.TimeColumn", err)
		}
		out[i] = t
	}
	return out, nil
}

// groupByID returns the row indices for each distinct universal_id,
// each group's indices sorted by time ascending.
func (f Frame) groupByID(idColumn string) (map[int64][]int, []int64, error) {
	ids, err := f.Int64Column(idColumn)
	if err != nil {
		return nil, nil, err
	}
	times, err := f.TimeColumn()
	if err != nil {
		return nil, nil, err
	}
	groups := map[int64][]int{}
	for i := range f.Rows {
		groups[ids[i]] = append(groups[ids[i]], i)
	}
	order := make([]int64, 0, len(groups))
	for id, idxs := range groups {
		sort.Slice(idxs, func(a, b int) bool { return times[idxs[a]].Before(times[idxs[b]]) })
		groups[id] = idxs
		order = append(order, id)
	}
	sort.Slice(order, func(a, b int) bool { return order[a] < order[b] })
	return groups, order, nil
}

func errColumnMissing(name string) error {
	return &missingColumnError{name: name}
}

type missingColumnError struct{ name string }

func (e *missingColumnError) Error() string { return "missing column: " + e.name }
