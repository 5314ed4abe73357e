package attribute

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ghodss/yaml"
	"github.com/samber/lo"

	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// Table is the growable in-memory column store for one (object_type,
// attribute_type) per §4.7's "In-memory layout": a dict of column-name
// to growable list, flushed to csv every write_interval and re-
// initialised afterwards.
type Table struct {
	Object        string
	Member        string
	Type          AttributeType
	IndexColumns  []string
	columns       map[string][]any
	order         []string
	attrsByName   map[string]Attribute
	lastWriteTime time.Time
}

// NewTable builds an empty table for one attribute type. startTime
// seeds the flush clock so the first ShouldFlush check measures
// elapsed time from the run's start rather than the zero time.
func NewTable(object, member string, t AttributeType, indexColumns []string, startTime time.Time) *Table {
	attrsByName := map[string]Attribute{}
	order := append([]string{}, indexColumns...)
	seen := map[string]bool{}
	for _, c := range indexColumns {
		seen[c] = true
	}
	for _, g := range t.Groups {
		for _, a := range g.Attributes {
			attrsByName[a.Name] = a
			if !seen[a.Name] {
				order = append(order, a.Name)
				seen[a.Name] = true
			}
		}
	}
	return &Table{
		Object:        object,
		Member:        member,
		Type:          t,
		IndexColumns:  indexColumns,
		columns:       map[string][]any{},
		order:         order,
		attrsByName:   attrsByName,
		lastWriteTime: startTime,
	}
}

// Append adds one step's retrieved columns to the table, prefixing a
// "time" column stamped with stepTime. Row count is inferred from the
// longest column cols supplies (retrievals that expand rows, such as
// profile's altitude x time_offset cross product, size every column to
// match).
func (tbl *Table) Append(stepTime time.Time, cols map[string][]any) {
	n := 0
	for _, v := range cols {
		if len(v) > n {
			n = len(v)
		}
	}
	if n == 0 {
		return
	}
	timeCol := make([]any, n)
	for i := range timeCol {
		timeCol[i] = stepTime
	}
	tbl.appendColumn("time", timeCol)
	for name, v := range cols {
		tbl.appendColumn(name, v)
		tbl.ensureOrder(name)
	}
}

func (tbl *Table) appendColumn(name string, v []any) {
	tbl.columns[name] = append(tbl.columns[name], v...)
}

func (tbl *Table) ensureOrder(name string) {
	for _, o := range tbl.order {
		if o == name {
			return
		}
	}
	tbl.order = append(tbl.order, name)
}

// RowCount returns the number of buffered rows.
func (tbl *Table) RowCount() int {
	return len(tbl.columns["time"])
}

// ShouldFlush reports whether write_interval hours have elapsed since
// the last flush (or table construction).
func (tbl *Table) ShouldFlush(currentTime time.Time, writeIntervalHours float64) bool {
	return currentTime.Sub(tbl.lastWriteTime).Hours() >= writeIntervalHours
}

func (tbl *Table) dir() string {
	parts := []string{"attributes", tbl.Object}
	if tbl.Member != "" {
		parts = append(parts, tbl.Member)
	}
	return filepath.Join(parts...)
}

// Flush writes the buffered rows to
// <root>/attributes/<object>/[<member>/]<type>/<stamp>.csv, writes the
// <type>.yml metadata sidecar if it does not already exist, and
// re-initialises the in-memory lists. Returns the empty string without
// writing anything when there are no buffered rows.
func (tbl *Table) Flush(fsys fsutil.FileSystem, root string, flushTime time.Time) (string, error) {
	if tbl.RowCount() == 0 {
		tbl.lastWriteTime = flushTime
		return "", nil
	}

	typeDir := filepath.Join(root, tbl.dir(), tbl.Type.Name)
	if err := fsys.MkdirAll(typeDir, 0o755); err != nil {
		return "", trackerr.New(trackerr.KindIO, "attribute.Table.Flush", err)
	}

	stamp := flushTime.UTC().Format("20060102_150405")
	csvPath := filepath.Join(typeDir, stamp+".csv")
	data := tbl.renderCSV()

	if err := writeFileRetryOnce(fsys, csvPath, data); err != nil {
		return "", trackerr.New(trackerr.KindIO, "attribute.Table.Flush", err)
	}

	ymlPath := filepath.Join(root, tbl.dir(), tbl.Type.Name+".yml")
	if !fsys.Exists(ymlPath) {
		meta, err := yaml.Marshal(tbl.metadata())
		if err == nil {
			_ = fsys.WriteFile(ymlPath, meta, 0o644)
		}
	}

	tbl.reset()
	tbl.lastWriteTime = flushTime
	return csvPath, nil
}

// writeFileRetryOnce retries a single write once before surfacing the
// error as fatal, per the I/O error policy in §7.
func writeFileRetryOnce(fsys fsutil.FileSystem, path string, data []byte) error {
	err := fsys.WriteFile(path, data, 0o644)
	if err == nil {
		return nil
	}
	return fsys.WriteFile(path, data, 0o644)
}

func (tbl *Table) reset() {
	tbl.columns = map[string][]any{}
}

type columnMeta struct {
	DataType    string `json:"data_type"`
	Precision   int    `json:"precision,omitempty"`
	Units       string `json:"units,omitempty"`
	Description string `json:"description,omitempty"`
}

func (tbl *Table) metadata() map[string]columnMeta {
	meta := map[string]columnMeta{}
	for _, name := range tbl.order {
		a, ok := tbl.attrsByName[name]
		if !ok {
			continue
		}
		meta[name] = columnMeta{DataType: a.DataType, Precision: a.Precision, Units: a.Units, Description: a.Description}
	}
	return meta
}

func (tbl *Table) renderCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(tbl.order)

	n := tbl.RowCount()
	for i := 0; i < n; i++ {
		row := make([]string, len(tbl.order))
		for j, name := range tbl.order {
			col := tbl.columns[name]
			var v any
			if i < len(col) {
				v = col[i]
			}
			row[j] = formatValue(v, tbl.attrsByName[name])
		}
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}

func formatValue(v any, a Attribute) string {
	if v == nil {
		return "NA"
	}
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format("2006-01-02T15:04:05")
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return formatFloat(float64(val), a.Precision)
	case float64:
		return formatFloat(val, a.Precision)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatFloat(v float64, precision int) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// Aggregate concatenates every time-sharded csv of one attribute type,
// drops duplicate index rows (defending against an overlapping flush
// boundary), sorts by the declared index columns, and writes the result
// to outPath. Running Aggregate again on its own output is a no-op: the
// single shard it sees has no duplicates and is already sorted.
func Aggregate(fsys fsutil.FileSystem, shardPaths []string, outPath string, indexColumns []string) error {
	type row struct {
		key    string
		values []string
	}

	var header []string
	var rows []row

	for _, path := range shardPaths {
		data, err := fsys.ReadFile(path)
		if err != nil {
			return trackerr.New(trackerr.KindIO, "attribute.Aggregate", err)
		}
		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil || len(records) == 0 {
			continue
		}
		if header == nil {
			header = records[0]
		}
		for _, rec := range records[1:] {
			rows = append(rows, row{key: indexKey(header, rec, indexColumns), values: rec})
		}
	}

	// A later shard's row for the same index wins an overlapping-flush
	// collision: lo.GroupBy preserves input order, so taking the last
	// element of each group keeps the most recently written value.
	byKey := lo.GroupBy(rows, func(r row) string { return r.key })
	deduped := lo.MapValues(byKey, func(rs []row, _ string) row { return rs[len(rs)-1] })

	sorted := make([]row, 0, len(deduped))
	for _, r := range deduped {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return compareIndexValues(header, sorted[i].values, sorted[j].values, indexColumns) < 0
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range sorted {
		_ = w.Write(r.values)
	}
	w.Flush()

	if err := fsys.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return trackerr.New(trackerr.KindIO, "attribute.Aggregate", err)
	}
	if err := fsys.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return trackerr.New(trackerr.KindIO, "attribute.Aggregate", err)
	}
	return nil
}

// compareIndexValues orders two rows by indexColumns in turn, comparing
// numerically when both fields parse as numbers (ids, altitudes,
// time_offsets) and lexically otherwise (the ISO-8601 time column sorts
// correctly either way).
func compareIndexValues(header, a, b []string, indexColumns []string) int {
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}
	for _, col := range indexColumns {
		i, ok := idx[col]
		if !ok || i >= len(a) || i >= len(b) {
			continue
		}
		av, aErr := strconv.ParseFloat(a[i], 64)
		bv, bErr := strconv.ParseFloat(b[i], 64)
		if aErr == nil && bErr == nil {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				continue
			}
		}
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func indexKey(header, record []string, indexColumns []string) string {
	idx := map[string]int{}
	for i, h := range header {
		idx[h] = i
	}
	var key string
	for _, col := range indexColumns {
		if i, ok := idx[col]; ok && i < len(record) {
			key += record[i] + "\x1f"
		}
	}
	return key
}
