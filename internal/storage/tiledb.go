package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tiledb "github.com/TileDB-Inc/TileDB-Go"

	"github.com/thuner-project/thuner/internal/stitch"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// MaskStore is the chunked labeled-array backend for object masks: one
// dense TileDB array per (object, member) under <root>/masks, dims
// (time, row, col), a uint32 "label" attribute with a ZSTD filter,
// background 0. It satisfies track.MaskWriter (by method signature,
// no import needed) and internal/stitch's MaskSource/MaskSink.
//
// Grounded on sixy6e-go-gsf/tiledb.go and schema.go's dense-array
// build-up (NewDomain/NewDimension/NewArraySchema/SetCellOrder,
// AddFilters/ZstdFilter) and attitude.go's write path
// (NewQuery/SetLayout/array.NewSubarray/SetDataBuffer/Submit).
type MaskStore struct {
	ctx  *tiledb.Context
	root string

	mu       sync.Mutex
	shape    map[string][2]int // key -> (rows, cols), fixed at first write
	maxSteps map[string]int    // key -> time dimension extent
	created  map[string]bool
	next     map[string]int // key -> next time index to write
}

const maskZstdLevel = int32(9)

// NewMaskStore opens a mask store rooted at root. maxSteps bounds the
// time dimension of every array this store creates (TileDB dense
// arrays have a fixed domain), so callers size it from the interval's
// known step count before tracking starts.
func NewMaskStore(root string) (*MaskStore, error) {
	ctx, err := tiledb.NewContext(nil)
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.NewMaskStore", err)
	}
	return &MaskStore{
		ctx:      ctx,
		root:     root,
		shape:    map[string][2]int{},
		maxSteps: map[string]int{},
		created:  map[string]bool{},
		next:     map[string]int{},
	}, nil
}

func maskKey(object, member string) string {
	if member == "" {
		return object
	}
	return object + "/" + member
}

func (s *MaskStore) arrayURI(object, member string) string {
	return filepath.Join(s.root, "masks", maskKey(object, member)+".tiledb")
}

// Reserve fixes the (rows, cols, maxSteps) shape an array will be
// created with on its first write. Calling it before the first
// WriteMaskChunk lets a caller size the time dimension to the
// interval's actual step count instead of an arbitrary guess; if
// omitted, the first WriteMaskChunk call reserves a single-step array
// and every later write beyond it fails.
func (s *MaskStore) Reserve(object, member string, rows, cols, maxSteps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := maskKey(object, member)
	s.shape[key] = [2]int{rows, cols}
	s.maxSteps[key] = maxSteps
}

// WriteMaskChunk implements track.MaskWriter.
func (s *MaskStore) WriteMaskChunk(object, member string, stepTime time.Time, labels [][]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := maskKey(object, member)
	rows, cols := len(labels), 0
	if rows > 0 {
		cols = len(labels[0])
	}
	if _, ok := s.shape[key]; !ok {
		s.shape[key] = [2]int{rows, cols}
		if s.maxSteps[key] == 0 {
			s.maxSteps[key] = 1
		}
	}

	uri := s.arrayURI(object, member)
	if !s.created[key] {
		shape := s.shape[key]
		if err := createMaskSchema(s.ctx, uri, shape[0], shape[1], s.maxSteps[key]); err != nil {
			return err
		}
		s.created[key] = true
	}

	idx := s.next[key]
	if idx >= s.maxSteps[key] {
		return trackerr.New(trackerr.KindIO, "storage.MaskStore.WriteMaskChunk",
			fmt.Errorf("%s: step %d exceeds reserved capacity %d", key, idx, s.maxSteps[key]))
	}
	if err := writeMaskStep(s.ctx, uri, idx, stepTime, labels); err != nil {
		return err
	}
	s.next[key] = idx + 1
	return nil
}

// ReadMaskFrames implements stitch.MaskSource, reading back every step
// an interval's WriteMaskChunk calls wrote under intervalDir.
func (s *MaskStore) ReadMaskFrames(intervalDir, object, member string) ([]stitch.MaskFrame, error) {
	uri := filepath.Join(intervalDir, "masks", maskKey(object, member)+".tiledb")
	return readMaskArray(s.ctx, uri)
}

// WriteMaskFrames implements stitch.MaskSink, persisting the final
// run-wide stitched frames for one object or member under root.
func (s *MaskStore) WriteMaskFrames(root, object, member string, frames []stitch.MaskFrame) error {
	if len(frames) == 0 {
		return nil
	}
	rows, cols := len(frames[0].Labels), 0
	if rows > 0 {
		cols = len(frames[0].Labels[0])
	}
	uri := filepath.Join(root, "masks", maskKey(object, member)+".tiledb")
	if err := createMaskSchema(s.ctx, uri, rows, cols, len(frames)); err != nil {
		return err
	}
	for i, f := range frames {
		if err := writeMaskStep(s.ctx, uri, i, f.Time, f.Labels); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the TileDB context.
func (s *MaskStore) Close() error {
	s.ctx.Free()
	return nil
}

func createMaskSchema(ctx *tiledb.Context, uri string, rows, cols, maxSteps int) error {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	defer domain.Free()

	timeDim, err := tiledb.NewDimension(ctx, "time", tiledb.TILEDB_UINT64,
		[]uint64{0, uint64(maxSteps - 1)}, uint64(maxSteps))
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	rowDim, err := tiledb.NewDimension(ctx, "row", tiledb.TILEDB_UINT64,
		[]uint64{0, uint64(rows - 1)}, uint64(rows))
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	colDim, err := tiledb.NewDimension(ctx, "col", tiledb.TILEDB_UINT64,
		[]uint64{0, uint64(cols - 1)}, uint64(cols))
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := domain.AddDimensions(timeDim, rowDim, colDim); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := schema.SetDomain(domain); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}

	filters, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	defer filters.Free()
	zstd, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	defer zstd.Free()
	if err := zstd.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, maskZstdLevel); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := filters.AddFilter(zstd); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}

	attr, err := tiledb.NewAttribute(ctx, "label", tiledb.TILEDB_UINT32)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := attr.SetFilterList(filters); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := schema.AddAttributes(attr); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	defer array.Free()
	if err := array.Create(schema); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}

	shape, err := json.Marshal(maskShape{Rows: rows, Cols: cols, Steps: maxSteps})
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	if err := array.Open(tiledb.TILEDB_WRITE); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	defer array.Close()
	if err := array.PutMetadata("shape", shape); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.createMaskSchema", err)
	}
	return nil
}

// maskShape is stamped into every mask array's metadata at creation so
// readMaskArray can size its read buffer without depending on TileDB's
// non-empty-domain introspection, grounded on the WriteArrayMetadata
// helper pattern in sixy6e-go-gsf/tiledb.go.
type maskShape struct {
	Rows  int
	Cols  int
	Steps int
}

func writeMaskStep(ctx *tiledb.Context, uri string, idx int, stepTime time.Time, labels [][]int) error {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	defer array.Free()
	if err := array.Open(tiledb.TILEDB_WRITE); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	defer array.Close()

	rows := len(labels)
	cols := 0
	if rows > 0 {
		cols = len(labels[0])
	}
	flat := make([]uint32, 0, rows*cols)
	for _, row := range labels {
		for _, v := range row {
			flat = append(flat, uint32(v))
		}
	}

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	defer query.Free()
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	if _, err := query.SetDataBuffer("label", flat); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	defer subarr.Free()
	if err := subarr.AddRangeByName("time", tiledb.MakeRange(uint64(idx), uint64(idx))); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	if rows > 0 {
		if err := subarr.AddRangeByName("row", tiledb.MakeRange(uint64(0), uint64(rows-1))); err != nil {
			return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
		}
	}
	if cols > 0 {
		if err := subarr.AddRangeByName("col", tiledb.MakeRange(uint64(0), uint64(cols-1))); err != nil {
			return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
		}
	}
	if err := query.SetSubarray(subarr); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	if err := query.Submit(); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	if err := query.Finalize(); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}

	stamp, err := json.Marshal(stepTime.UTC().Format(time.RFC3339))
	if err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	if err := array.PutMetadata(fmt.Sprintf("time_%d", idx), stamp); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.writeMaskStep", err)
	}
	return nil
}

func readMaskArray(ctx *tiledb.Context, uri string) ([]stitch.MaskFrame, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	defer array.Free()
	if err := array.Open(tiledb.TILEDB_READ); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	defer array.Close()

	_, rawShape, err := array.GetMetadata("shape")
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	shapeBytes, ok := rawShape.([]byte)
	if !ok {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray",
			fmt.Errorf("%s: missing shape metadata", uri))
	}
	var shape maskShape
	if err := json.Unmarshal(shapeBytes, &shape); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	steps, rows, cols := shape.Steps, shape.Rows, shape.Cols
	if steps == 0 {
		return nil, nil
	}
	timeRange := [2]uint64{0, uint64(steps - 1)}
	rowRange := [2]uint64{0, uint64(rows - 1)}
	colRange := [2]uint64{0, uint64(cols - 1)}

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	defer query.Free()
	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}

	flat := make([]uint32, steps*rows*cols)
	if _, err := query.SetDataBuffer("label", flat); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	defer subarr.Free()
	if err := subarr.AddRangeByName("time", tiledb.MakeRange(timeRange[0], timeRange[1])); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	if err := subarr.AddRangeByName("row", tiledb.MakeRange(rowRange[0], rowRange[1])); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	if err := subarr.AddRangeByName("col", tiledb.MakeRange(colRange[0], colRange[1])); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	if err := query.SetSubarray(subarr); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}
	if err := query.Submit(); err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.readMaskArray", err)
	}

	frames := make([]stitch.MaskFrame, steps)
	for t := 0; t < steps; t++ {
		labels := make([][]int, rows)
		for r := 0; r < rows; r++ {
			row := make([]int, cols)
			for c := 0; c < cols; c++ {
				row[c] = int(flat[(t*rows+r)*cols+c])
			}
			labels[r] = row
		}
		var stamp string
		if _, raw, err := array.GetMetadata(fmt.Sprintf("time_%d", t+int(timeRange[0]))); err == nil {
			if b, ok := raw.([]byte); ok {
				_ = json.Unmarshal(b, &stamp)
			}
		}
		ts, _ := time.Parse(time.RFC3339, stamp)
		frames[t] = stitch.MaskFrame{Time: ts, Labels: labels}
	}
	return frames, nil
}
