package stitch

import (
	"bytes"
	"encoding/csv"

	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// Frame is a parsed attribute csv: a header row plus string-valued data
// rows, mirroring the plain-text contract internal/attribute.Table
// writes. Stitching works directly on this textual form rather than
// decoding into typed columns, since every value it touches (ids, the
// parents list, time) round-trips through strings anyway.
type Frame struct {
	Header []string
	Rows   [][]string
}

// ReadFrame loads and parses one attribute csv.
func ReadFrame(fsys fsutil.FileSystem, path string) (Frame, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Frame{}, trackerr.New(trackerr.KindIO, "stitch.ReadFrame", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return Frame{}, trackerr.New(trackerr.KindIO, "stitch.ReadFrame", err)
	}
	if len(records) == 0 {
		return Frame{}, nil
	}
	return Frame{Header: records[0], Rows: records[1:]}, nil
}

// Write renders the frame back to csv and writes it to path.
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
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return trackerr.New(trackerr.KindIO, "stitch.Frame.Write", err)
	}
	return nil
}

func (f Frame) colIndex(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}
