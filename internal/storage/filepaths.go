// Package storage provides the on-disk backends behind the tracking
// core's narrow persistence interfaces (track.MaskWriter,
// stitch.MaskSource, stitch.MaskSink): a TileDB-Go chunked mask array
// per object/member, a (time,filepath) csv ledger per dataset, and a
// crash-resumability sqlite registry. None of these types are imported
// by the tracking core directly; the core only sees the narrow
// interfaces it already declares.
package storage

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"time"

	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/options"
	"github.com/thuner-project/thuner/internal/security"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// FilepathLedger appends (time, filepath) rows to
// <out>/records/filepaths/<dataset>.csv per §6's file contract, one
// ledger per input dataset an adapter reads from. Rows are appended in
// call order; the ledger is the authoritative record of which input
// file backed which step, independent of the sqlite run registry's
// resumability bookkeeping.
type FilepathLedger struct {
	fsys    fsutil.FileSystem
	paths   options.Paths
	dataset string
}

// NewFilepathLedger returns a ledger writer for one dataset name.
func NewFilepathLedger(fsys fsutil.FileSystem, paths options.Paths, dataset string) *FilepathLedger {
	return &FilepathLedger{fsys: fsys, paths: paths, dataset: dataset}
}

func (l *FilepathLedger) path() string {
	return filepath.Join(l.paths.FilepathsDir(), l.dataset+".csv")
}

// Append records one (time, filepath) row, creating the ledger csv and
// its header on first use. dataset names come from adapter
// configuration rather than a fixed set, so the ledger's own csv path
// is checked against Paths.Root before any write: a dataset name like
// "../../etc" must not walk the ledger out of the run's output tree.
func (l *FilepathLedger) Append(t time.Time, path string) error {
	if err := security.ValidatePathWithinDirectory(l.path(), l.paths.Root); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Append", err)
	}

	existing := []byte(nil)
	if l.fsys.Exists(l.path()) {
		data, err := l.fsys.ReadFile(l.path())
		if err != nil {
			return trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Append", err)
		}
		existing = data
	}

	var buf bytes.Buffer
	buf.Write(existing)
	w := csv.NewWriter(&buf)
	if existing == nil {
		if err := w.Write([]string{"time", "filepath"}); err != nil {
			return trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Append", err)
		}
	}
	if err := w.Write([]string{t.UTC().Format("2006-01-02T15:04:05"), path}); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Append", err)
	}
	w.Flush()

	if err := l.fsys.MkdirAll(l.paths.FilepathsDir(), 0o755); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Append", err)
	}
	if err := l.fsys.WriteFile(l.path(), buf.Bytes(), 0o644); err != nil {
		return trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Append", err)
	}
	return nil
}

// Rows reads back every (time, filepath) row recorded so far, in
// append order.
func (l *FilepathLedger) Rows() ([][2]string, error) {
	if !l.fsys.Exists(l.path()) {
		return nil, nil
	}
	data, err := l.fsys.ReadFile(l.path())
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Rows", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, trackerr.New(trackerr.KindIO, "storage.FilepathLedger.Rows", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	out := make([][2]string, 0, len(records)-1)
	for _, row := range records[1:] {
		out = append(out, [2]string{row[0], row[1]})
	}
	return out, nil
}

// RegridderWeightsDir exposes the read-only shared weight cache
// directory per §5's shared-resource policy: the core only hands
// adapters the path, never writes into it itself.
func RegridderWeightsDir(paths options.Paths) string {
	return paths.RegridderWeightsDir()
}
