// Package options holds strongly-typed, validated, YAML-serialisable
// configuration structs, replacing the source implementation's
// dict[str, Any] options and its implicit
// user-config/outputs-directory singleton.
package options

import (
	"path/filepath"
	"strconv"

	"github.com/thuner-project/thuner/internal/fsutil"
)

// Paths carries every on-disk location the core touches for one run,
// replacing the global mutable configuration directory the source
// implementation assumes. Tests construct a Paths rooted at t.TempDir().
type Paths struct {
	// Root is the run's output parent directory (<out>/).
	Root string

	// FS is the filesystem the core writes through. Defaults to
	// fsutil.OSFileSystem{}; tests may inject fsutil.NewMemoryFileSystem().
	FS fsutil.FileSystem
}

// NewPaths returns Paths rooted at root, writing through the real
// filesystem.
func NewPaths(root string) Paths {
	return Paths{Root: root, FS: fsutil.OSFileSystem{}}
}

func (p Paths) fs() fsutil.FileSystem {
	if p.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return p.FS
}

// OptionsDir is <out>/options.
func (p Paths) OptionsDir() string { return filepath.Join(p.Root, "options") }

// MasksDir is <out>/masks.
func (p Paths) MasksDir() string { return filepath.Join(p.Root, "masks") }

// AttributesDir is <out>/attributes.
func (p Paths) AttributesDir() string { return filepath.Join(p.Root, "attributes") }

// RecordsDir is <out>/records.
func (p Paths) RecordsDir() string { return filepath.Join(p.Root, "records") }

// AnalysisDir is <out>/analysis, where the post-run analysis pass
// writes its smoothed velocities, quality, and classification csvs.
func (p Paths) AnalysisDir() string { return filepath.Join(p.Root, "analysis") }

// FilepathsDir is <out>/records/filepaths.
func (p Paths) FilepathsDir() string { return filepath.Join(p.RecordsDir(), "filepaths") }

// RegridderWeightsDir is <out>/records/regridder_weights, a read-only
// (from the core's perspective) cache shared across intervals.
func (p Paths) RegridderWeightsDir() string {
	return filepath.Join(p.RecordsDir(), "regridder_weights")
}

// IntervalDir is <out>/interval_<i>.
func (p Paths) IntervalDir(i int) string {
	return filepath.Join(p.Root, intervalDirName(i))
}

func intervalDirName(i int) string {
	return "interval_" + strconv.Itoa(i)
}

// EnsureDirs creates every directory a run needs before the first write.
func (p Paths) EnsureDirs() error {
	dirs := []string{
		p.OptionsDir(), p.MasksDir(), p.AttributesDir(),
		p.FilepathsDir(), p.RegridderWeightsDir(),
	}
	for _, d := range dirs {
		if err := p.fs().MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
