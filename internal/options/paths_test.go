package options

import (
	"path/filepath"
	"testing"

	"github.com/thuner-project/thuner/internal/fsutil"
)

func TestPathsLayout(t *testing.T) {
	p := NewPaths("/out")

	cases := []struct {
		got  string
		want string
	}{
		{p.OptionsDir(), filepath.Join("/out", "options")},
		{p.MasksDir(), filepath.Join("/out", "masks")},
		{p.AttributesDir(), filepath.Join("/out", "attributes")},
		{p.RecordsDir(), filepath.Join("/out", "records")},
		{p.FilepathsDir(), filepath.Join("/out", "records", "filepaths")},
		{p.RegridderWeightsDir(), filepath.Join("/out", "records", "regridder_weights")},
		{p.IntervalDir(3), filepath.Join("/out", "interval_3")},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestPathsEnsureDirs(t *testing.T) {
	mem := fsutil.NewMemoryFileSystem()
	p := Paths{Root: "/out", FS: mem}

	if err := p.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
	for _, dir := range []string{p.OptionsDir(), p.MasksDir(), p.AttributesDir(), p.FilepathsDir(), p.RegridderWeightsDir()} {
		if !mem.Exists(dir) {
			t.Errorf("expected %q to exist after EnsureDirs", dir)
		}
	}
}

func TestPathsDefaultsToOSFileSystem(t *testing.T) {
	p := Paths{Root: "/out"}
	if _, ok := p.fs().(fsutil.OSFileSystem); !ok {
		t.Errorf("expected nil FS to default to OSFileSystem, got %T", p.fs())
	}
}
