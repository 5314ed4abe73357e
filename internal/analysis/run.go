package analysis

import (
	"path/filepath"
	"sort"
	"strconv"

	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/options"
)

// Run executes the post-run analysis pass for one tracked object,
// mirroring original_source/thor/analyze/mcs.py's three-stage
// process_velocities / quality_control / classify_all pipeline,
// generalised from MCS-specific member objects to any tracked object's
// own core/quality attribute csvs. It is a best-effort diagnostic pass:
// a tracked object with no quality.csv (quality attributes were never
// configured) still gets smoothed velocities and a classification, just
// no containment-based filtering.
func Run(fsys fsutil.FileSystem, paths options.Paths, opts options.AnalysisOptions, object string) error {
	attrDir := filepath.Join(paths.AttributesDir(), object)
	core, err := ReadFrame(fsys, filepath.Join(attrDir, "core.csv"))
	if err != nil {
		return err
	}

	velocities, err := Smooth(core, "universal_id", []string{"u_displacement", "v_displacement"}, opts.SmoothingWindow)
	if err != nil {
		return err
	}

	qualityPath := filepath.Join(attrDir, "quality.csv")
	if fsys.Exists(qualityPath) {
		quality, err := ReadFrame(fsys, qualityPath)
		if err != nil {
			return err
		}
		fractions, err := ContainedFraction(quality, "universal_id")
		if err != nil {
			return err
		}
		velocities, err = FilterByContainment(velocities, "universal_id", fractions, opts.MinContainedFraction)
		if err != nil {
			return err
		}
		if err := writeContainmentSummary(fsys, paths, object, fractions, opts.MinContainedFraction); err != nil {
			return err
		}
	}

	outDir := filepath.Join(paths.AnalysisDir(), object)
	if err := velocities.Write(fsys, filepath.Join(outDir, "velocities.csv")); err != nil {
		return err
	}

	classified, err := ClassifyPropagation(velocities)
	if err != nil {
		return err
	}
	return classified.Write(fsys, filepath.Join(outDir, "classification.csv"))
}

func writeContainmentSummary(fsys fsutil.FileSystem, paths options.Paths, object string, fractions map[int64]float64, minFraction float32) error {
	out := Frame{Header: []string{"universal_id", "contained_fraction", "passes"}}
	ids := make([]int64, 0, len(fractions))
	for id := range fractions {
		ids = append(ids, id)
	}
	sortInt64s(ids)
	for _, id := range ids {
		frac := fractions[id]
		passes := "false"
		if frac >= float64(minFraction) {
			passes = "true"
		}
		out.Rows = append(out.Rows, []string{
			formatInt64(id), formatFloat(frac), passes,
		})
	}
	outDir := filepath.Join(paths.AnalysisDir(), object)
	return out.Write(fsys, filepath.Join(outDir, "quality.csv"))
}

func sortInt64s(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
