package stitch

import (
	"path/filepath"

	"github.com/thuner-project/thuner/internal/fsutil"
)

// ObjectSpec describes one tracked object's attribute-csv layout for
// stitching: the attribute type names it writes for itself, and for a
// grouped object, the same per member.
type ObjectSpec struct {
	Name    string
	Types   []string
	Members map[string][]string // member name -> its attribute type names
}

// MaskSource supplies one object's (or member's) raw mask frames for a
// single interval, as written by that interval's tracking run. Kept
// narrow so stitch never imports internal/storage; storage.MaskStore
// satisfies it.
type MaskSource interface {
	ReadMaskFrames(intervalDir, object, member string) ([]MaskFrame, error)
}

// MaskSink persists the final, run-wide stitched mask frames for one
// object or member.
type MaskSink interface {
	WriteMaskFrames(root, object, member string, frames []MaskFrame) error
}

// Run joins every interval's independently-tracked output into one
// run-wide result, per spec §4.9: it requires every interval directory
// to already hold its own aggregated attribute csvs (the output of
// track.Tracks.Finalize run against Paths rooted at each interval
// directory), matches each tracked object's mask across consecutive
// interval boundaries, rewrites ids and parents to a single run-wide
// numbering, and writes one concatenated attribute csv and mask per
// object. masks may be nil to skip mask stitching entirely (attribute
// csvs still stitch correctly on their own).
func Run(fsys fsutil.FileSystem, root string, intervals []TimeInterval, objects []ObjectSpec, masks MaskSource, sink MaskSink, cleanup bool) error {
	for _, obj := range objects {
		var coreIDDicts []map[int]int

		var matchDicts []map[int]int
		if masks != nil {
			var err error
			matchDicts, err = buildMatchDicts(masks, root, intervals, obj.Name, "")
			if err != nil {
				return err
			}
		}

		for _, typeName := range obj.Types {
			frames, err := readIntervalFrames(fsys, root, len(intervals), obj.Name, "", typeName)
			if err != nil {
				return err
			}

			out, idDict, err := StitchAttribute(frames, "universal_id", matchDicts)
			if err != nil {
				return err
			}
			if err := out.Write(fsys, filepath.Join(root, "attributes", obj.Name, typeName+".csv")); err != nil {
				return err
			}
			if typeName == "core" {
				coreIDDicts = idDictToSlice(idDict, len(intervals))
			}
		}

		if masks != nil && sink != nil {
			if err := stitchObjectMask(masks, sink, root, intervals, obj.Name, "", coreIDDicts); err != nil {
				return err
			}
		}

		for member, types := range obj.Members {
			for _, typeName := range types {
				frames, err := readIntervalFrames(fsys, root, len(intervals), obj.Name, member, typeName)
				if err != nil {
					return err
				}
				out, _, err := StitchAttribute(frames, "id", nil)
				if err != nil {
					return err
				}
				path := filepath.Join(root, "attributes", obj.Name, member, typeName+".csv")
				if err := out.Write(fsys, path); err != nil {
					return err
				}
			}
			if masks != nil && sink != nil {
				if err := stitchObjectMask(masks, sink, root, intervals, obj.Name, member, nil); err != nil {
					return err
				}
			}
		}
	}

	if cleanup {
		for i := range intervals {
			_ = fsys.RemoveAll(filepath.Join(root, intervalDirName(i)))
		}
	}
	return nil
}

func readIntervalFrames(fsys fsutil.FileSystem, root string, numIntervals int, object, member, typeName string) ([]Frame, error) {
	frames := make([]Frame, numIntervals)
	for i := 0; i < numIntervals; i++ {
		parts := []string{root, intervalDirName(i), "attributes", object}
		if member != "" {
			parts = append(parts, member)
		}
		parts = append(parts, typeName+".csv")
		f, err := ReadFrame(fsys, filepath.Join(parts...))
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

func buildMatchDicts(masks MaskSource, root string, intervals []TimeInterval, object, member string) ([]map[int]int, error) {
	if len(intervals) < 2 {
		return nil, nil
	}
	matchDicts := make([]map[int]int, len(intervals)-1)
	for i := 0; i < len(intervals)-1; i++ {
		lastDir := filepath.Join(root, intervalDirName(i))
		nextDir := filepath.Join(root, intervalDirName(i+1))
		lastFrames, err := masks.ReadMaskFrames(lastDir, object, member)
		if err != nil {
			return nil, err
		}
		nextFrames, err := masks.ReadMaskFrames(nextDir, object, member)
		if err != nil {
			return nil, err
		}
		if len(lastFrames) == 0 || len(nextFrames) == 0 {
			matchDicts[i] = map[int]int{}
			continue
		}
		md, err := MatchLabels(lastFrames[len(lastFrames)-1].Labels, nextFrames[0].Labels)
		if err != nil {
			return nil, err
		}
		matchDicts[i] = md
	}
	return matchDicts, nil
}

func stitchObjectMask(masks MaskSource, sink MaskSink, root string, intervals []TimeInterval, object, member string, idDicts []map[int]int) error {
	perInterval := make([][]MaskFrame, len(intervals))
	for i := range intervals {
		frames, err := masks.ReadMaskFrames(filepath.Join(root, intervalDirName(i)), object, member)
		if err != nil {
			return err
		}
		perInterval[i] = frames
	}
	stitched := StitchMasks(perInterval, idDicts)
	return sink.WriteMaskFrames(root, object, member, stitched)
}

// idDictToSlice converts StitchAttribute's interval-keyed idDict into an
// ordered slice indexed 0..numIntervals-1, the form StitchMasks expects.
func idDictToSlice(idDict map[int]map[int]int, numIntervals int) []map[int]int {
	out := make([]map[int]int, numIntervals)
	for i := 0; i < numIntervals; i++ {
		if m, ok := idDict[i]; ok {
			out[i] = m
		} else {
			out[i] = map[int]int{}
		}
	}
	return out
}
