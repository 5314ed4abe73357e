package stitch

import (
	"fmt"

	"github.com/thuner-project/thuner/internal/trackerr"
)

// MatchLabels compares the last mask of one interval against the first
// mask of the next and, if their binary (label != 0) regions agree
// pixel for pixel, returns the bijective mapping from last's labels to
// next's labels. If the binary regions disagree the two masks cannot be
// linked (a gap in the data at the interval boundary); MatchLabels
// returns an empty map and no error, per spec §4.9 step 2's "otherwise
// leave empty (no linkage)".
func MatchLabels(last, next [][]int) (map[int]int, error) {
	if !sameBinaryRegion(last, next) {
		return map[int]int{}, nil
	}

	mapping := map[int]int{}
	for r := range last {
		for c := range last[r] {
			a := last[r][c]
			if a == 0 {
				continue
			}
			b := next[r][c]
			if existing, ok := mapping[a]; ok {
				if existing != b {
					err := fmt.Errorf("label %d maps to both %d and %d", a, existing, b)
					return nil, trackerr.New(trackerr.KindStitch, "stitch.MatchLabels", err)
				}
				continue
			}
			mapping[a] = b
		}
	}

	seenDestinations := map[int]int{}
	for a, b := range mapping {
		if b == 0 {
			err := fmt.Errorf("label %d maps to background", a)
			return nil, trackerr.New(trackerr.KindStitch, "stitch.MatchLabels", err)
		}
		if other, ok := seenDestinations[b]; ok && other != a {
			err := fmt.Errorf("destination label %d claimed by both %d and %d", b, other, a)
			return nil, trackerr.New(trackerr.KindStitch, "stitch.MatchLabels", err)
		}
		seenDestinations[b] = a
	}
	return mapping, nil
}

func sameBinaryRegion(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if len(a[r]) != len(b[r]) {
			return false
		}
		for c := range a[r] {
			if (a[r][c] != 0) != (b[r][c] != 0) {
				return false
			}
		}
	}
	return true
}
