package stitch

import "time"

// MaskFrame is one time step of a labeled mask array.
type MaskFrame struct {
	Time   time.Time
	Labels [][]int
}

// StitchMasks applies each interval's original-id-to-final-id mapping
// (the idDict returned by StitchAttribute for that object's core
// attribute type) to the interval's raw mask frames and concatenates
// them in time order, dropping the first frame of every interval but
// the first when its time duplicates the previous interval's last
// frame (the overlap frame every worker reprocesses to seed matching),
// per spec §4.9 step 4's "slicing out the overlap frame to avoid
// duplication".
func StitchMasks(perInterval [][]MaskFrame, idDicts []map[int]int) []MaskFrame {
	var out []MaskFrame
	var lastTime time.Time
	haveLast := false

	for i, frames := range perInterval {
		mapping := map[int]int{}
		if i < len(idDicts) {
			mapping = idDicts[i]
		}
		for _, f := range frames {
			if haveLast && !f.Time.After(lastTime) {
				continue
			}
			out = append(out, MaskFrame{Time: f.Time, Labels: applyLabelMapping(mapping, f.Labels)})
		}
		if len(frames) > 0 {
			lastTime = frames[len(frames)-1].Time
			haveLast = true
		}
	}
	return out
}

func applyLabelMapping(mapping map[int]int, labels [][]int) [][]int {
	out := make([][]int, len(labels))
	for r, row := range labels {
		newRow := make([]int, len(row))
		for c, v := range row {
			if v == 0 {
				continue
			}
			if mapped, ok := mapping[v]; ok {
				newRow[c] = mapped
			} else {
				newRow[c] = v
			}
		}
		out[r] = newRow
	}
	return out
}
