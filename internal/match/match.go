// Package match implements the TINT/MINT object matcher: it associates
// objects between a previous and a next labeled mask using a flow-
// corrected search region and a Hungarian assignment over a
// distance+area cost, then relabels the next mask with universal ids and
// records every split/merge parent edge it discovers.
package match

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/flow"
	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/identity"
	"github.com/thuner-project/thuner/internal/options"
)

// Record describes one object present in the matched (relabeled) next
// mask: its universal id, the cost and corrected-flow case that produced
// it (zero values for newly appeared objects), its centroid and
// displacement, and any parents discovered this step.
type Record struct {
	UniversalID   identity.UniversalID
	PreviousLabel int // 0 when the object has no previous-step match
	NextLabel     int
	Cost          float32
	Case          FlowCase
	HasCase       bool
	CentreRow     float64
	CentreCol     float64
	Displacement  geo.Vector2
	Parents       []identity.UniversalID
}

// Result is the outcome of one matcher step.
type Result struct {
	MatchedMask [][]int // nextMask relabeled to universal ids, nil if nextMask was nil
	Records     []Record
	Dying       []identity.UniversalID // previous universal ids with no forward match
}

// Run matches previousMask against nextMask. previousField/currentField
// are the flattened scalar fields the flow estimator correlates.
// previousUniversalIDs[i] is the universal id of previous label i+1 (nil
// or empty on the first step of tracking). lastDisplacement looks up an
// id's displacement from the step before previous, for the TINT/MINT
// case table; it may return (zero, false) for ids with no prior
// displacement. stepTime is the current step's timestamp, used to key
// parent-graph nodes.
func Run(
	previousField, currentField [][]float32,
	previousMask, nextMask *detect.Mask,
	cellAreas [][]float32,
	previousUniversalIDs []identity.UniversalID,
	lastDisplacement func(identity.UniversalID) (geo.Vector2, bool),
	dtSeconds float64,
	g *geo.Grid,
	counter *identity.Counter,
	graph *identity.ParentGraph,
	previousTime, stepTime time.Time,
	o options.MatchOptions,
	flowOpts options.FlowOptions,
) (*Result, error) {
	if previousMask == nil {
		return initialise(nextMask, counter, stepTime)
	}
	if nextMask == nil {
		return allDying(previousMask, previousUniversalIDs, previousTime)
	}

	prevObjects := describeObjects(previousMask.Labels, cellAreas, previousMask.NumLabels)
	nextObjects := describeObjects(nextMask.Labels, cellAreas, nextMask.NumLabels)
	rows, cols := len(nextMask.Labels), len(nextMask.Labels[0])

	globalFlow, err := flow.GlobalFlow(previousField, currentField, g, flowOpts)
	if err != nil {
		globalFlow = geo.Vector2{}
	}

	correctedFlows := make([]geo.Vector2, len(prevObjects))
	cases := make([]FlowCase, len(prevObjects))
	searchBoxes := make([]flow.Box, len(prevObjects))

	for i, p := range prevObjects {
		localFlow, err := flow.LocalFlow(previousField, currentField, p.Box, g, flowOpts)
		if err != nil {
			localFlow = globalFlow
		}

		var last *geo.Vector2
		if i < len(previousUniversalIDs) && lastDisplacement != nil {
			if v, ok := lastDisplacement(previousUniversalIDs[i]); ok {
				last = &v
			}
		}

		fcorr, c := CorrectedFlow(localFlow, globalFlow, last, dtSeconds, o)
		correctedFlows[i] = fcorr
		cases[i] = c

		marginRows, marginCols := flow.MarginPixels(o.SearchMarginKm, g, int(p.CentreR), int(p.CentreC))
		box := p.Box.Expand(marginRows, marginCols, rows, cols)
		searchBoxes[i] = shiftBox(box, fcorr, rows, cols)
	}

	cost := mat.NewDense(len(prevObjects), len(nextObjects), nil)
	for i := range prevObjects {
		for j := range nextObjects {
			cost.Set(i, j, infCost)
		}
		for _, q := range candidateLabels(nextMask.Labels, searchBoxes[i]) {
			j := q - 1
			d := centreDistanceKm(prevObjects[i], nextObjects[j], g)
			areaDiff := math.Sqrt(math.Abs(float64(nextObjects[j].AreaKm2) - float64(prevObjects[i].AreaKm2)))
			cost.Set(i, j, d+areaDiff)
		}
	}

	assignment := hungarianAssign(cost)

	// nextAssignedFrom[j] = previous label (1-indexed) assigned to next
	// label j+1, or 0 if none.
	nextAssignedFrom := make([]int, len(nextObjects))
	for i, j := range assignment {
		if j < 0 {
			continue
		}
		if cost.At(i, j) >= float64(o.MaxCost) {
			continue
		}
		nextAssignedFrom[j] = i + 1
	}

	matchedMask := make([][]int, rows)
	for r := range matchedMask {
		matchedMask[r] = make([]int, cols)
	}

	var records []Record
	usedPrev := make(map[int]bool)

	for j, q := range nextObjects {
		prevLabel := nextAssignedFrom[j]
		rec := Record{NextLabel: q.Label, CentreRow: q.CentreR, CentreCol: q.CentreC}
		if prevLabel == 0 {
			rec.UniversalID = counter.Next()
		} else {
			i := prevLabel - 1
			usedPrev[i] = true
			if i < len(previousUniversalIDs) {
				rec.UniversalID = previousUniversalIDs[i]
			} else {
				rec.UniversalID = counter.Next()
			}
			rec.PreviousLabel = prevLabel
			rec.Cost = float32(cost.At(i, j))
			rec.Case = cases[i]
			rec.HasCase = true
			rec.Displacement = correctedFlows[i]
		}
		records = append(records, rec)
	}

	// Merge detection: every previous label assigned to a next label
	// that another previous label was also assigned to lists every
	// contributor as a parent (the lowest-cost contributor keeps the
	// identity above; this adds the others as parents).
	assignedTo := make(map[int][]int) // next label -> previous labels
	for i, j := range assignment {
		if j < 0 || cost.At(i, j) >= float64(o.MaxCost) {
			continue
		}
		assignedTo[j] = append(assignedTo[j], i)
	}
	for j, contributors := range assignedTo {
		if len(contributors) < 2 {
			continue
		}
		for ri := range records {
			if records[ri].NextLabel != nextObjects[j].Label {
				continue
			}
			for _, i := range contributors {
				pid := identity.UniversalID(0)
				if i < len(previousUniversalIDs) {
					pid = previousUniversalIDs[i]
				}
				if pid != records[ri].UniversalID {
					records[ri].Parents = append(records[ri].Parents, pid)
					graph.AddEdge(
						identity.Node{Time: stepTime, ID: records[ri].UniversalID},
						identity.Node{Time: previousTime, ID: pid},
						identity.ParentKindMatch,
					)
				}
			}
		}
	}

	// Split detection: a previous object with no forward match whose
	// mask overlaps a matched next object beyond the overlap threshold
	// is recorded as an additional parent of that next object.
	var dying []identity.UniversalID
	for i := range prevObjects {
		if usedPrev[i] {
			continue
		}
		pid := identity.UniversalID(0)
		if i < len(previousUniversalIDs) {
			pid = previousUniversalIDs[i]
		}
		splitTarget, overlap := dominantOverlap(previousMask.Labels, nextMask.Labels, prevObjects[i].Label, nextAssignedFrom)
		if splitTarget > 0 && overlap > o.SplitOverlapFraction {
			for ri := range records {
				if records[ri].NextLabel == splitTarget {
					records[ri].Parents = append(records[ri].Parents, pid)
					graph.AddEdge(
						identity.Node{Time: stepTime, ID: records[ri].UniversalID},
						identity.Node{Time: previousTime, ID: pid},
						identity.ParentKindMatch,
					)
				}
			}
			continue
		}
		dying = append(dying, pid)
	}

	for _, rec := range records {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if nextMask.Labels[r][c] == rec.NextLabel {
					matchedMask[r][c] = int(rec.UniversalID)
				}
			}
		}
	}

	return &Result{MatchedMask: matchedMask, Records: records, Dying: dying}, nil
}

func initialise(nextMask *detect.Mask, counter *identity.Counter, stepTime time.Time) (*Result, error) {
	if nextMask == nil {
		return &Result{}, nil
	}
	infos := describeObjects(nextMask.Labels, nil, nextMask.NumLabels)
	rows, cols := len(nextMask.Labels), len(nextMask.Labels[0])
	matchedMask := make([][]int, rows)
	for r := range matchedMask {
		matchedMask[r] = make([]int, cols)
	}
	var records []Record
	for _, info := range infos {
		id := counter.Next()
		records = append(records, Record{UniversalID: id, NextLabel: info.Label, CentreRow: info.CentreR, CentreCol: info.CentreC})
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if nextMask.Labels[r][c] == info.Label {
					matchedMask[r][c] = int(id)
				}
			}
		}
	}
	return &Result{MatchedMask: matchedMask, Records: records}, nil
}

func allDying(previousMask *detect.Mask, previousUniversalIDs []identity.UniversalID, previousTime time.Time) (*Result, error) {
	if previousMask == nil {
		return &Result{}, nil
	}
	dying := make([]identity.UniversalID, 0, previousMask.NumLabels)
	for i := 0; i < previousMask.NumLabels; i++ {
		if i < len(previousUniversalIDs) {
			dying = append(dying, previousUniversalIDs[i])
		}
	}
	return &Result{Dying: dying}, nil
}

// shiftBox translates box by the rounded corrected flow vector and clips
// it back to the frame.
func shiftBox(box flow.Box, f geo.Vector2, rows, cols int) flow.Box {
	dr := int(math.Round(f.DRow))
	dc := int(math.Round(f.DCol))
	out := flow.Box{
		RowStart: box.RowStart + dr,
		RowEnd:   box.RowEnd + dr,
		ColStart: box.ColStart + dc,
		ColEnd:   box.ColEnd + dc,
	}
	if out.RowStart < 0 {
		out.RowEnd -= out.RowStart
		out.RowStart = 0
	}
	if out.ColStart < 0 {
		out.ColEnd -= out.ColStart
		out.ColStart = 0
	}
	if out.RowEnd > rows {
		out.RowStart -= out.RowEnd - rows
		out.RowEnd = rows
	}
	if out.ColEnd > cols {
		out.ColStart -= out.ColEnd - cols
		out.ColEnd = cols
	}
	if out.RowStart < 0 {
		out.RowStart = 0
	}
	if out.ColStart < 0 {
		out.ColStart = 0
	}
	return out
}

// candidateLabels returns the distinct non-zero labels of mask that
// appear within box.
func candidateLabels(mask [][]int, box flow.Box) []int {
	seen := map[int]bool{}
	var out []int
	for r := box.RowStart; r < box.RowEnd; r++ {
		for c := box.ColStart; c < box.ColEnd; c++ {
			lab := mask[r][c]
			if lab > 0 && !seen[lab] {
				seen[lab] = true
				out = append(out, lab)
			}
		}
	}
	return out
}

// dominantOverlap finds the next-mask label that a dying previous object
// (previousLabel) overlaps the most, restricted to next labels that were
// actually assigned a previous match (nextAssignedFrom != 0), and returns
// that label and the overlap fraction of the previous object's own area.
func dominantOverlap(previousLabels, nextLabels [][]int, previousLabel int, nextAssignedFrom []int) (label int, fraction float32) {
	overlapCount := map[int]int{}
	total := 0
	rows := len(previousLabels)
	for r := 0; r < rows; r++ {
		cols := len(previousLabels[r])
		for c := 0; c < cols; c++ {
			if previousLabels[r][c] != previousLabel {
				continue
			}
			total++
			next := nextLabels[r][c]
			if next > 0 {
				overlapCount[next]++
			}
		}
	}
	if total == 0 {
		return 0, 0
	}
	best, bestCount := 0, 0
	for next, count := range overlapCount {
		if next-1 < 0 || next-1 >= len(nextAssignedFrom) || nextAssignedFrom[next-1] == 0 {
			continue
		}
		if count > bestCount {
			best, bestCount = next, count
		}
	}
	if best == 0 {
		return 0, 0
	}
	return best, float32(bestCount) / float32(total)
}
