package analysis

// ContainedFraction returns, per universal_id, the fraction of quality
// rows with contained == true, per original_source/thor/analyze/mcs.py's
// quality_control "determine if the system is sufficiently contained
// within the domain" check, generalised here from the MCS-specific
// convective/anvil member split to a single object's own quality.csv.
func ContainedFraction(quality Frame, idColumn string) (map[int64]float64, error) {
	groups, order, err := quality.groupByID(idColumn)
	if err != nil {
		return nil, err
	}
	contained, err := quality.BoolColumn("contained")
	if err != nil {
		return nil, err
	}
	out := make(map[int64]float64, len(order))
	for _, id := range order {
		idxs := groups[id]
		n := 0
		for _, i := range idxs {
			if contained[i] {
				n++
			}
		}
		out[id] = float64(n) / float64(len(idxs))
	}
	return out, nil
}

// FilterByContainment drops every row of f whose universal_id's
// contained fraction is below minFraction. f and fractions must share
// idColumn's id space (the same object's core/ellipse/profile csv and
// its quality csv).
func FilterByContainment(f Frame, idColumn string, fractions map[int64]float64, minFraction float32) (Frame, error) {
	ids, err := f.Int64Column(idColumn)
	if err != nil {
		return Frame{}, err
	}
	out := Frame{Header: f.Header}
	for i, row := range f.Rows {
		if fractions[ids[i]] >= float64(minFraction) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
