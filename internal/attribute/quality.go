package attribute

// retrieveQualityBoundaryOverlap reports, per object, the fraction of
// its mask area that falls within the frame's boundary mask
// (boundary_overlap) and whether that fraction is within the configured
// containment tolerance (contained).
func retrieveQualityBoundaryOverlap(ctx RetrievalContext, args RetrievalArgs) (map[string][]any, error) {
	if ctx.Mask == nil {
		return nil, nil
	}
	epsilon := args.BoundaryEpsilon

	total := map[int]int{}
	overlap := map[int]int{}
	rows := len(ctx.Mask.Labels)
	for r := 0; r < rows; r++ {
		cols := len(ctx.Mask.Labels[r])
		for c := 0; c < cols; c++ {
			lab := ctx.Mask.Labels[r][c]
			if lab == 0 {
				continue
			}
			total[lab]++
			if ctx.BoundaryMask != nil && r < len(ctx.BoundaryMask) && c < len(ctx.BoundaryMask[r]) && ctx.BoundaryMask[r][c] {
				overlap[lab]++
			}
		}
	}

	boundaryOverlap := make([]any, len(ctx.Objects))
	contained := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		t := total[o.Label]
		if t == 0 {
			boundaryOverlap[i] = float32(0)
			contained[i] = true
			continue
		}
		frac := float32(overlap[o.Label]) / float32(t)
		boundaryOverlap[i] = frac
		contained[i] = frac <= epsilon
	}
	return map[string][]any{"boundary_overlap": boundaryOverlap, "contained": contained}, nil
}
