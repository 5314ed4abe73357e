package attribute

import "fmt"

// retrieveProfile interpolates a secondary dataset's variable at each
// object's centre for every requested altitude and time offset, one row
// per (object, altitude, time_offset) combination.
func retrieveProfile(ctx RetrievalContext, args RetrievalArgs) (map[string][]any, error) {
	if ctx.Secondary == nil {
		return nil, fmt.Errorf("attribute.retrieveProfile: no secondary dataset configured")
	}
	if args.Variable == "" {
		return nil, fmt.Errorf("attribute.retrieveProfile: a variable name is required")
	}

	var ids, universal, altitude []any
	var timeOffset, value []any

	for _, o := range ctx.Objects {
		lat, lon := centreLatLon(ctx.Grid, o.CentreRow, o.CentreCol)
		values, err := ctx.Secondary.InterpolateProfile(args.Variable, lat, lon, args.Altitudes, args.TimeOffsets)
		if err != nil {
			return nil, fmt.Errorf("attribute.retrieveProfile: object %d: %w", o.UniversalID, err)
		}
		idx := 0
		for _, to := range args.TimeOffsets {
			for _, alt := range args.Altitudes {
				ids = append(ids, o.Label)
				universal = append(universal, int64(o.UniversalID))
				altitude = append(altitude, alt)
				timeOffset = append(timeOffset, to)
				if idx < len(values) {
					value = append(value, values[idx])
				} else {
					value = append(value, nil)
				}
				idx++
			}
		}
	}

	return map[string][]any{
		"id":           ids,
		"universal_id": universal,
		"altitude":     altitude,
		"time_offset":  timeOffset,
		args.Variable:  value,
	}, nil
}

// retrieveTag interpolates a secondary dataset's scalar variable (e.g.
// CAPE, CIN) at each object's centre for the requested time offsets.
func retrieveTag(ctx RetrievalContext, args RetrievalArgs) (map[string][]any, error) {
	if ctx.Secondary == nil {
		return nil, fmt.Errorf("attribute.retrieveTag: no secondary dataset configured")
	}
	if args.Variable == "" {
		return nil, fmt.Errorf("attribute.retrieveTag: a variable name is required")
	}

	offsets := args.TimeOffsets
	if len(offsets) == 0 {
		offsets = []float64{0}
	}

	var ids, universal []any
	var timeOffset, value []any
	for _, o := range ctx.Objects {
		lat, lon := centreLatLon(ctx.Grid, o.CentreRow, o.CentreCol)
		for _, to := range offsets {
			v, err := ctx.Secondary.InterpolateTag(args.Variable, lat, lon, to)
			if err != nil {
				return nil, fmt.Errorf("attribute.retrieveTag: object %d: %w", o.UniversalID, err)
			}
			ids = append(ids, o.Label)
			universal = append(universal, int64(o.UniversalID))
			timeOffset = append(timeOffset, to)
			value = append(value, v)
		}
	}

	return map[string][]any{
		"id":           ids,
		"universal_id": universal,
		"time_offset":  timeOffset,
		args.Variable:  value,
	}, nil
}
