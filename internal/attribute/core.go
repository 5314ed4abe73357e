package attribute

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thuner-project/thuner/internal/geo"
)

func retrieveCoreID(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	ids := make([]any, len(ctx.Objects))
	universal := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		ids[i] = o.Label
		universal[i] = int64(o.UniversalID)
	}
	return map[string][]any{"id": ids, "universal_id": universal}, nil
}

// retrieveCoreCoordinates returns the object centre as (lat, lon)
// degrees, computed from the match record's pixel centroid rather than
// an area-weighted recomputation over the mask (the source's other
// supported path; recorded here as the simpler of the two equivalent
// options since the object's centroid is already computed once by the
// matcher and need not be recomputed from the mask a second time).
func retrieveCoreCoordinates(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	if ctx.Grid == nil {
		return nil, fmt.Errorf("attribute.retrieveCoreCoordinates: nil grid")
	}
	lats := make([]any, len(ctx.Objects))
	lons := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		lat, lon := centreLatLon(ctx.Grid, o.CentreRow, o.CentreCol)
		lats[i] = lat
		lons[i] = lon
	}
	return map[string][]any{"latitude": lats, "longitude": lons}, nil
}

func retrieveCoreArea(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	areas := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		areas[i] = o.AreaKm2
	}
	return map[string][]any{"area": areas}, nil
}

// retrieveCoreFlowVelocity converts the uncorrected local/global flow
// pixel vector to a ground speed in metres/second.
func retrieveCoreFlowVelocity(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	if ctx.Grid == nil || ctx.DtSeconds <= 0 {
		return nil, fmt.Errorf("attribute.retrieveCoreFlowVelocity: grid and dt_seconds are required")
	}
	u := make([]any, len(ctx.Objects))
	v := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		dy, dx, err := geo.PixelToCartesianVector(int(o.CentreRow), int(o.CentreCol), o.FlowVector, ctx.Grid)
		if err != nil {
			u[i], v[i] = nil, nil
			continue
		}
		u[i] = dx / ctx.DtSeconds
		v[i] = dy / ctx.DtSeconds
	}
	return map[string][]any{"u_flow": u, "v_flow": v}, nil
}

// retrieveCoreDisplacementVelocity converts the corrected-flow centre-
// to-centre displacement to a ground speed in metres/second.
func retrieveCoreDisplacementVelocity(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	if ctx.Grid == nil || ctx.DtSeconds <= 0 {
		return nil, fmt.Errorf("attribute.retrieveCoreDisplacementVelocity: grid and dt_seconds are required")
	}
	u := make([]any, len(ctx.Objects))
	v := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		dy, dx, err := geo.PixelToCartesianVector(int(o.CentreRow), int(o.CentreCol), o.Displacement, ctx.Grid)
		if err != nil {
			u[i], v[i] = nil, nil
			continue
		}
		u[i] = dx / ctx.DtSeconds
		v[i] = dy / ctx.DtSeconds
	}
	return map[string][]any{"u_displacement": u, "v_displacement": v}, nil
}

// retrieveCoreParents renders each object's parents as a space-separated
// decimal integer list, empty when it has none.
func retrieveCoreParents(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	parents := make([]any, len(ctx.Objects))
	for i, o := range ctx.Objects {
		if len(o.Parents) == 0 {
			parents[i] = ""
			continue
		}
		parts := make([]string, len(o.Parents))
		for j, p := range o.Parents {
			parts[j] = strconv.FormatInt(int64(p), 10)
		}
		parents[i] = strings.Join(parts, " ")
	}
	return map[string][]any{"parents": parents}, nil
}
