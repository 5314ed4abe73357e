package attribute

import (
	"math"

	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/logging"
)

// retrieveEllipse fits a direct least-squares ellipse to each object's
// mask and reports centre, major/minor axes in kilometres, orientation
// in [0, π), and eccentricity. Numerical edge cases (too few contour
// points after triplication, a degenerate fit) are locally mitigated by
// skipping the ellipse for that object rather than failing the step,
// per the Numerical edge cases error-handling policy.
func retrieveEllipse(ctx RetrievalContext, _ RetrievalArgs) (map[string][]any, error) {
	if ctx.Mask == nil || ctx.Grid == nil {
		return nil, nil
	}
	n := len(ctx.Objects)
	lat := make([]any, n)
	lon := make([]any, n)
	major := make([]any, n)
	minor := make([]any, n)
	orientation := make([]any, n)
	eccentricity := make([]any, n)

	for i, o := range ctx.Objects {
		fit, err := FitEllipse(ctx.Mask.Labels, o.Label)
		if err != nil {
			logging.Warn("attribute.retrieveEllipse: object %d: %v", o.UniversalID, err)
			continue
		}
		cLat, cLon := centreLatLon(ctx.Grid, fit.CentreRow, fit.CentreCol)
		_, majorM, perr := geo.PixelToCartesianVector(int(fit.CentreRow), int(fit.CentreCol), geo.Vector2{DRow: 0, DCol: fit.Major}, ctx.Grid)
		minorM, _, merr := geo.PixelToCartesianVector(int(fit.CentreRow), int(fit.CentreCol), geo.Vector2{DRow: fit.Minor, DCol: 0}, ctx.Grid)
		if perr != nil || merr != nil {
			continue
		}
		lat[i] = cLat
		lon[i] = cLon
		major[i] = math.Abs(majorM) / 1000
		minor[i] = math.Abs(minorM) / 1000
		orientation[i] = fit.OrientationRad
		eccentricity[i] = fit.Eccentricity()
	}

	return map[string][]any{
		"latitude":     lat,
		"longitude":    lon,
		"major":        major,
		"minor":        minor,
		"orientation":  orientation,
		"eccentricity": eccentricity,
	}, nil
}
