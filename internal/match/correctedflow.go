package match

import (
	"math"

	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
)

// FlowCase identifies which branch of the TINT/MINT corrected-flow
// decision table produced a corrected flow vector.
type FlowCase int

const (
	// CaseGlobalOnly: no last-step displacement, local and global flow
	// disagree. f* = global flow.
	CaseGlobalOnly FlowCase = iota
	// CaseLocalGlobalAverage: no last-step displacement, local and
	// global flow agree. f* = (local+global)/2.
	CaseLocalGlobalAverage
	// CaseDisplacementOnly: a last-step displacement exists but
	// disagrees with both local and global flow. f* = last displacement.
	CaseDisplacementOnly
	// CaseLocalOnly: a last-step displacement exists, disagrees with
	// local flow, but local and global flow agree. f* = local flow.
	CaseLocalOnly
	// CaseLocalDisplacementAverage: a last-step displacement exists and
	// agrees with local flow. TINT: f* = (local+displacement)/2. MINT:
	// f* = global flow if local/global disagree under max_diff_alt,
	// else local flow.
	CaseLocalDisplacementAverage
)

// shiftsDisagree reports whether two displacement vectors differ by more
// than maxDiff once scaled by the elapsed time in seconds (dt): the
// original's |a-b|*dt > max_diff test.
func shiftsDisagree(a, b geo.Vector2, dtSeconds, maxDiff float64) bool {
	dr := (a.DRow - b.DRow) * dtSeconds
	dc := (a.DCol - b.DCol) * dtSeconds
	magnitude := hypot(dr, dc)
	return magnitude > maxDiff
}

func hypot(a, b float64) float64 {
	return math.Sqrt(a*a + b*b)
}

// CorrectedFlow implements the TINT/MINT corrected-flow selection: given
// the object's local phase-correlation flow, the field's global flow, and
// the object's last-step displacement (nil if this is the object's first
// tracked step), it picks f* per the five-case decision table and reports
// which case fired.
func CorrectedFlow(local, global geo.Vector2, lastDisplacement *geo.Vector2, dtSeconds float64, o options.MatchOptions) (geo.Vector2, FlowCase) {
	if lastDisplacement == nil {
		if shiftsDisagree(local, global, dtSeconds, float64(o.MaxShiftDisparity)) {
			return global, CaseGlobalOnly
		}
		return average(local, global), CaseLocalGlobalAverage
	}

	h := *lastDisplacement
	localDisagreesWithH := shiftsDisagree(local, h, dtSeconds, float64(o.MaxShiftDisparity))
	localAgreesWithGlobal := !shiftsDisagree(local, global, dtSeconds, float64(o.MaxShiftDisparity))

	if !localDisagreesWithH {
		if o.UseMINT {
			if shiftsDisagree(local, global, dtSeconds, float64(o.MaxShiftDisparityAlt)) {
				return global, CaseLocalDisplacementAverage
			}
			return local, CaseLocalDisplacementAverage
		}
		return average(local, h), CaseLocalDisplacementAverage
	}

	if localAgreesWithGlobal {
		return local, CaseLocalOnly
	}

	return h, CaseDisplacementOnly
}

func average(a, b geo.Vector2) geo.Vector2 {
	return geo.Vector2{DRow: (a.DRow + b.DRow) / 2, DCol: (a.DCol + b.DCol) / 2}
}
