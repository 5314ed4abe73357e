package detect

import (
	"fmt"
	"math"

	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
)

// Threshold marks every non-NaN pixel at or above threshold as convective.
func Threshold(field [][]float32, threshold float32) [][]bool {
	rows := len(field)
	out := make([][]bool, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]bool, len(field[r]))
		for c, v := range field[r] {
			if isNaN32(v) {
				continue
			}
			out[r][c] = v >= threshold
		}
	}
	return out
}

// steinerConvectiveRadii and steinerBaseThresholds implement the area
// relation from Steiner et al. (1995), table 1: background reflectivity
// bands of width 5 dBZ starting at 20 dBZ map to convective radii from
// 1km to 5km. radiusOption shifts every threshold by 5*radiusOption dBZ
// (radius_option=1, base+5, is the variant used by Louf et al. 2019 and
// adopted as this scheme's default).
var steinerBaseThresholds = []float32{20, 25, 30, 35}
var steinerConvectiveRadii = []float32{1000, 2000, 3000, 4000, 5000}

func convectiveRadius(backgroundDBZ float32, radiusOption int) float32 {
	shift := float32(radiusOption) * 5
	for i, base := range steinerBaseThresholds {
		if backgroundDBZ < base+shift {
			return steinerConvectiveRadii[i]
		}
	}
	return steinerConvectiveRadii[len(steinerConvectiveRadii)-1]
}

// deltaZThreshold implements Steiner et al. (1995) eq. 2: the
// background-relative reflectivity excess needed to call a pixel
// convective, decaying quadratically with background reflectivity and
// clamped to zero above 42.43 dBZ (background already intense enough
// that any further information is below the absolute dBZ threshold).
func deltaZThreshold(backgroundDBZ float32, deltaZOption int) float32 {
	threshold := float32(10 + 4*deltaZOption)
	if backgroundDBZ < 0 {
		return threshold
	}
	if backgroundDBZ < 42.43 {
		threshold -= backgroundDBZ * backgroundDBZ / 180
		return threshold
	}
	return 0
}

const steinerDBZThreshold = 42
const steinerBackgroundRadiusM = 11000

// Steiner classifies a flattened reflectivity field as convective (true)
// or non-convective (false) per Steiner et al. (1995), extended to
// geographic coordinates via geodesic distance. Pixels are visited in
// row-major order; once a pixel within a convective radius is marked, it
// is not reclassified.
func Steiner(field [][]float32, g *geo.Grid, o options.DetectOptions) ([][]bool, error) {
	rows := len(field)
	if rows == 0 {
		return nil, fmt.Errorf("detect.Steiner: empty field")
	}
	cols := len(field[0])

	classified := make([][]int8, rows) // 0 = unclassified, 1 = non-convective, 2 = convective
	for r := range classified {
		classified[r] = make([]int8, cols)
	}

	distance := distanceFunc(g)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if isNaN32(field[r][c]) || classified[r][c] != 0 {
				continue
			}
			background := meanBackgroundDBZ(field, r, c, steinerBackgroundRadiusM, distance)
			radius := convectiveRadius(background, steinerRadiusOption(o))

			isConvective := field[r][c] >= steinerDBZThreshold
			if !isConvective {
				threshold := deltaZThreshold(background, steinerDeltaZOption(o))
				isConvective = (field[r][c] - background) >= threshold
			}

			if isConvective {
				markWithinRadius(classified, r, c, radius, distance, 2)
			} else {
				classified[r][c] = 1
			}
		}
	}

	out := make([][]bool, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]bool, cols)
		for c := 0; c < cols; c++ {
			out[r][c] = classified[r][c] == 2
		}
	}
	return out, nil
}

func steinerRadiusOption(o options.DetectOptions) int {
	switch o.RadiusOption {
	case "0":
		return 0
	case "2":
		return 2
	default:
		return 1
	}
}

func steinerDeltaZOption(o options.DetectOptions) int {
	switch o.DeltaZOption {
	case "1":
		return 1
	default:
		return 0
	}
}

type distanceFn func(r1, c1, r2, c2 int) float64

func distanceFunc(g *geo.Grid) distanceFn {
	if g == nil || g.Name == "cartesian" {
		dy, dx := 1.0, 1.0
		if g != nil {
			dy, dx = float64(g.CartesianSpacing[0]), float64(g.CartesianSpacing[1])
		}
		return func(r1, c1, r2, c2 int) float64 {
			y := float64(r2-r1) * dy
			x := float64(c2-c1) * dx
			return math.Sqrt(y*y + x*x)
		}
	}
	return func(r1, c1, r2, c2 int) float64 {
		if r1 == r2 && c1 == c2 {
			return 0
		}
		return geo.GeodesicDistance(g.Longitude[c1], g.Latitude[r1], g.Longitude[c2], g.Latitude[r2])
	}
}

// meanBackgroundDBZ averages reflectivity (in linear units, per Steiner
// 1995) over every non-NaN pixel within radiusM of (row, col).
func meanBackgroundDBZ(field [][]float32, row, col int, radiusM float64, distance distanceFn) float32 {
	var sumLinear float64
	var count int
	rows, cols := len(field), len(field[0])
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if isNaN32(field[r][c]) {
				continue
			}
			if distance(row, col, r, c) > radiusM {
				continue
			}
			sumLinear += dbzToLinear(field[r][c])
			count++
		}
	}
	if count == 0 {
		return float32(1e9) // effectively +inf: largest convective radius applies
	}
	return linearToDBZ(sumLinear / float64(count))
}

func markWithinRadius(classified [][]int8, row, col int, radiusM float64, distance distanceFn, value int8) {
	rows, cols := len(classified), len(classified[0])
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if distance(row, col, r, c) <= radiusM {
				classified[r][c] = value
			}
		}
	}
}

func dbzToLinear(dbz float32) float64 {
	return math.Pow(10, float64(dbz)/10)
}

func linearToDBZ(linear float64) float32 {
	if linear <= 0 {
		return 0
	}
	return float32(10 * math.Log10(linear))
}
