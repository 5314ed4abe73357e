package attribute

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Point is a pixel-space (row, col) coordinate used by the hull and
// ellipse fit below.
type Point struct {
	Row, Col float64
}

// EllipseFit is a fitted ellipse in pixel space: centre, the two
// semi-axis lengths (Major >= Minor, enforced by swap), and the
// orientation of the major axis measured from the +col axis, in [0, π).
type EllipseFit struct {
	CentreRow, CentreCol float64
	Major, Minor         float64
	OrientationRad       float64
}

// Eccentricity returns sqrt(1 - (minor/major)^2), in [0, 1).
func (f EllipseFit) Eccentricity() float64 {
	if f.Major == 0 {
		return 0
	}
	ratio := f.Minor / f.Major
	return math.Sqrt(1 - ratio*ratio)
}

// contourPoints returns the boundary pixels of label within labels: a
// pixel belongs to the contour if it carries label and at least one of
// its 4-neighbours (including out-of-frame) does not.
func contourPoints(labels [][]int, label int) []Point {
	rows := len(labels)
	var pts []Point
	for r := 0; r < rows; r++ {
		cols := len(labels[r])
		for c := 0; c < cols; c++ {
			if labels[r][c] != label {
				continue
			}
			boundary := r == 0 || c == 0 || r == rows-1 || c == cols-1
			if !boundary {
				boundary = labels[r-1][c] != label || labels[r+1][c] != label ||
					labels[r][c-1] != label || labels[r][c+1] != label
			}
			if boundary {
				pts = append(pts, Point{Row: float64(r), Col: float64(c)})
			}
		}
	}
	return pts
}

// convexHull computes the convex hull of pts via Andrew's monotone
// chain, returning hull vertices in counter-clockwise order.
func convexHull(pts []Point) []Point {
	uniq := dedupePoints(pts)
	if len(uniq) < 3 {
		return uniq
	}
	sort.Slice(uniq, func(i, j int) bool {
		if uniq[i].Col != uniq[j].Col {
			return uniq[i].Col < uniq[j].Col
		}
		return uniq[i].Row < uniq[j].Row
	})

	cross := func(o, a, b Point) float64 {
		return (a.Col-o.Col)*(b.Row-o.Row) - (a.Row-o.Row)*(b.Col-o.Col)
	}

	lower := make([]Point, 0, len(uniq))
	for _, p := range uniq {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	upper := make([]Point, 0, len(uniq))
	for i := len(uniq) - 1; i >= 0; i-- {
		p := uniq[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

func dedupePoints(pts []Point) []Point {
	seen := map[Point]bool{}
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// triplicate repeats a short point list three times with a tiny jitter
// per repetition so the design matrix below stays non-degenerate,
// matching the numerical-stability step the source applies to contours
// with fewer than 6 points.
func triplicate(pts []Point) []Point {
	out := make([]Point, 0, len(pts)*3)
	for rep := 0; rep < 3; rep++ {
		jitter := float64(rep) * 1e-6
		for _, p := range pts {
			out = append(out, Point{Row: p.Row + jitter, Col: p.Col + jitter})
		}
	}
	return out
}

// FitEllipse fits a direct least-squares ellipse (Fitzgibbon/Halíř–
// Flusser) to the convex hull of the given object mask pixels for
// label, triplicating the hull first when it has fewer than 6 points.
func FitEllipse(labels [][]int, label int) (EllipseFit, error) {
	pts := contourPoints(labels, label)
	hull := convexHull(pts)
	if len(hull) < 6 {
		hull = triplicate(hull)
	}
	if len(hull) < 6 {
		return EllipseFit{}, fmt.Errorf("attribute.FitEllipse: label %d has too few contour points to fit", label)
	}
	return fitHalirFlusser(hull)
}

// fitHalirFlusser implements the direct least-squares ellipse-specific
// fit of Halíř & Flusser (1998), a numerically stable reformulation of
// Fitzgibbon et al.'s 1996 ellipse fit.
func fitHalirFlusser(pts []Point) (EllipseFit, error) {
	n := len(pts)
	d1 := mat.NewDense(n, 3, nil)
	d2 := mat.NewDense(n, 3, nil)
	for i, p := range pts {
		x, y := p.Col, p.Row
		d1.SetRow(i, []float64{x * x, x * y, y * y})
		d2.SetRow(i, []float64{x, y, 1})
	}

	var s1, s2, s3 mat.Dense
	s1.Mul(d1.T(), d1)
	s2.Mul(d1.T(), d2)
	s3.Mul(d2.T(), d2)

	var s3Inv mat.Dense
	if err := s3Inv.Inverse(&s3); err != nil {
		return EllipseFit{}, fmt.Errorf("attribute.fitHalirFlusser: degenerate linear part: %w", err)
	}

	var t mat.Dense // T = -S3^-1 S2'
	t.Mul(&s3Inv, s2.T())
	t.Scale(-1, &t)

	var s2t mat.Dense
	s2t.Mul(&s2, &t)

	var m mat.Dense
	m.Add(&s1, &s2t)

	// C1^-1 = [[0,0,0.5],[0,-1,0],[0.5,0,0]]
	c1Inv := mat.NewDense(3, 3, []float64{
		0, 0, 0.5,
		0, -1, 0,
		0.5, 0, 0,
	})
	var reduced mat.Dense
	reduced.Mul(c1Inv, &m)

	var eig mat.Eigen
	if ok := eig.Factorize(&reduced, mat.EigenRight); !ok {
		return EllipseFit{}, fmt.Errorf("attribute.fitHalirFlusser: eigendecomposition failed")
	}
	values := eig.Values(nil)
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	var a1 [3]float64
	found := false
	for col := 0; col < 3; col++ {
		if math.Abs(imag(values[col])) > 1e-6 {
			continue
		}
		v0 := real(vectors.At(0, col))
		v1 := real(vectors.At(1, col))
		v2 := real(vectors.At(2, col))
		cond := 4*v0*v2 - v1*v1
		if cond > 0 {
			a1 = [3]float64{v0, v1, v2}
			found = true
			break
		}
	}
	if !found {
		return EllipseFit{}, fmt.Errorf("attribute.fitHalirFlusser: no valid ellipse eigenvector")
	}

	a1Vec := mat.NewVecDense(3, a1[:])
	var a2Vec mat.VecDense
	a2Vec.MulVec(&t, a1Vec)

	return conicToEllipse(a1[0], a1[1], a1[2], a2Vec.AtVec(0), a2Vec.AtVec(1), a2Vec.AtVec(2))
}

// conicToEllipse converts general conic coefficients
// A x^2 + B xy + C y^2 + D x + E y + F = 0 into centre/axes/orientation,
// enforcing Major >= Minor with a -pi/2 mod pi correction on swap.
func conicToEllipse(a, b, c, d, e, f float64) (EllipseFit, error) {
	disc := b*b - 4*a*c
	if disc >= 0 {
		return EllipseFit{}, fmt.Errorf("attribute.conicToEllipse: fitted conic is not an ellipse")
	}

	cx := (2*c*d - b*e) / disc
	cy := (2*a*e - b*d) / disc

	common := math.Sqrt((a-c)*(a-c) + b*b)
	numerator := 2 * (a*e*e + c*d*d + f*b*b - b*d*e - 4*a*c*f)

	axis1 := math.Sqrt(math.Abs(numerator * ((a + c) + common) / (disc * disc)))
	axis2 := math.Sqrt(math.Abs(numerator * ((a + c) - common) / (disc * disc)))

	var theta float64
	if b == 0 {
		if a < c {
			theta = 0
		} else {
			theta = math.Pi / 2
		}
	} else {
		theta = math.Atan2(c-a-common, b)
	}

	major, minor := axis1, axis2
	if minor > major {
		major, minor = minor, major
		theta -= math.Pi / 2
	}
	theta = math.Mod(theta, math.Pi)
	if theta < 0 {
		theta += math.Pi
	}

	return EllipseFit{CentreRow: cy, CentreCol: cx, Major: major, Minor: minor, OrientationRad: theta}, nil
}
