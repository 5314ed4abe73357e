package attribute

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ellipseLabels(rows, cols int, centreR, centreC, a, b float64) [][]int {
	labels := make([][]int, rows)
	for r := 0; r < rows; r++ {
		labels[r] = make([]int, cols)
		for c := 0; c < cols; c++ {
			dr := (float64(r) - centreR) / a
			dc := (float64(c) - centreC) / b
			if dr*dr+dc*dc <= 1 {
				labels[r][c] = 1
			}
		}
	}
	return labels
}

func TestFitEllipseMajorGreaterEqualMinor(t *testing.T) {
	labels := ellipseLabels(40, 60, 20, 30, 12, 20)
	fit, err := FitEllipse(labels, 1)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, fit.Major, fit.Minor)
	assert.InDelta(t, 20, fit.CentreRow, 2)
	assert.InDelta(t, 30, fit.CentreCol, 2)
}

func TestFitEllipseOrientationInRange(t *testing.T) {
	labels := ellipseLabels(40, 60, 20, 30, 8, 18)
	fit, err := FitEllipse(labels, 1)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, fit.OrientationRad, 0.0)
	assert.Less(t, fit.OrientationRad, math.Pi)
}

func TestFitEllipseEccentricityInRange(t *testing.T) {
	labels := ellipseLabels(40, 60, 20, 30, 10, 10)
	fit, err := FitEllipse(labels, 1)
	require.NoError(t, err)

	e := fit.Eccentricity()
	assert.GreaterOrEqual(t, e, 0.0)
	assert.Less(t, e, 1.0)
}

func TestFitEllipseTooFewPointsErrors(t *testing.T) {
	labels := [][]int{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	}
	_, err := FitEllipse(labels, 1)
	assert.Error(t, err)
}

func TestConvexHullTriangle(t *testing.T) {
	pts := []Point{{0, 0}, {0, 4}, {4, 0}, {1, 1}}
	hull := convexHull(pts)
	assert.Len(t, hull, 3)
}
