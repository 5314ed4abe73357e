package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadrantCardinalDirections(t *testing.T) {
	assert.Equal(t, "N", Quadrant(0, 10))
	assert.Equal(t, "E", Quadrant(10, 0))
	assert.Equal(t, "S", Quadrant(0, -10))
	assert.Equal(t, "W", Quadrant(-10, 0))
	assert.Equal(t, "", Quadrant(0, 0))
}

func TestClassifyPropagationAppendsColumn(t *testing.T) {
	f := Frame{
		Header: []string{"time", "universal_id", "u_displacement", "v_displacement"},
		Rows: [][]string{
			{"2026-01-01T00:00:00", "1", "0", "10"},
			{"2026-01-01T00:10:00", "1", "10", "0"},
		},
	}
	out, err := ClassifyPropagation(f)
	require.NoError(t, err)
	idx := out.ColIndex("propagation")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "N", out.Rows[0][idx])
	assert.Equal(t, "E", out.Rows[1][idx])
}
