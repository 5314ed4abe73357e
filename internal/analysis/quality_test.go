package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qualityFrame() Frame {
	return Frame{
		Header: []string{"time", "universal_id", "contained"},
		Rows: [][]string{
			{"2026-01-01T00:00:00", "1", "true"},
			{"2026-01-01T00:10:00", "1", "true"},
			{"2026-01-01T00:20:00", "1", "false"},
			{"2026-01-01T00:00:00", "2", "false"},
			{"2026-01-01T00:10:00", "2", "false"},
		},
	}
}

func TestContainedFractionPerObject(t *testing.T) {
	fractions, err := ContainedFraction(qualityFrame(), "universal_id")
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, fractions[1], 1e-9)
	assert.InDelta(t, 0.0, fractions[2], 1e-9)
}

func TestFilterByContainmentDropsBelowThreshold(t *testing.T) {
	core := Frame{
		Header: []string{"time", "universal_id", "u_displacement"},
		Rows: [][]string{
			{"2026-01-01T00:00:00", "1", "1.0"},
			{"2026-01-01T00:00:00", "2", "1.0"},
		},
	}
	fractions := map[int64]float64{1: 0.9, 2: 0.1}

	out, err := FilterByContainment(core, "universal_id", fractions, 0.5)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "1", out.Rows[0][1])
}
