package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func velocityFrame() Frame {
	return Frame{
		Header: []string{"time", "universal_id", "u_displacement", "v_displacement"},
		Rows: [][]string{
			{"2026-01-01T00:00:00", "1", "0.000", "0.000"},
			{"2026-01-01T00:10:00", "1", "10.000", "0.000"},
			{"2026-01-01T00:20:00", "1", "20.000", "0.000"},
			{"2026-01-01T00:00:00", "2", "5.000", "5.000"},
		},
	}
}

func TestSmoothCentredWindowWithShortEdges(t *testing.T) {
	out, err := Smooth(velocityFrame(), "universal_id", []string{"u_displacement"}, 3)
	require.NoError(t, err)

	byTime := map[string]string{}
	uIdx := out.ColIndex("u_displacement")
	timeIdx := out.ColIndex("time")
	idIdx := out.ColIndex("universal_id")
	for _, row := range out.Rows {
		if row[idIdx] != "1" {
			continue
		}
		byTime[row[timeIdx]] = row[uIdx]
	}
	assert.Equal(t, "5.000", byTime["2026-01-01T00:00:00"])
	assert.Equal(t, "10.000", byTime["2026-01-01T00:10:00"])
	assert.Equal(t, "15.000", byTime["2026-01-01T00:20:00"])
}

func TestSmoothDoesNotMixSeparateObjects(t *testing.T) {
	out, err := Smooth(velocityFrame(), "universal_id", []string{"u_displacement"}, 3)
	require.NoError(t, err)

	idIdx := out.ColIndex("universal_id")
	uIdx := out.ColIndex("u_displacement")
	for _, row := range out.Rows {
		if row[idIdx] == "2" {
			assert.Equal(t, "5.000", row[uIdx])
		}
	}
}
