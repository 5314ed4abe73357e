package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuner-project/thuner/internal/detect"
	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/geo"
	"github.com/thuner-project/thuner/internal/options"
)

func testGrid(t *testing.T, n int) *geo.Grid {
	t.Helper()
	lat := make([]float32, n)
	lon := make([]float32, n)
	for i := range lat {
		lat[i] = float32(i)
		lon[i] = float32(i)
	}
	g, err := geo.NewGrid(options.GridOptions{Name: "geographic", Latitude: lat, Longitude: lon})
	require.NoError(t, err)
	return g
}

func uniformCellAreas(n int) [][]float32 {
	areas := make([][]float32, n)
	for r := range areas {
		areas[r] = make([]float32, n)
		for c := range areas[r] {
			areas[r][c] = 1
		}
	}
	return areas
}

func blobField(n int, r0, c0, size int, value float32) detect.Field3D {
	layer := make([][]float32, n)
	for r := range layer {
		layer[r] = make([]float32, n)
	}
	for r := r0; r < r0+size && r < n; r++ {
		for c := c0; c < c0+size && c < n; c++ {
			layer[r][c] = value
		}
	}
	return detect.Field3D{layer}
}

func cellTrackOptions() options.TrackOptions {
	threshold := float32(10)
	return options.TrackOptions{
		ObjectName:  "cell",
		Variable:    "reflectivity",
		DequeLength: 3,
		Detect: &options.DetectOptions{
			Method:        "threshold",
			Altitudes:     [2]float32{0, 1000},
			Threshold:     &threshold,
			FlattenMethod: "vertical_max",
			MinAreaKm2:    0,
		},
		Flow: options.FlowOptions{LocalFlowMarginKm: 50, GlobalFlowMarginKm: 100},
		Match: options.MatchOptions{
			MaxCost:              20,
			SplitOverlapFraction: 0.5,
		},
		Attribute: options.AttributeOptions{WriteIntervalHours: 24},
	}
}

func TestStepDetectedStationaryBlobKeepsUniversalID(t *testing.T) {
	n := 10
	g := testGrid(t, n)
	areas := uniformCellAreas(n)
	tr, err := NewTracks(options.Paths{Root: "/run", FS: fsutil.NewMemoryFileSystem()}, g, nil, []options.TrackOptions{cellTrackOptions()})
	require.NoError(t, err)

	var summaries []StepSummary
	tr.OnStep = func(s StepSummary) { summaries = append(summaries, s) }

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	field := blobField(n, 3, 3, 2, 25)

	for i := 0; i < 3; i++ {
		stepTime := start.Add(time.Duration(i) * 10 * time.Minute)
		err := tr.StepDetected("cell", stepTime, field, []float32{0}, areas, nil)
		require.NoError(t, err)
	}

	require.Len(t, summaries, 3)
	for _, s := range summaries {
		require.Len(t, s.Records, 1)
	}
	firstID := summaries[0].Records[0].UniversalID
	for _, s := range summaries[1:] {
		assert.Equal(t, firstID, s.Records[0].UniversalID)
	}
}

func TestStepDetectedUnknownObjectErrors(t *testing.T) {
	n := 6
	g := testGrid(t, n)
	tr, err := NewTracks(options.Paths{Root: "/run", FS: fsutil.NewMemoryFileSystem()}, g, nil, []options.TrackOptions{cellTrackOptions()})
	require.NoError(t, err)

	err = tr.StepDetected("missing", time.Now().UTC(), blobField(n, 0, 0, 1, 20), []float32{0}, uniformCellAreas(n), nil)
	assert.Error(t, err)
}

func TestStepGroupedRecordsParentEdgesForSpanningComponent(t *testing.T) {
	n := 4
	g := testGrid(t, n)
	areas := uniformCellAreas(n)

	groupOpts := options.TrackOptions{
		ObjectName:  "mcs",
		DequeLength: 2,
		Group:       &options.GroupOptions{MemberObjects: []string{"low", "high"}, MatchedObject: "low"},
		Flow:        options.FlowOptions{LocalFlowMarginKm: 50, GlobalFlowMarginKm: 100},
		Match:       options.MatchOptions{MaxCost: 20, SplitOverlapFraction: 0.5},
		Attribute:   options.AttributeOptions{WriteIntervalHours: 24},
	}
	tr, err := NewTracks(options.Paths{Root: "/run", FS: fsutil.NewMemoryFileSystem()}, g, nil, []options.TrackOptions{groupOpts})
	require.NoError(t, err)

	low := &detect.Mask{Labels: [][]int{
		{1, 1, 0, 0},
		{1, 1, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}, NumLabels: 1}
	high := &detect.Mask{Labels: [][]int{
		{2, 2, 0, 0},
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}, NumLabels: 1}

	stepTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	members := map[string]*detect.Mask{"low": low, "high": high}
	err = tr.StepGrouped("mcs", stepTime, members, areas, nil)
	require.NoError(t, err)

	st := tr.objects["mcs"]
	require.NotEmpty(t, st.graph.Edges)
	for _, e := range st.graph.Edges {
		assert.Equal(t, "group", e.Kind.String())
	}
}
