// Package visualize provides optional, non-core diagnostic renderers
// over a completed run's output: object centre trajectories as an
// interactive HTML line chart, and a matcher cost matrix as a static
// PNG heatmap. Neither is on the tracking loop's hot path; both are
// best-effort debugging aids, not a plotting-parity target.
package visualize

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/thuner-project/thuner/internal/analysis"
	"github.com/thuner-project/thuner/internal/fsutil"
	"github.com/thuner-project/thuner/internal/trackerr"
)

// TrackPaths renders each tracked object's centre trajectory
// (longitude, latitude) as an HTML line chart, one series per
// universal id, written to outPath. Grounded on the teacher's
// monitor.handleTracksChart/handleClustersChart scatter-series
// pattern in echarts_handlers.go, generalised from a scatter per
// snapshot to a line per track.
func TrackPaths(fsys fsutil.FileSystem, coreCSVPath, outPath string) error {
	f, err := analysis.ReadFrame(fsys, coreCSVPath)
	if err != nil {
		return err
	}

	ids, err := f.Int64Column("universal_id")
	if err != nil {
		return err
	}
	lons, err := f.Float64Column("longitude")
	if err != nil {
		return err
	}
	lats, err := f.Float64Column("latitude")
	if err != nil {
		return err
	}

	byID := map[int64][]opts.LineData{}
	for i, id := range ids {
		byID[id] = append(byID[id], opts.LineData{Value: []interface{}{lons[i], lats[i]}})
	}

	var sortedIDs []int64
	for id := range byID {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Slice(sortedIDs, func(i, j int) bool { return sortedIDs[i] < sortedIDs[j] })

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Object Track Paths", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Object Track Paths", Subtitle: "centre trajectories, one line per universal id"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "latitude", NameLocation: "middle", NameGap: 30}),
	)

	for _, id := range sortedIDs {
		line.AddSeries(formatID(id), byID[id], charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return trackerr.New(trackerr.KindIO, "visualize.TrackPaths", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return trackerr.New(trackerr.KindIO, "visualize.TrackPaths", err)
	}
	defer out.Close()
	if err := line.Render(out); err != nil {
		return trackerr.New(trackerr.KindIO, "visualize.TrackPaths", err)
	}
	return nil
}

func formatID(id int64) string {
	return "id_" + strconv.FormatInt(id, 10)
}
