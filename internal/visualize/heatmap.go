package visualize

import (
	"errors"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/thuner-project/thuner/internal/trackerr"
)

var errEmptyCostMatrix = errors.New("cost matrix has zero rows or columns")

// costMatrixGrid adapts a *mat.Dense to plotter.GridXYZ so the
// matcher's raw assignment cost matrix can be rendered directly,
// row/column indices standing in for object identity on each axis.
type costMatrixGrid struct {
	cost *mat.Dense
}

func (g costMatrixGrid) Dims() (c, r int) {
	r, c = g.cost.Dims()
	return c, r
}

func (g costMatrixGrid) X(c int) float64 { return float64(c) }
func (g costMatrixGrid) Y(r int) float64 { return float64(r) }
func (g costMatrixGrid) Z(c, r int) float64 {
	return g.cost.At(r, c)
}

// CostMatrixHeatmap renders a matcher's pairwise assignment cost
// matrix as a static PNG heatmap, for inspecting why a particular
// match was (or wasn't) chosen. Grounded on the teacher's
// gridplotter.go plot.New/Save pattern, generalised from line plots to
// plotter.HeatMap per spec's gonum/plot mapping.
func CostMatrixHeatmap(cost *mat.Dense, outPath string) error {
	rows, cols := cost.Dims()
	if rows == 0 || cols == 0 {
		return trackerr.New(trackerr.KindNumericalEdge, "visualize.CostMatrixHeatmap", errEmptyCostMatrix)
	}

	p := plot.New()
	p.Title.Text = "Match Cost Matrix"
	p.X.Label.Text = "candidate"
	p.Y.Label.Text = "previous object"

	heatMap := plotter.NewHeatMap(costMatrixGrid{cost: cost}, moreland.ExtendedBlackBody())
	p.Add(heatMap)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return trackerr.New(trackerr.KindIO, "visualize.CostMatrixHeatmap", err)
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, outPath); err != nil {
		return trackerr.New(trackerr.KindIO, "visualize.CostMatrixHeatmap", err)
	}
	return nil
}
