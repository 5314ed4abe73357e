package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCostMatrixHeatmapWritesPNG(t *testing.T) {
	cost := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	outPath := filepath.Join(t.TempDir(), "cost.png")

	require.NoError(t, CostMatrixHeatmap(cost, outPath))

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCostMatrixHeatmapRejectsEmptyMatrix(t *testing.T) {
	var cost mat.Dense
	err := CostMatrixHeatmap(&cost, filepath.Join(t.TempDir(), "cost.png"))
	assert.Error(t, err)
}
