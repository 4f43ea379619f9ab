package analysis_test

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feescope/feescope/internal/analysis"
)

func TestNormalProbPlotPositions(t *testing.T) {
	plot := analysis.NormalProbPlot([]float64{50, 10, 10})

	require.Len(t, plot.Theoretical, 3)
	require.Len(t, plot.Ordered, 3)

	// Sample values arrive sorted.
	assert.Equal(t, []float64{10, 10, 50}, plot.Ordered)

	// Filliben positions are symmetric, so the quantiles mirror around zero.
	assert.InDelta(t, 0.0, plot.Theoretical[1], 1e-12)
	assert.InDelta(t, -plot.Theoretical[2], plot.Theoretical[0], 1e-12)
	assert.True(t, sort.Float64sAreSorted(plot.Theoretical))
}

func TestNormalProbPlotFitsLinearSample(t *testing.T) {
	// A sample that is an affine map of the plotting quantiles must fit its
	// own line exactly.
	base := analysis.NormalProbPlot([]float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3})
	values := make([]float64, len(base.Theoretical))
	for i, q := range base.Theoretical {
		values[i] = 5 + 2*q
	}

	plot := analysis.NormalProbPlot(values)
	assert.InDelta(t, 2.0, plot.Slope, 1e-9)
	assert.InDelta(t, 5.0, plot.Intercept, 1e-9)
	assert.InDelta(t, 1.0, plot.R, 1e-9)
}

func TestNormalProbPlotSingleValue(t *testing.T) {
	plot := analysis.NormalProbPlot([]float64{42})

	require.Len(t, plot.Theoretical, 1)
	assert.InDelta(t, 0.0, plot.Theoretical[0], 1e-12)
	assert.Equal(t, []float64{42.0}, plot.Ordered)
	assert.True(t, math.IsNaN(plot.Slope) || plot.Slope == 0)
}

func TestNormalProbPlotEmpty(t *testing.T) {
	plot := analysis.NormalProbPlot(nil)
	assert.Empty(t, plot.Theoretical)
	assert.Empty(t, plot.Ordered)
}
