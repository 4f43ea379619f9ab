package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ProbPlot holds the points of a normal probability plot together with the
// least-squares line fitted through them. A series drawn from a normal
// distribution plots close to the line; heavy tails bend away from it.
type ProbPlot struct {
	Theoretical []float64
	Ordered     []float64
	Slope       float64
	Intercept   float64
	R           float64
}

// NormalProbPlot orders the series against the standard-normal quantiles at
// the Filliben plotting positions and fits a line through the points.
func NormalProbPlot(values []float64) ProbPlot {
	n := len(values)
	if n == 0 {
		return ProbPlot{}
	}

	ordered := make([]float64, n)
	copy(ordered, values)
	sort.Float64s(ordered)

	positions := make([]float64, n)
	positions[n-1] = math.Pow(0.5, 1/float64(n))
	positions[0] = 1 - positions[n-1]
	for i := 1; i < n-1; i++ {
		positions[i] = (float64(i+1) - 0.3175) / (float64(n) + 0.365)
	}

	theoretical := make([]float64, n)
	for i, p := range positions {
		theoretical[i] = distuv.UnitNormal.Quantile(p)
	}

	intercept, slope := stat.LinearRegression(theoretical, ordered, nil, false)
	return ProbPlot{
		Theoretical: theoretical,
		Ordered:     ordered,
		Slope:       slope,
		Intercept:   intercept,
		R:           stat.Correlation(theoretical, ordered, nil),
	}
}
