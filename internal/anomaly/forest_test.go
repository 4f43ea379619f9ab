package anomaly_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feescope/feescope/internal/anomaly"
)

func TestNewRejectsInvalidOptions(t *testing.T) {
	cases := []struct {
		name string
		opts anomaly.Options
	}{
		{"negative trees", anomaly.Options{Trees: -1}},
		{"negative sample size", anomaly.Options{SampleSize: -10}},
		{"negative contamination", anomaly.Options{Contamination: -0.1}},
		{"contamination above half", anomaly.Options{Contamination: 0.6}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := anomaly.New(tc.opts)
			assert.Error(t, err)
		})
	}
}

func TestFitRejectsEmptySeries(t *testing.T) {
	forest, err := anomaly.New(anomaly.Options{Seed: 1})
	require.NoError(t, err)

	assert.Error(t, forest.Fit(nil))

	_, _, err = forest.FitPredict([]float64{})
	assert.Error(t, err)
}

func TestFitPredictFlagsSpikes(t *testing.T) {
	// 1016 clustered values plus 8 spikes appended at the end.
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 0, 1024)
	for i := 0; i < 1016; i++ {
		values = append(values, 30+rng.NormFloat64()*5)
	}
	for i := 0; i < 8; i++ {
		values = append(values, 300+float64(i)*25)
	}

	forest, err := anomaly.New(anomaly.Options{Seed: 42})
	require.NoError(t, err)

	labels, scores, err := forest.FitPredict(values)
	require.NoError(t, err)
	require.Len(t, labels, 1024)
	require.Len(t, scores, 1024)

	for _, s := range scores {
		assert.Greater(t, s, 0.0)
		assert.Less(t, s, 1.0)
	}

	flagged := 0
	for _, label := range labels {
		if label {
			flagged++
		}
	}
	assert.GreaterOrEqual(t, flagged, 8, "every spike should be flagged")
	assert.LessOrEqual(t, flagged, 30, "a 1%% prior should flag about 10 of 1024")

	for i := 1016; i < 1024; i++ {
		assert.True(t, labels[i], "spike at index %d should be flagged", i)
	}
}

func TestFitPredictConstantSeriesFlagsNothing(t *testing.T) {
	values := make([]float64, 1024)
	for i := range values {
		values[i] = 17
	}

	forest, err := anomaly.New(anomaly.Options{Seed: 3})
	require.NoError(t, err)

	labels, scores, err := forest.FitPredict(values)
	require.NoError(t, err)

	for i, label := range labels {
		assert.False(t, label)
		assert.Equal(t, 0.5, scores[i], "an unsplittable series scores neutrally")
	}
}

func TestFitPredictIsDeterministicForSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 500)
	for i := range values {
		values[i] = rng.ExpFloat64() * 20
	}

	run := func() ([]bool, []float64) {
		forest, err := anomaly.New(anomaly.Options{Seed: 99})
		require.NoError(t, err)
		labels, scores, err := forest.FitPredict(values)
		require.NoError(t, err)
		return labels, scores
	}

	labels1, scores1 := run()
	labels2, scores2 := run()
	assert.Equal(t, labels1, labels2)
	assert.Equal(t, scores1, scores2)
}

func TestFitPredictIsolatesObviousOutlier(t *testing.T) {
	// One high value among equals: with a third of the data allowed to be
	// outliers, only the high value may be flagged.
	values := []float64{10, 10, 50}

	forest, err := anomaly.New(anomaly.Options{Contamination: 1.0 / 3.0, Seed: 1})
	require.NoError(t, err)

	labels, scores, err := forest.FitPredict(values)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false, true}, labels)
	assert.Equal(t, scores[0], scores[1])
	assert.Greater(t, scores[2], scores[0])
}
