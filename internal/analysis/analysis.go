// Package analysis computes the dataset-level statistics reported for a fee
// window: descriptive summaries, correlation, distribution shape, and the
// anomaly labels produced by the isolation forest.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/feescope/feescope/internal/anomaly"
	"github.com/feescope/feescope/internal/models"
)

// Options tunes the outlier model. Zero values select the anomaly package
// defaults (100 trees, 256-point subsamples, 1% contamination, clock seed).
type Options struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

// Summary holds the descriptive statistics of one numeric series.
type Summary struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	P25    float64
	Median float64
	P75    float64
	Max    float64
}

// ColumnStats couples a summary with the shape estimators of the series.
type ColumnStats struct {
	Summary
	Skewness       float64
	ExcessKurtosis float64
}

// Result is an analyzed fee window: the records with anomaly flags applied
// plus the statistics the presenter reports.
type Result struct {
	Records         []models.BlockFeeRecord
	BaseFee         ColumnStats
	GasUsedRatio    ColumnStats
	Correlation     float64
	Scores          []float64
	AnomalousBlocks []uint64
}

// Analyze computes the statistics of a fee window and labels anomalous blocks
// by isolation-forest score over the base-fee series. The input records are
// not modified.
func Analyze(records []models.BlockFeeRecord, opts Options) (*Result, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to analyze")
	}

	baseFee := make([]float64, len(records))
	ratio := make([]float64, len(records))
	for i, record := range records {
		baseFee[i] = float64(record.BaseFeePerGas)
		ratio[i] = record.GasUsedRatio
	}

	forest, err := anomaly.New(anomaly.Options{
		Trees:         opts.Trees,
		SampleSize:    opts.SampleSize,
		Contamination: opts.Contamination,
		Seed:          opts.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure outlier model: %w", err)
	}
	labels, scores, err := forest.FitPredict(baseFee)
	if err != nil {
		return nil, fmt.Errorf("failed to run outlier detection: %w", err)
	}

	labeled := make([]models.BlockFeeRecord, len(records))
	copy(labeled, records)
	var anomalous []uint64
	for i := range labeled {
		labeled[i].Anomaly = labels[i]
		if labels[i] {
			anomalous = append(anomalous, labeled[i].BlockNumber)
		}
	}

	return &Result{
		Records:         labeled,
		BaseFee:         columnStats(baseFee),
		GasUsedRatio:    columnStats(ratio),
		Correlation:     stat.Correlation(baseFee, ratio, nil),
		Scores:          scores,
		AnomalousBlocks: anomalous,
	}, nil
}

// Describe summarizes a series the way a dataframe describe() call would:
// count, mean, sample standard deviation, minimum, quartiles, maximum.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Std:    stat.StdDev(values, nil),
		Min:    sorted[0],
		P25:    stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median: stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		P75:    stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

func columnStats(values []float64) ColumnStats {
	return ColumnStats{
		Summary:        Describe(values),
		Skewness:       stat.Skew(values, nil),
		ExcessKurtosis: stat.ExKurtosis(values, nil),
	}
}
