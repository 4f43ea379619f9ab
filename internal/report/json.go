package report

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/feescope/feescope/internal/analysis"
	"github.com/feescope/feescope/internal/models"
)

// jsonFloat marshals non-finite statistics as null, which plain float64
// fields cannot.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type summaryExport struct {
	Count          int       `json:"count"`
	Mean           jsonFloat `json:"mean"`
	Std            jsonFloat `json:"std"`
	Min            jsonFloat `json:"min"`
	P25            jsonFloat `json:"p25"`
	Median         jsonFloat `json:"median"`
	P75            jsonFloat `json:"p75"`
	Max            jsonFloat `json:"max"`
	Skewness       jsonFloat `json:"skewness"`
	ExcessKurtosis jsonFloat `json:"excessKurtosis"`
}

type windowExport struct {
	Records         []models.BlockFeeRecord `json:"records"`
	BaseFee         summaryExport           `json:"baseFee"`
	GasUsedRatio    summaryExport           `json:"gasUsedRatio"`
	Correlation     jsonFloat               `json:"correlation"`
	AnomalousBlocks []uint64                `json:"anomalousBlocks"`
}

func exportColumn(stats analysis.ColumnStats) summaryExport {
	return summaryExport{
		Count:          stats.Count,
		Mean:           jsonFloat(stats.Mean),
		Std:            jsonFloat(stats.Std),
		Min:            jsonFloat(stats.Min),
		P25:            jsonFloat(stats.P25),
		Median:         jsonFloat(stats.Median),
		P75:            jsonFloat(stats.P75),
		Max:            jsonFloat(stats.Max),
		Skewness:       jsonFloat(stats.Skewness),
		ExcessKurtosis: jsonFloat(stats.ExcessKurtosis),
	}
}

// WriteJSON writes the analyzed window as indented JSON.
func WriteJSON(w io.Writer, result *analysis.Result) error {
	export := windowExport{
		Records:         result.Records,
		BaseFee:         exportColumn(result.BaseFee),
		GasUsedRatio:    exportColumn(result.GasUsedRatio),
		Correlation:     jsonFloat(result.Correlation),
		AnomalousBlocks: result.AnomalousBlocks,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return errors.WithMessage(err, "failed to encode the fee window")
	}
	return nil
}

// WriteJSONFile exports the analyzed window to the given path.
func WriteJSONFile(path string, result *analysis.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithMessage(err, "failed to create the JSON export")
	}
	defer f.Close()

	return WriteJSON(f, result)
}
