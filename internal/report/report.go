// Package report renders an analyzed fee window for the terminal and as a
// JSON export. Nothing downstream consumes the output.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/feescope/feescope/internal/analysis"
)

// Write prints the recent-blocks table, the window statistics, the
// fee/utilization correlation and the anomalous block numbers.
func Write(w io.Writer, result *analysis.Result, recent int) {
	writeRecent(w, result, recent)
	writeStats(w, result)
	fmt.Fprintf(w, "Correlation (base fee vs gas used ratio): %s\n", formatFloat(result.Correlation))
	writeAnomalies(w, result)
}

func writeRecent(w io.Writer, result *analysis.Result, recent int) {
	if recent <= 0 {
		return
	}
	records := result.Records
	if len(records) > recent {
		records = records[len(records)-recent:]
	}

	fmt.Fprintf(w, "Most recent blocks (%d of %d):\n", len(records), len(result.Records))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Base fee (Gwei)", "Gas used ratio", "Reward (Gwei)", "Anomaly"})
	for _, record := range records {
		anomaly := "no"
		if record.Anomaly {
			anomaly = "yes"
		}
		table.Append([]string{
			strconv.FormatUint(record.BlockNumber, 10),
			strconv.FormatInt(record.BaseFeePerGas, 10),
			strconv.FormatFloat(record.GasUsedRatio, 'f', 4, 64),
			formatRewards(record.Reward),
			anomaly,
		})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writeStats(w io.Writer, result *analysis.Result) {
	fmt.Fprintln(w, "Fee window statistics:")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statistic", "Base fee (Gwei)", "Gas used ratio"})

	rows := []struct {
		label    string
		baseFee  string
		gasRatio string
	}{
		{"count", strconv.Itoa(result.BaseFee.Count), strconv.Itoa(result.GasUsedRatio.Count)},
		{"mean", formatFloat(result.BaseFee.Mean), formatFloat(result.GasUsedRatio.Mean)},
		{"std", formatFloat(result.BaseFee.Std), formatFloat(result.GasUsedRatio.Std)},
		{"min", formatFloat(result.BaseFee.Min), formatFloat(result.GasUsedRatio.Min)},
		{"25%", formatFloat(result.BaseFee.P25), formatFloat(result.GasUsedRatio.P25)},
		{"50%", formatFloat(result.BaseFee.Median), formatFloat(result.GasUsedRatio.Median)},
		{"75%", formatFloat(result.BaseFee.P75), formatFloat(result.GasUsedRatio.P75)},
		{"max", formatFloat(result.BaseFee.Max), formatFloat(result.GasUsedRatio.Max)},
		{"skew", formatFloat(result.BaseFee.Skewness), formatFloat(result.GasUsedRatio.Skewness)},
		{"kurtosis", formatFloat(result.BaseFee.ExcessKurtosis), formatFloat(result.GasUsedRatio.ExcessKurtosis)},
	}
	for _, row := range rows {
		table.Append([]string{row.label, row.baseFee, row.gasRatio})
	}
	table.Render()
	fmt.Fprintln(w)
}

func writeAnomalies(w io.Writer, result *analysis.Result) {
	if len(result.AnomalousBlocks) == 0 {
		fmt.Fprintln(w, "No anomalous blocks detected")
		return
	}
	blocks := make([]string, len(result.AnomalousBlocks))
	for i, block := range result.AnomalousBlocks {
		blocks[i] = strconv.FormatUint(block, 10)
	}
	fmt.Fprintf(w, "Anomalous blocks (%d): %s\n", len(blocks), strings.Join(blocks, ", "))
}

func formatRewards(rewards []int64) string {
	if len(rewards) == 0 {
		return "-"
	}
	parts := make([]string, len(rewards))
	for i, reward := range rewards {
		parts[i] = strconv.FormatInt(reward, 10)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
