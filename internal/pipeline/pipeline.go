// Package pipeline wires the fee-history stages together: fetch, format,
// analyze. Presentation belongs to the caller.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feescope/feescope/internal/analysis"
	"github.com/feescope/feescope/internal/client"
	"github.com/feescope/feescope/internal/config"
	"github.com/feescope/feescope/internal/models"
)

// Run executes one fetch → format → analyze pass over the trailing window and
// returns the analyzed dataset.
func Run(ctx context.Context, c *client.EthClient, cfg config.AnalyzeConfig) (*analysis.Result, error) {
	history, err := c.FeeHistory(ctx, cfg.Blocks, cfg.RewardPercentiles(), cfg.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to build the fee dataset: %w", err)
	}

	records := models.FormatFeeHistory(history)
	slog.Debug("Formatted fee records", "blocks", len(records), "oldestBlock", history.OldestBlock)

	result, err := analysis.Analyze(records, analysis.Options{
		Contamination: cfg.Contamination,
		Seed:          cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze the fee window: %w", err)
	}

	slog.Debug("Analyzed fee window",
		"blocks", len(result.Records),
		"anomalies", len(result.AnomalousBlocks))
	return result, nil
}
