package feescope

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feescope/feescope/internal/charts"
	"github.com/feescope/feescope/internal/client"
	"github.com/feescope/feescope/internal/config"
	"github.com/feescope/feescope/internal/pipeline"
	"github.com/feescope/feescope/internal/report"
)

var AnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Args:  cobra.NoArgs,
	Short: "Analyze a trailing window of base fees",
	Long:  `Fetch fee history for the most recent blocks, compute descriptive statistics over the base fees, flag anomalous blocks and render charts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzeConfig := config.LoadAnalyzeConfigFromCLI()
		if err := analyzeConfig.Validate(); err != nil {
			return fmt.Errorf("invalid analyze configuration: %w", err)
		}
		slog.Debug("Command-line arguments", "config", analyzeConfig)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		handleInterrupt(cancel)

		ethClient, err := client.Dial(ctx, analyzeConfig.Endpoint())
		if err != nil {
			return fmt.Errorf("failed to initialize the RPC client: %w", err)
		}
		defer ethClient.Close()

		result, err := pipeline.Run(ctx, ethClient, analyzeConfig)
		if err != nil {
			return err
		}

		report.Write(os.Stdout, result, analyzeConfig.Recent)

		if analyzeConfig.JSONOut != "" {
			if err := report.WriteJSONFile(analyzeConfig.JSONOut, result); err != nil {
				return err
			}
			slog.Info("Wrote JSON export", "file", analyzeConfig.JSONOut)
		}

		if !analyzeConfig.NoCharts {
			if err := charts.Render(analyzeConfig.ChartsOut, result); err != nil {
				return err
			}
			slog.Info("Wrote charts", "file", analyzeConfig.ChartsOut)
		}

		return nil
	},
}

// handleInterrupt handles interrupt signals for graceful shutdown.
func handleInterrupt(cancel context.CancelFunc) {
	// Handle interrupt signals for graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		slog.Info("Received interrupt signal, shutting down...")
		cancel()
	}()
}
