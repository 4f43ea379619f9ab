package feescope

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/feescope/feescope/internal/analysis"
	"github.com/feescope/feescope/internal/charts"
	"github.com/feescope/feescope/internal/client"
	"github.com/feescope/feescope/internal/config"
	"github.com/feescope/feescope/internal/metrics"
	"github.com/feescope/feescope/internal/pipeline"
	"github.com/feescope/feescope/internal/report"
)

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Args:  cobra.NoArgs,
	Short: "Continuously analyze the trailing fee window",
	Long:  `Poll the chain head and re-run the fee analysis whenever new blocks arrive, optionally exposing the latest results as Prometheus gauges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		watchConfig := config.LoadWatchConfigFromCLI()
		if err := watchConfig.Validate(); err != nil {
			return fmt.Errorf("invalid watch configuration: %w", err)
		}
		slog.Debug("Command-line arguments", "config", watchConfig)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		handleInterrupt(cancel)

		ethClient, err := client.Dial(ctx, watchConfig.Endpoint())
		if err != nil {
			return fmt.Errorf("failed to initialize the RPC client: %w", err)
		}
		defer ethClient.Close()

		recorder := metrics.NewRecorder()
		if watchConfig.EnablePrometheus {
			server, err := metrics.CreateMetricsServer(recorder, watchConfig.PrometheusAddr)
			if err != nil {
				return fmt.Errorf("failed to start the metrics server: %w", err)
			}
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Failed to shut down the metrics server", "error", err)
				}
			}()
		}

		return pipeline.Watch(ctx, ethClient, watchConfig, func(result *analysis.Result, head uint64) error {
			recorder.Observe(result, head)
			slog.Info("Analyzed fee window",
				"head", head,
				"blocks", len(result.Records),
				"meanBaseFeeGwei", result.BaseFee.Mean,
				"maxBaseFeeGwei", result.BaseFee.Max,
				"anomalies", len(result.AnomalousBlocks),
			)

			if watchConfig.JSONOut != "" {
				if err := report.WriteJSONFile(watchConfig.JSONOut, result); err != nil {
					return err
				}
			}
			if !watchConfig.NoCharts {
				if err := charts.Render(watchConfig.ChartsOut, result); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	WatchCmd.PersistentFlags().UintP("block-time", "t", 12, "Block time in seconds")
	WatchCmd.PersistentFlags().Bool("enable-prometheus", false, "Enable Prometheus metrics server")
	WatchCmd.PersistentFlags().String("prometheus-addr", "0.0.0.0:2112", "Address and port of the Prometheus metrics server")
	if err := viper.BindPFlags(WatchCmd.PersistentFlags()); err != nil {
		slog.Error("Failed to bind WatchCmd flags", "error", err)
	}
}
