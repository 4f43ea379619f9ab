package feescope

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validLogLevels = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	validLogLevelsStr = strings.Join(slices.Sorted(maps.Keys(validLogLevels)), "|")
)

var RootCmd = &cobra.Command{
	Use:   "feescope",
	Short: "Analyze Ethereum base fees",
	Long:  `feescope fetches a window of fee history from an Ethereum JSON-RPC endpoint and reports base-fee statistics, anomalies and charts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := viper.GetString("logLevel")
		if err := setLogLevel(logLevel); err != nil {
			return err
		}
		slog.Debug("Application started", "version", Version)
		return nil
	},
}

// setLogLevel sets the log level
func setLogLevel(logLevel string) error {
	level, exists := validLogLevels[logLevel]
	if !exists {
		return fmt.Errorf("invalid log level: %s. Valid log levels are: %s", logLevel, validLogLevelsStr)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func init() {
	RootCmd.PersistentFlags().StringP("logLevel", "l", "info", fmt.Sprintf("set log level (%s)", validLogLevelsStr))
	RootCmd.PersistentFlags().String("rpc-url", "https://eth-mainnet.g.alchemy.com/v2/%s", "JSON-RPC endpoint; a %s placeholder is replaced with the API key")
	RootCmd.PersistentFlags().Uint64P("blocks", "b", 1024, "Number of trailing blocks to analyze")
	RootCmd.PersistentFlags().IntSliceP("percentiles", "p", []int{25, 75}, "Reward percentiles to request, strictly ascending within [0, 100]")
	RootCmd.PersistentFlags().IntP("recent", "n", 5, "Number of recent blocks to print")
	RootCmd.PersistentFlags().String("charts-out", "feescope.png", "Chart output file")
	RootCmd.PersistentFlags().Bool("no-charts", false, "Skip chart rendering")
	RootCmd.PersistentFlags().String("json-out", "", "JSON export file")
	RootCmd.PersistentFlags().Int64("seed", 0, "Seed for the outlier detector (0 derives one from the clock)")
	RootCmd.PersistentFlags().UintP("max-concurrency", "c", 4, "Maximum fee-history request concurrency (advanced)")
	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		slog.Error("Failed to bind RootCmd flags", "error", err)
	}

	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.feescope")
	viper.AddConfigPath("/etc/feescope")

	viper.SetEnvPrefix("feescope")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	RootCmd.AddCommand(AnalyzeCmd)
	RootCmd.AddCommand(WatchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := viper.ReadInConfig(); err == nil {
		slog.Info("Using config file", "file", viper.ConfigFileUsed())
	} else {
		slog.Info("No config file found")
	}

	if err := RootCmd.Execute(); err != nil {
		slog.Error("An error occurred", "error", err)
		os.Exit(1)
	}
}
