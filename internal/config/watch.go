package config

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

type WatchConfig struct {
	AnalyzeConfig
	BlockTime        uint
	EnablePrometheus bool
	PrometheusAddr   string
}

func (c WatchConfig) Validate() error {
	if err := c.AnalyzeConfig.Validate(); err != nil {
		return err
	}
	if c.BlockTime == 0 {
		return fmt.Errorf("block time must be positive")
	}
	if c.EnablePrometheus && c.PrometheusAddr == "" {
		return fmt.Errorf("missing Prometheus listen address")
	}
	return nil
}

// LogValue implements slog.LogValuer, delegating the analyze fields to the
// embedded config's redacting implementation.
func (c WatchConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("analyze", c.AnalyzeConfig),
		slog.Uint64("block-time", uint64(c.BlockTime)),
		slog.Bool("enable-prometheus", c.EnablePrometheus),
		slog.String("prometheus-addr", c.PrometheusAddr),
	)
}

func LoadWatchConfigFromCLI() WatchConfig {
	return WatchConfig{
		AnalyzeConfig:    LoadAnalyzeConfigFromCLI(),
		BlockTime:        viper.GetUint("block-time"),
		EnablePrometheus: viper.GetBool("enable-prometheus"),
		PrometheusAddr:   viper.GetString("prometheus-addr"),
	}
}
