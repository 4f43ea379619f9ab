package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

type AnalyzeConfig struct {
	RPCURL         string
	APIKey         string
	Blocks         uint64
	Percentiles    []int
	Recent         int
	ChartsOut      string
	NoCharts       bool
	JSONOut        string
	Seed           int64
	MaxConcurrency uint

	// Contamination is the expected outlier fraction of the detector. It is a
	// fixed prior with no flag; zero selects the built-in 1% default.
	Contamination float64
}

func (c AnalyzeConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("missing RPC endpoint URL")
	}
	if strings.Contains(c.RPCURL, "%s") && c.APIKey == "" {
		return fmt.Errorf("the RPC URL expects an API key; set FEESCOPE_API_KEY or the api-key config entry")
	}
	if c.Blocks == 0 {
		return fmt.Errorf("block count must be at least 1")
	}
	for i, p := range c.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("reward percentile %d is outside [0, 100]", p)
		}
		if i > 0 && p <= c.Percentiles[i-1] {
			return fmt.Errorf("reward percentiles must be strictly ascending")
		}
	}
	if c.Recent < 0 {
		return fmt.Errorf("cannot show a negative number of recent blocks")
	}
	if c.MaxConcurrency == 0 {
		return fmt.Errorf("max concurrency must be positive")
	}
	return nil
}

// LogValue implements slog.LogValuer. The API key is reduced to a presence
// bit so that debug logging of the configuration never exposes it.
func (c AnalyzeConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("rpc-url", c.RPCURL),
		slog.Bool("api-key-set", c.APIKey != ""),
		slog.Uint64("blocks", c.Blocks),
		slog.Any("percentiles", c.Percentiles),
		slog.Int("recent", c.Recent),
		slog.String("charts-out", c.ChartsOut),
		slog.Bool("no-charts", c.NoCharts),
		slog.String("json-out", c.JSONOut),
		slog.Int64("seed", c.Seed),
		slog.Uint64("max-concurrency", uint64(c.MaxConcurrency)),
	)
}

// Endpoint resolves the provider URL, substituting the API key when the URL
// carries a %s placeholder. Callers must not log the result.
func (c AnalyzeConfig) Endpoint() string {
	if strings.Contains(c.RPCURL, "%s") {
		return fmt.Sprintf(c.RPCURL, c.APIKey)
	}
	return c.RPCURL
}

// RewardPercentiles returns the percentiles in the float form the fee-history
// endpoint expects.
func (c AnalyzeConfig) RewardPercentiles() []float64 {
	if len(c.Percentiles) == 0 {
		return nil
	}
	percentiles := make([]float64, len(c.Percentiles))
	for i, p := range c.Percentiles {
		percentiles[i] = float64(p)
	}
	return percentiles
}

func LoadAnalyzeConfigFromCLI() AnalyzeConfig {
	return AnalyzeConfig{
		RPCURL:         viper.GetString("rpc-url"),
		APIKey:         viper.GetString("api-key"),
		Blocks:         viper.GetUint64("blocks"),
		Percentiles:    viper.GetIntSlice("percentiles"),
		Recent:         viper.GetInt("recent"),
		ChartsOut:      viper.GetString("charts-out"),
		NoCharts:       viper.GetBool("no-charts"),
		JSONOut:        viper.GetString("json-out"),
		Seed:           viper.GetInt64("seed"),
		MaxConcurrency: viper.GetUint("max-concurrency"),
	}
}
