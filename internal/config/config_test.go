package config_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feescope/feescope/internal/config"
)

func validAnalyzeConfig() config.AnalyzeConfig {
	return config.AnalyzeConfig{
		RPCURL:         "https://eth.example.com/v2/%s",
		APIKey:         "test-key",
		Blocks:         1024,
		Percentiles:    []int{25, 75},
		Recent:         5,
		MaxConcurrency: 4,
	}
}

func TestAnalyzeConfigValidate(t *testing.T) {
	assert.NoError(t, validAnalyzeConfig().Validate())

	cases := []struct {
		name    string
		mutate  func(*config.AnalyzeConfig)
		wantErr string
	}{
		{
			"missing URL",
			func(c *config.AnalyzeConfig) { c.RPCURL = "" },
			"missing RPC endpoint URL",
		},
		{
			"missing API key",
			func(c *config.AnalyzeConfig) { c.APIKey = "" },
			"expects an API key",
		},
		{
			"zero blocks",
			func(c *config.AnalyzeConfig) { c.Blocks = 0 },
			"block count",
		},
		{
			"percentile out of range",
			func(c *config.AnalyzeConfig) { c.Percentiles = []int{25, 101} },
			"outside [0, 100]",
		},
		{
			"unsorted percentiles",
			func(c *config.AnalyzeConfig) { c.Percentiles = []int{75, 25} },
			"strictly ascending",
		},
		{
			"duplicate percentiles",
			func(c *config.AnalyzeConfig) { c.Percentiles = []int{50, 50} },
			"strictly ascending",
		},
		{
			"negative recent",
			func(c *config.AnalyzeConfig) { c.Recent = -1 },
			"recent",
		},
		{
			"zero concurrency",
			func(c *config.AnalyzeConfig) { c.MaxConcurrency = 0 },
			"max concurrency",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validAnalyzeConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("plain URL needs no key", func(t *testing.T) {
		cfg := validAnalyzeConfig()
		cfg.RPCURL = "http://127.0.0.1:8545"
		cfg.APIKey = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestAnalyzeConfigEndpoint(t *testing.T) {
	cfg := validAnalyzeConfig()
	assert.Equal(t, "https://eth.example.com/v2/test-key", cfg.Endpoint())

	cfg.RPCURL = "http://127.0.0.1:8545"
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Endpoint())
}

func TestAnalyzeConfigRewardPercentiles(t *testing.T) {
	cfg := validAnalyzeConfig()
	assert.Equal(t, []float64{25, 75}, cfg.RewardPercentiles())

	cfg.Percentiles = nil
	assert.Nil(t, cfg.RewardPercentiles())
}

func TestWatchConfigValidate(t *testing.T) {
	valid := config.WatchConfig{
		AnalyzeConfig:    validAnalyzeConfig(),
		BlockTime:        12,
		EnablePrometheus: true,
		PrometheusAddr:   "0.0.0.0:2112",
	}
	assert.NoError(t, valid.Validate())

	t.Run("inherits analyze validation", func(t *testing.T) {
		cfg := valid
		cfg.Blocks = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero block time", func(t *testing.T) {
		cfg := valid
		cfg.BlockTime = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("prometheus without address", func(t *testing.T) {
		cfg := valid
		cfg.PrometheusAddr = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigLoggingRedactsAPIKey(t *testing.T) {
	cfg := config.WatchConfig{
		AnalyzeConfig: validAnalyzeConfig(),
		BlockTime:     12,
	}
	cfg.APIKey = "hunter2-do-not-log"

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("Command-line arguments", "config", cfg)

	logged := buf.String()
	assert.NotContains(t, logged, "hunter2-do-not-log")
	assert.Contains(t, logged, `"api-key-set":true`)
	assert.Contains(t, logged, `"block-time":12`)
	assert.Contains(t, logged, "https://eth.example.com/v2/%s")
}

func TestLoadAnalyzeConfigFromCLI(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("rpc-url", "https://eth.example.com/v2/%s")
	viper.Set("api-key", "secret")
	viper.Set("blocks", 256)
	viper.Set("percentiles", []int{10, 90})
	viper.Set("recent", 7)
	viper.Set("charts-out", "out.png")
	viper.Set("no-charts", true)
	viper.Set("json-out", "out.json")
	viper.Set("seed", 42)
	viper.Set("max-concurrency", 2)

	cfg := config.LoadAnalyzeConfigFromCLI()
	assert.Equal(t, "https://eth.example.com/v2/%s", cfg.RPCURL)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, uint64(256), cfg.Blocks)
	assert.Equal(t, []int{10, 90}, cfg.Percentiles)
	assert.Equal(t, 7, cfg.Recent)
	assert.Equal(t, "out.png", cfg.ChartsOut)
	assert.True(t, cfg.NoCharts)
	assert.Equal(t, "out.json", cfg.JSONOut)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, uint(2), cfg.MaxConcurrency)
}
