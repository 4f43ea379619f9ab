package pipeline_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feescope/feescope/internal/analysis"
	"github.com/feescope/feescope/internal/client"
	"github.com/feescope/feescope/internal/config"
	"github.com/feescope/feescope/internal/pipeline"
	"github.com/feescope/feescope/internal/testutil"
)

func testConfig(blocks uint64) config.AnalyzeConfig {
	return config.AnalyzeConfig{
		RPCURL:         "unused-by-run",
		Blocks:         blocks,
		Percentiles:    []int{25, 75},
		Recent:         5,
		Seed:           1,
		MaxConcurrency: 4,
	}
}

func dial(t *testing.T, url string) *client.EthClient {
	t.Helper()
	c, err := client.Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestRun(t *testing.T) {
	chain := testutil.NewMockChain(5000)
	server := chain.Serve(t)
	c := dial(t, server.URL)

	result, err := pipeline.Run(context.Background(), c, testConfig(16))
	require.NoError(t, err)

	require.Len(t, result.Records, 16)
	for i, record := range result.Records {
		assert.Equal(t, uint64(4985+i), record.BlockNumber)
		assert.Len(t, record.Reward, 2)
		assert.InDelta(t, 0.5, record.GasUsedRatio, 1e-12)
	}
	assert.Equal(t, 16, result.BaseFee.Count)
	assert.NotZero(t, result.BaseFee.Mean)
}

func TestRunFlagsOutlierBlock(t *testing.T) {
	// Three blocks where the last one carries a five-fold base fee and a
	// nearly full block: the pipeline must surface it as the only anomaly.
	chain := testutil.NewMockChain(102)
	chain.BaseFeeAt = func(block uint64) *big.Int {
		if block >= 102 {
			return big.NewInt(50_000_000_000)
		}
		return big.NewInt(10_000_000_000)
	}
	chain.GasRatioAt = func(block uint64) float64 {
		if block == 102 {
			return 0.99
		}
		return 0.5
	}
	chain.RewardAt = func(block uint64, percentile float64) *big.Int {
		if percentile == 25 {
			return big.NewInt(1_000_000_000)
		}
		return big.NewInt(2_000_000_000)
	}
	server := chain.Serve(t)
	c := dial(t, server.URL)

	cfg := testConfig(3)
	cfg.Contamination = 1.0 / 3.0

	result, err := pipeline.Run(context.Background(), c, cfg)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	for i, record := range result.Records {
		assert.Equal(t, uint64(100+i), record.BlockNumber)
		assert.Equal(t, []int64{1, 2}, record.Reward)
	}
	assert.Equal(t, int64(10), result.Records[0].BaseFeePerGas)
	assert.Equal(t, int64(10), result.Records[1].BaseFeePerGas)
	assert.Equal(t, int64(50), result.Records[2].BaseFeePerGas)

	assert.Equal(t, []uint64{102}, result.AnomalousBlocks)
	assert.True(t, result.Records[2].Anomaly)
}

func TestRunFetchFailure(t *testing.T) {
	chain := testutil.NewMockChain(5000)
	server := chain.Serve(t)
	c := dial(t, server.URL)

	chain.FailFeeHistory("no fee history for you")

	_, err := pipeline.Run(context.Background(), c, testConfig(16))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build the fee dataset")
}

func TestRunInvalidContamination(t *testing.T) {
	chain := testutil.NewMockChain(5000)
	server := chain.Serve(t)
	c := dial(t, server.URL)

	cfg := testConfig(16)
	cfg.Contamination = 0.9

	_, err := pipeline.Run(context.Background(), c, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contamination")
}

func TestWatch(t *testing.T) {
	chain := testutil.NewMockChain(200)
	server := chain.Serve(t)
	c := dial(t, server.URL)

	cfg := config.WatchConfig{
		AnalyzeConfig: testConfig(8),
		BlockTime:     1,
	}

	errStop := errors.New("stop watching")
	var heads []uint64
	var windows []int

	err := pipeline.Watch(context.Background(), c, cfg, func(result *analysis.Result, head uint64) error {
		heads = append(heads, head)
		windows = append(windows, len(result.Records))
		if len(heads) == 1 {
			chain.SetHead(205)
			return nil
		}
		return errStop
	})

	require.ErrorIs(t, err, errStop)
	assert.Equal(t, []uint64{200, 205}, heads)
	assert.Equal(t, []int{8, 8}, windows)
}

func TestWatchStopsOnCancel(t *testing.T) {
	chain := testutil.NewMockChain(300)
	server := chain.Serve(t)
	c := dial(t, server.URL)

	cfg := config.WatchConfig{
		AnalyzeConfig: testConfig(4),
		BlockTime:     1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	err := pipeline.Watch(ctx, c, cfg, func(result *analysis.Result, head uint64) error {
		cancel()
		return nil
	})

	assert.NoError(t, err)
}

func TestWatchSurfacesRunFailure(t *testing.T) {
	chain := testutil.NewMockChain(400)
	server := chain.Serve(t)
	c := dial(t, server.URL)

	cfg := config.WatchConfig{
		AnalyzeConfig: testConfig(4),
		BlockTime:     1,
	}

	err := pipeline.Watch(context.Background(), c, cfg, func(result *analysis.Result, head uint64) error {
		chain.FailFeeHistory("provider meltdown")
		chain.SetHead(405)
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider meltdown")
}
