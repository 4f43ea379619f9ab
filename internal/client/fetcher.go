package client

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/feescope/feescope/internal/models"
)

// MaxBlocksPerCall is the eth_feeHistory window cap enforced by public node
// providers. Wider windows are fetched in chunks of this size.
const MaxBlocksPerCall = 1024

// FeeHistory fetches the fee history of the trailing `blocks` blocks ending at
// the chain head, with per-block reward percentiles. Windows within the
// per-call cap are fetched in one request against the "latest" tag; wider
// windows are resolved against the current head and fetched as concurrent
// chunks, stitched back together in ascending block order.
func (c *EthClient) FeeHistory(ctx context.Context, blocks uint64, percentiles []float64, maxConcurrency uint) (*models.FeeHistory, error) {
	if blocks == 0 {
		return nil, errors.New("block count must be positive")
	}
	if blocks <= MaxBlocksPerCall {
		slog.Debug("Fetching fee history", "blocks", blocks, "newest", "latest")
		return c.feeHistoryWindow(ctx, blocks, nil, percentiles)
	}
	return c.feeHistoryChunked(ctx, blocks, percentiles, maxConcurrency)
}

// feeHistoryWindow issues a single eth_feeHistory call. A nil last block
// targets the "latest" tag. The reply is validated before anything downstream
// may assume it is well-formed.
func (c *EthClient) feeHistoryWindow(ctx context.Context, blocks uint64, last *big.Int, percentiles []float64) (*models.FeeHistory, error) {
	reply, err := c.eth.FeeHistory(ctx, blocks, last, percentiles)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to fetch fee history")
	}
	if reply.OldestBlock == nil {
		return nil, errors.New("fee history reply is missing the oldest block")
	}

	history := &models.FeeHistory{
		OldestBlock:  reply.OldestBlock.Uint64(),
		Reward:       reply.Reward,
		BaseFee:      reply.BaseFee,
		GasUsedRatio: reply.GasUsedRatio,
	}
	if err := validateWindow(history, len(percentiles)); err != nil {
		return nil, err
	}
	return history, nil
}

// feeHistoryChunked resolves the window against the current head and fetches
// it in MaxBlocksPerCall chunks, mirroring the reply shape of a single call:
// the stitched base-fee series keeps the next-block projection of the last
// chunk only.
func (c *EthClient) feeHistoryChunked(ctx context.Context, blocks uint64, percentiles []float64, maxConcurrency uint) (*models.FeeHistory, error) {
	head, err := c.HeadBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if blocks > head+1 {
		return nil, fmt.Errorf("window of %d blocks reaches past genesis, head is %d", blocks, head)
	}
	oldest := head - blocks + 1
	numChunks := int((blocks + MaxBlocksPerCall - 1) / MaxBlocksPerCall)

	slog.Info("Fetching fee history", "range", fmt.Sprintf("[%d, %d]", oldest, head), "chunks", numChunks)
	bar := progressbar.NewOptions64(
		int64(blocks),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("Fetching fee history..."),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	if err := bar.RenderBlank(); err != nil {
		return nil, fmt.Errorf("failed to render progress bar: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrency)
	windows := make([]*models.FeeHistory, numChunks)

	for i := 0; i < numChunks; i++ {
		if egCtx.Err() != nil {
			slog.Info("Fetching cancelled by user")
			return nil, egCtx.Err()
		}

		idx := i
		start := oldest + uint64(i)*MaxBlocksPerCall
		end := start + MaxBlocksPerCall - 1
		if end > head {
			end = head
		}
		count := end - start + 1
		sem <- struct{}{}

		eg.Go(func() error {
			defer func() { <-sem }()

			window, err := c.feeHistoryWindow(egCtx, count, new(big.Int).SetUint64(end), percentiles)
			if err != nil {
				return fmt.Errorf("failed to fetch blocks [%d, %d]: %w", start, end, err)
			}
			if window.OldestBlock != start || uint64(window.Blocks()) != count {
				return fmt.Errorf("fee history chunk misaligned: requested [%d, %d], got %d blocks from %d",
					start, end, window.Blocks(), window.OldestBlock)
			}
			windows[idx] = window

			if err := bar.Add(int(count)); err != nil {
				slog.Warn("Failed to update progress bar", "error", err)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("error while fetching fee history: %w", err)
	}
	if err := bar.Finish(); err != nil {
		return nil, fmt.Errorf("failed to finish progress bar: %w", err)
	}

	return stitchWindows(oldest, windows), nil
}

func stitchWindows(oldest uint64, windows []*models.FeeHistory) *models.FeeHistory {
	merged := &models.FeeHistory{OldestBlock: oldest}
	for i, window := range windows {
		n := window.Blocks()
		merged.BaseFee = append(merged.BaseFee, window.BaseFee[:n]...)
		merged.GasUsedRatio = append(merged.GasUsedRatio, window.GasUsedRatio...)
		if len(window.Reward) > 0 {
			merged.Reward = append(merged.Reward, window.Reward...)
		}
		if i == len(windows)-1 && len(window.BaseFee) > n {
			merged.BaseFee = append(merged.BaseFee, window.BaseFee[n])
		}
	}
	return merged
}

// validateWindow checks the parallel arrays of a fee-history reply against the
// block count implied by the gas-used ratios.
func validateWindow(h *models.FeeHistory, wantPercentiles int) error {
	n := h.Blocks()
	if n == 0 {
		return errors.New("fee history reply is empty")
	}
	if len(h.BaseFee) < n {
		return fmt.Errorf("fee history reply is malformed: %d base fees for %d blocks", len(h.BaseFee), n)
	}
	if wantPercentiles > 0 {
		if len(h.Reward) != n {
			return fmt.Errorf("fee history reply is malformed: %d reward rows for %d blocks", len(h.Reward), n)
		}
		for i, row := range h.Reward {
			if len(row) != wantPercentiles {
				return fmt.Errorf("fee history reply is malformed: block %d carries %d rewards, want %d",
					h.OldestBlock+uint64(i), len(row), wantPercentiles)
			}
		}
	}
	return nil
}
