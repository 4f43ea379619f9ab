package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/feescope/feescope/internal/analysis"
	"github.com/feescope/feescope/internal/client"
	"github.com/feescope/feescope/internal/config"
)

// ResultFunc consumes each analysis the watch loop produces, together with the
// head block that triggered it. Returning an error stops the loop.
type ResultFunc func(result *analysis.Result, head uint64) error

// Watch monitors the chain and re-runs the pipeline over the trailing window
// whenever the head advances, starting with an immediate first pass. Any
// failure terminates the loop; a cancelled context ends it cleanly.
func Watch(ctx context.Context, c *client.EthClient, cfg config.WatchConfig, onResult ResultFunc) error {
	var currentHead uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			head, err := c.HeadBlockNumber(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.WithMessage(err, "failed to poll the chain head")
			}

			if head > currentHead {
				slog.Info("New head detected", "head", head, "previous", currentHead)
				result, err := Run(ctx, c, cfg.AnalyzeConfig)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				if err := onResult(result, head); err != nil {
					return err
				}
				currentHead = head
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(cfg.BlockTime) * time.Second):
			}
		}
	}
}
