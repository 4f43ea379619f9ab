package client

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// EthClient speaks JSON-RPC to an Ethereum node provider.
type EthClient struct {
	eth *ethclient.Client
}

// Dial opens an HTTP JSON-RPC connection and asserts connectivity by
// requesting the current head block number. There are no retries: an
// unreachable provider fails the run immediately.
func Dial(ctx context.Context, endpoint string) (*EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to connect to the RPC endpoint")
	}

	c := &EthClient{eth: ethclient.NewClient(rpcClient)}
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		c.Close()
		return nil, errors.WithMessage(err, "RPC endpoint is unreachable")
	}
	slog.Debug("Connected to the RPC endpoint", "head", head)

	return c, nil
}

// Close tears down the underlying connection.
func (c *EthClient) Close() {
	c.eth.Close()
}

// HeadBlockNumber returns the current head block number.
func (c *EthClient) HeadBlockNumber(ctx context.Context) (uint64, error) {
	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, errors.WithMessage(err, "failed to get the head block number")
	}
	return head, nil
}
