package models

import "math/big"

var weiPerGwei = big.NewInt(1_000_000_000)

// BlockFeeRecord is one block of the fee dataset, with wei-scale quantities
// already reduced to Gwei.
type BlockFeeRecord struct {
	BlockNumber   uint64  `json:"blockNumber"`
	Reward        []int64 `json:"reward,omitempty"`
	BaseFeePerGas int64   `json:"baseFeePerGas"`
	GasUsedRatio  float64 `json:"gasUsedRatio"`
	Anomaly       bool    `json:"anomaly"`
}

// FeeHistory is a raw fee-history window as returned by the endpoint, with
// chunked replies already stitched back together. BaseFee may carry one entry
// more than there are blocks: the protocol appends the projected base fee of
// the block following the window.
type FeeHistory struct {
	OldestBlock  uint64
	Reward       [][]*big.Int
	BaseFee      []*big.Int
	GasUsedRatio []float64
}

// Blocks returns the number of blocks covered by the window.
func (h *FeeHistory) Blocks() int {
	return len(h.GasUsedRatio)
}

// GweiFromWei converts a wei amount to Gwei, rounding half up.
func GweiFromWei(wei *big.Int) int64 {
	if wei == nil {
		return 0
	}
	q, r := new(big.Int).QuoRem(wei, weiPerGwei, new(big.Int))
	if r.Lsh(r, 1).Cmp(weiPerGwei) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}
