package models

// FormatFeeHistory flattens a raw fee-history window into one record per
// block, numbered consecutively from the oldest block. Wei quantities are
// rounded to Gwei and the gas-used ratio is copied through unchanged. The
// reply is assumed well-formed; the fetch boundary validates it.
func FormatFeeHistory(h *FeeHistory) []BlockFeeRecord {
	n := h.Blocks()
	records := make([]BlockFeeRecord, 0, n)
	for i := 0; i < n; i++ {
		record := BlockFeeRecord{
			BlockNumber:   h.OldestBlock + uint64(i),
			BaseFeePerGas: GweiFromWei(h.BaseFee[i]),
			GasUsedRatio:  h.GasUsedRatio[i],
		}
		if i < len(h.Reward) {
			record.Reward = make([]int64, len(h.Reward[i]))
			for j, reward := range h.Reward[i] {
				record.Reward[j] = GweiFromWei(reward)
			}
		}
		records = append(records, record)
	}
	return records
}
