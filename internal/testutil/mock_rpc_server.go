package testutil

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var oneGwei = big.NewInt(1_000_000_000)

// FeeHistoryCall records one eth_feeHistory request seen by the mock chain.
// LastBlock holds the resolved block number of the window end, Newest the raw
// tag or hex number the caller sent.
type FeeHistoryCall struct {
	Count       uint64
	Newest      string
	LastBlock   uint64
	Percentiles []float64
}

// MockChain is an in-memory Ethereum node serving just enough of the JSON-RPC
// surface for the fee pipeline: eth_blockNumber and eth_feeHistory. Per-block
// data is synthesized by the At functions, which must be configured before
// Serve; head and error injection are safe to change while serving.
type MockChain struct {
	mu            sync.Mutex
	head          uint64
	calls         []FeeHistoryCall
	feeHistoryErr string

	// MaxWindow caps the per-call block count the way public providers do.
	MaxWindow uint64

	BaseFeeAt  func(block uint64) *big.Int
	GasRatioAt func(block uint64) float64
	RewardAt   func(block uint64, percentile float64) *big.Int
}

// NewMockChain returns a chain at the given head with deterministic synthetic
// fee data: base fees cycle through 10..16 Gwei, blocks are half full, and
// rewards scale with the requested percentile.
func NewMockChain(head uint64) *MockChain {
	return &MockChain{
		head:      head,
		MaxWindow: 1024,
		BaseFeeAt: func(block uint64) *big.Int {
			return new(big.Int).Mul(big.NewInt(int64(10+block%7)), oneGwei)
		},
		GasRatioAt: func(block uint64) float64 {
			return 0.5
		},
		RewardAt: func(block uint64, percentile float64) *big.Int {
			return big.NewInt(int64(percentile) * 40_000_000)
		},
	}
}

// Serve starts an HTTP test server around the chain and closes it with the test.
func (c *MockChain) Serve(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(c.Handler())
	t.Cleanup(server.Close)
	return server
}

// Handler returns the JSON-RPC endpoint of the chain.
func (c *MockChain) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch req.Method {
		case "eth_blockNumber":
			writeResult(w, req.ID, hexutil.Uint64(c.Head()))
		case "eth_feeHistory":
			c.serveFeeHistory(w, req)
		default:
			writeError(w, req.ID, fmt.Sprintf("the method %s does not exist", req.Method))
		}
	})
}

// Head returns the current head block number.
func (c *MockChain) Head() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head
}

// SetHead moves the chain head, simulating block production.
func (c *MockChain) SetHead(head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

// FailFeeHistory makes every subsequent eth_feeHistory call return the given
// error message. An empty message restores normal replies.
func (c *MockChain) FailFeeHistory(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feeHistoryErr = message
}

// FeeHistoryCalls returns a copy of all eth_feeHistory requests seen so far.
func (c *MockChain) FeeHistoryCalls() []FeeHistoryCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]FeeHistoryCall, len(c.calls))
	copy(calls, c.calls)
	return calls
}

func (c *MockChain) serveFeeHistory(w http.ResponseWriter, req rpcRequest) {
	if msg := c.injectedError(); msg != "" {
		writeError(w, req.ID, msg)
		return
	}
	if len(req.Params) != 3 {
		writeError(w, req.ID, "eth_feeHistory expects 3 parameters")
		return
	}

	var count hexutil.Uint64
	if err := json.Unmarshal(req.Params[0], &count); err != nil {
		writeError(w, req.ID, "invalid block count: "+err.Error())
		return
	}
	var newest string
	if err := json.Unmarshal(req.Params[1], &newest); err != nil {
		writeError(w, req.ID, "invalid newest block: "+err.Error())
		return
	}
	var percentiles []float64
	if err := json.Unmarshal(req.Params[2], &percentiles); err != nil {
		writeError(w, req.ID, "invalid reward percentiles: "+err.Error())
		return
	}

	if count == 0 {
		writeError(w, req.ID, "block count must be positive")
		return
	}
	if uint64(count) > c.MaxWindow {
		writeError(w, req.ID, fmt.Sprintf("block count %d exceeds the %d block limit", count, c.MaxWindow))
		return
	}

	last := c.Head()
	switch newest {
	case "latest", "pending", "safe", "finalized":
	default:
		parsed, err := hexutil.DecodeUint64(newest)
		if err != nil {
			writeError(w, req.ID, "invalid newest block: "+err.Error())
			return
		}
		last = parsed
	}

	// Like a real node, a window reaching past genesis is clamped, not refused.
	blocks := uint64(count)
	if blocks > last+1 {
		blocks = last + 1
	}
	oldest := last - blocks + 1

	c.recordCall(FeeHistoryCall{
		Count:       uint64(count),
		Newest:      newest,
		LastBlock:   last,
		Percentiles: percentiles,
	})

	result := feeHistoryResult{
		OldestBlock:  (*hexutil.Big)(new(big.Int).SetUint64(oldest)),
		GasUsedRatio: make([]float64, 0, blocks),
	}
	for block := oldest; block <= last; block++ {
		result.BaseFee = append(result.BaseFee, (*hexutil.Big)(c.BaseFeeAt(block)))
		result.GasUsedRatio = append(result.GasUsedRatio, c.GasRatioAt(block))
		if len(percentiles) > 0 {
			row := make([]*hexutil.Big, len(percentiles))
			for i, p := range percentiles {
				row[i] = (*hexutil.Big)(c.RewardAt(block, p))
			}
			result.Reward = append(result.Reward, row)
		}
	}
	// The protocol appends the projected base fee of the block after the window.
	result.BaseFee = append(result.BaseFee, (*hexutil.Big)(c.BaseFeeAt(last+1)))

	writeResult(w, req.ID, result)
}

func (c *MockChain) injectedError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.feeHistoryErr
}

func (c *MockChain) recordCall(call FeeHistoryCall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type feeHistoryResult struct {
	OldestBlock  *hexutil.Big     `json:"oldestBlock"`
	Reward       [][]*hexutil.Big `json:"reward,omitempty"`
	BaseFee      []*hexutil.Big   `json:"baseFeePerGas"`
	GasUsedRatio []float64        `json:"gasUsedRatio"`
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id json.RawMessage, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: -32000, Message: message}})
}
