package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/feescope/feescope/internal/analysis"
	"github.com/feescope/feescope/internal/metrics/collectors"
)

// Recorder keeps the latest fee snapshot for the metrics endpoint. The watch
// loop writes it after every analyzed window; the collector reads it on scrape.
type Recorder struct {
	mu       sync.RWMutex
	snapshot *collectors.FeeSnapshot
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe replaces the recorded snapshot with the given analysis result.
func (r *Recorder) Observe(result *analysis.Result, head uint64) {
	snapshot := collectors.FeeSnapshot{
		Head:        head,
		Blocks:      len(result.Records),
		MeanBaseFee: result.BaseFee.Mean,
		MaxBaseFee:  result.BaseFee.Max,
		Anomalies:   len(result.AnomalousBlocks),
		Correlation: result.Correlation,
		ObservedAt:  time.Now(),
	}

	r.mu.Lock()
	r.snapshot = &snapshot
	r.mu.Unlock()

	slog.Debug("Recorded fee snapshot", "head", head, "blocks", snapshot.Blocks, "anomalies", snapshot.Anomalies)
}

// Snapshot returns the latest snapshot, or false if no window has been
// analyzed yet.
func (r *Recorder) Snapshot() (collectors.FeeSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snapshot == nil {
		return collectors.FeeSnapshot{}, false
	}
	return *r.snapshot, true
}
