package collectors

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FeeSnapshot is the slice of an analyzed fee window exported as gauges.
type FeeSnapshot struct {
	Head        uint64
	Blocks      int
	MeanBaseFee float64
	MaxBaseFee  float64
	Anomalies   int
	Correlation float64
	ObservedAt  time.Time
}

// SnapshotFunc supplies the latest fee snapshot. The boolean is false until
// the first window has been analyzed.
type SnapshotFunc func() (FeeSnapshot, bool)

type FeeWindowCollector struct {
	snapshot SnapshotFunc

	headBlock   *prometheus.Desc
	blocks      *prometheus.Desc
	meanBaseFee *prometheus.Desc
	maxBaseFee  *prometheus.Desc
	anomalies   *prometheus.Desc
	correlation *prometheus.Desc
	lastRun     *prometheus.Desc
}

func NewFeeWindowCollector(snapshot SnapshotFunc) *FeeWindowCollector {
	return &FeeWindowCollector{
		snapshot: snapshot,
		headBlock: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "chain", "head_block"),
			"Head block number of the last analyzed window",
			nil,
			nil,
		),
		blocks: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "fee", "window_blocks"),
			"Number of blocks in the last analyzed window",
			nil,
			nil,
		),
		meanBaseFee: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "fee", "base_mean_gwei"),
			"Mean base fee of the last analyzed window in Gwei",
			nil,
			nil,
		),
		maxBaseFee: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "fee", "base_max_gwei"),
			"Maximum base fee of the last analyzed window in Gwei",
			nil,
			nil,
		),
		anomalies: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "fee", "anomalous_blocks"),
			"Number of anomalous blocks in the last analyzed window",
			nil,
			nil,
		),
		correlation: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "fee", "gas_correlation"),
			"Correlation between base fee and gas used ratio in the last analyzed window",
			nil,
			nil,
		),
		lastRun: prometheus.NewDesc(
			prometheus.BuildFQName("feescope", "fee", "last_run_timestamp_seconds"),
			"Unix time of the last analyzed window",
			nil,
			nil,
		),
	}
}

func (c *FeeWindowCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.headBlock
	ch <- c.blocks
	ch <- c.meanBaseFee
	ch <- c.maxBaseFee
	ch <- c.anomalies
	ch <- c.correlation
	ch <- c.lastRun
}

func (c *FeeWindowCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot, ok := c.snapshot()
	if !ok {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.headBlock, prometheus.GaugeValue, float64(snapshot.Head))
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(snapshot.Blocks))
	ch <- prometheus.MustNewConstMetric(c.meanBaseFee, prometheus.GaugeValue, snapshot.MeanBaseFee)
	ch <- prometheus.MustNewConstMetric(c.maxBaseFee, prometheus.GaugeValue, snapshot.MaxBaseFee)
	ch <- prometheus.MustNewConstMetric(c.anomalies, prometheus.GaugeValue, float64(snapshot.Anomalies))
	ch <- prometheus.MustNewConstMetric(c.correlation, prometheus.GaugeValue, snapshot.Correlation)
	ch <- prometheus.MustNewConstMetric(c.lastRun, prometheus.GaugeValue, float64(snapshot.ObservedAt.Unix()))
}
