package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"go-cql-engine/cassandra"
)

// Collector exposes the engine's execution counters to prometheus.
type Collector struct {
	metric *cassandra.Metric

	statementsExecuted *prometheus.Desc
	rowsRead           *prometheus.Desc
	batchesExecuted    *prometheus.Desc
	casConflicts       *prometheus.Desc
	writeLatency       *prometheus.Desc
}

func NewCollector(metric *cassandra.Metric) *Collector {
	return &Collector{
		metric: metric,

		statementsExecuted: prometheus.NewDesc(
			prometheus.BuildFQName("cql_engine", "statements_executed", "total"),
			"Statements executed against the cluster",
			[]string{},
			nil,
		),
		rowsRead: prometheus.NewDesc(
			prometheus.BuildFQName("cql_engine", "rows_read", "total"),
			"Rows scanned out of select statements",
			[]string{},
			nil,
		),
		batchesExecuted: prometheus.NewDesc(
			prometheus.BuildFQName("cql_engine", "batches_executed", "total"),
			"Atomic batches submitted",
			[]string{},
			nil,
		),
		casConflicts: prometheus.NewDesc(
			prometheus.BuildFQName("cql_engine", "cas_conflicts", "total"),
			"Lightweight transactions that were not applied",
			[]string{},
			nil,
		),
		writeLatency: prometheus.NewDesc(
			prometheus.BuildFQName("cql_engine", "write_latency_ms", "current"),
			"Latency of the most recent write",
			[]string{},
			nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.statementsExecuted,
		prometheus.CounterValue,
		float64(atomic.LoadInt64(&c.metric.StatementsExecuted)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.rowsRead,
		prometheus.CounterValue,
		float64(atomic.LoadInt64(&c.metric.RowsRead)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.batchesExecuted,
		prometheus.CounterValue,
		float64(atomic.LoadInt64(&c.metric.BatchesExecuted)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.casConflicts,
		prometheus.CounterValue,
		float64(atomic.LoadInt64(&c.metric.CasConflicts)),
	)
	ch <- prometheus.MustNewConstMetric(
		c.writeLatency,
		prometheus.GaugeValue,
		float64(atomic.LoadInt64(&c.metric.WriteLatencyMs)),
	)
}

func (c *Collector) Unregister() {
	prometheus.Unregister(c)
}
