// Package prometheus exports ragfmt operation metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := ragprom.NewCollector(reg)
//	env := ragfmt.Normalize(nil, nil, chunks, nil, "mix", ragfmt.WithMetricsCollector(mc))
package prometheus

import (
	"time"

	"github.com/hupe1980/ragfmt"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ragfmt"

// Collector implements ragfmt.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency       *prometheus.HistogramVec
	normalizeChunks *prometheus.CounterVec
	batchItems      prometheus.Counter
	archiveBytes    *prometheus.CounterVec
}

var _ ragfmt.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of ragfmt operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		normalizeChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalized_chunks_total",
			Help:      "Total chunks normalized, by query mode",
		}, []string{"query_mode"}),
		batchItems: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Total inputs submitted to batch normalization",
		}),
		archiveBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_bytes_total",
			Help:      "Total archived envelope bytes, by operation",
		}, []string{"op"}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.normalizeChunks, c.batchItems, c.archiveBytes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNewCollector is like NewCollector but panics on registration errors.
func MustNewCollector(reg prometheus.Registerer) *Collector {
	c, err := NewCollector(reg)
	if err != nil {
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordNormalize implements ragfmt.MetricsCollector.
func (c *Collector) RecordNormalize(queryMode string, chunks int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("normalize", status(err)).Observe(d.Seconds())
	if err == nil {
		c.normalizeChunks.WithLabelValues(queryMode).Add(float64(chunks))
	}
}

// RecordBatch implements ragfmt.MetricsCollector.
func (c *Collector) RecordBatch(count int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("batch", status(err)).Observe(d.Seconds())
	c.batchItems.Add(float64(count))
}

// RecordArchive implements ragfmt.MetricsCollector.
func (c *Collector) RecordArchive(op string, bytes int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("archive_"+op, status(err)).Observe(d.Seconds())
	if err == nil {
		c.archiveBytes.WithLabelValues(op).Add(float64(bytes))
	}
}
