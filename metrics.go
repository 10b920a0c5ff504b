package ragfmt

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see the
// metrics/prometheus package for a Prometheus implementation.
type MetricsCollector interface {
	// RecordNormalize is called after each Normalize, NormalizeAny or RawResult.Normalize call.
	// chunks is the number of normalized chunks, err is nil if successful.
	RecordNormalize(queryMode string, chunks int, duration time.Duration, err error)

	// RecordBatch is called after each NormalizeBatch call.
	RecordBatch(count int, duration time.Duration, err error)

	// RecordArchive is called after each archive operation ("put", "get", "delete").
	// bytes is the stored blob size.
	RecordArchive(op string, bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordNormalize(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordBatch(int, time.Duration, error)             {}
func (NoopMetricsCollector) RecordArchive(string, int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	NormalizeCount      atomic.Int64
	NormalizeErrors     atomic.Int64
	NormalizeChunks     atomic.Int64
	NormalizeTotalNanos atomic.Int64
	BatchCount          atomic.Int64
	BatchItems          atomic.Int64
	BatchErrors         atomic.Int64
	ArchiveCount        atomic.Int64
	ArchiveErrors       atomic.Int64
	ArchiveBytes        atomic.Int64
}

// RecordNormalize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordNormalize(_ string, chunks int, duration time.Duration, err error) {
	b.NormalizeCount.Add(1)
	b.NormalizeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.NormalizeErrors.Add(1)
		return
	}
	b.NormalizeChunks.Add(int64(chunks))
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(count int, _ time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchItems.Add(int64(count))
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// RecordArchive implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchive(_ string, bytes int, _ time.Duration, err error) {
	b.ArchiveCount.Add(1)
	if err != nil {
		b.ArchiveErrors.Add(1)
		return
	}
	b.ArchiveBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		NormalizeCount:    b.NormalizeCount.Load(),
		NormalizeErrors:   b.NormalizeErrors.Load(),
		NormalizeChunks:   b.NormalizeChunks.Load(),
		NormalizeAvgNanos: b.getAvgNormalizeNanos(),
		BatchCount:        b.BatchCount.Load(),
		BatchItems:        b.BatchItems.Load(),
		BatchErrors:       b.BatchErrors.Load(),
		ArchiveCount:      b.ArchiveCount.Load(),
		ArchiveErrors:     b.ArchiveErrors.Load(),
		ArchiveBytes:      b.ArchiveBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgNormalizeNanos() int64 {
	count := b.NormalizeCount.Load()
	if count == 0 {
		return 0
	}
	return b.NormalizeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	NormalizeCount    int64
	NormalizeErrors   int64
	NormalizeChunks   int64
	NormalizeAvgNanos int64
	BatchCount        int64
	BatchItems        int64
	BatchErrors       int64
	ArchiveCount      int64
	ArchiveErrors     int64
	ArchiveBytes      int64
}
