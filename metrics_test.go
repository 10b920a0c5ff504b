package ragfmt_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/ragfmt"
)

func TestBasicMetricsCollector(t *testing.T) {
	mc := &ragfmt.BasicMetricsCollector{}

	mc.RecordNormalize("mix", 3, 10*time.Millisecond, nil)
	mc.RecordNormalize("mix", 0, 30*time.Millisecond, errors.New("boom"))
	mc.RecordBatch(5, time.Millisecond, nil)
	mc.RecordBatch(2, time.Millisecond, errors.New("boom"))
	mc.RecordArchive("put", 128, time.Millisecond, nil)
	mc.RecordArchive("get", 999, time.Millisecond, errors.New("boom"))

	assert.Equal(t, ragfmt.BasicMetricsStats{
		NormalizeCount:    2,
		NormalizeErrors:   1,
		NormalizeChunks:   3,
		NormalizeAvgNanos: (20 * time.Millisecond).Nanoseconds(),
		BatchCount:        2,
		BatchItems:        7,
		BatchErrors:       1,
		ArchiveCount:      2,
		ArchiveErrors:     1,
		ArchiveBytes:      128,
	}, mc.GetStats())
}

func TestBasicMetricsCollector_Empty(t *testing.T) {
	mc := &ragfmt.BasicMetricsCollector{}
	assert.Equal(t, ragfmt.BasicMetricsStats{}, mc.GetStats())
}

func TestWithMetricsCollector(t *testing.T) {
	mc := &ragfmt.BasicMetricsCollector{}

	ragfmt.Normalize(nil, nil, []ragfmt.Record{{}, {}}, nil, "naive", ragfmt.WithMetricsCollector(mc))
	_, err := ragfmt.NormalizeAny(nil, nil, []any{"x"}, nil, "naive", ragfmt.WithMetricsCollector(mc))
	assert.Error(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.NormalizeCount)
	assert.Equal(t, int64(1), stats.NormalizeErrors)
	assert.Equal(t, int64(2), stats.NormalizeChunks)
}

func TestWithMetricsCollector_Nil(t *testing.T) {
	assert.NotPanics(t, func() {
		ragfmt.Normalize(nil, nil, nil, nil, "naive", ragfmt.WithMetricsCollector(nil))
	})
}
