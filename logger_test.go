package ragfmt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ragfmt"
)

func newBufferLogger(buf *bytes.Buffer) *ragfmt.Logger {
	return ragfmt.NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_Normalize(t *testing.T) {
	var buf bytes.Buffer

	ragfmt.Normalize(nil, nil, []ragfmt.Record{{"content": "c"}}, nil, "hybrid",
		ragfmt.WithLogger(newBufferLogger(&buf)),
		ragfmt.WithExtraChunkFields("page_idx"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "normalize completed", lines[0]["msg"])
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "hybrid", lines[0]["query_mode"])
	assert.EqualValues(t, 1, lines[0]["chunks"])
	assert.EqualValues(t, 1, lines[0]["extra_fields"])
}

func TestLogger_NormalizeFailure(t *testing.T) {
	var buf bytes.Buffer

	_, err := ragfmt.NormalizeAny([]any{7}, nil, nil, nil, "naive", ragfmt.WithLogger(newBufferLogger(&buf)))
	require.Error(t, err)

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "normalize failed", lines[0]["msg"])
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Contains(t, lines[0]["error"], "entities[0]")
}

func TestLogger_Batch(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.LogBatch(context.Background(), 3, nil)
	l.LogBatch(context.Background(), 2, errors.New("boom"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "batch normalize completed", lines[0]["msg"])
	assert.EqualValues(t, 3, lines[0]["count"])
	assert.Equal(t, "batch normalize failed", lines[1]["msg"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLogger_Archive(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).WithComponent("archive")

	l.LogArchive(context.Background(), "put", "envelopes/mix/a.env", 42, nil)
	l.LogArchive(context.Background(), "get", "envelopes/mix/b.env", 0, errors.New("not found"))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "archive put completed", lines[0]["msg"])
	assert.Equal(t, "archive", lines[0]["component"])
	assert.EqualValues(t, 42, lines[0]["bytes"])
	assert.Equal(t, "archive get failed", lines[1]["msg"])
	assert.Equal(t, "envelopes/mix/b.env", lines[1]["key"])
}

func TestLogger_WithQueryMode(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).WithQueryMode("local").Info("hello")

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "local", lines[0]["query_mode"])
}

func TestNoopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		ragfmt.NoopLogger().LogBatch(context.Background(), 1, nil)
		ragfmt.Normalize(nil, nil, nil, nil, "naive", ragfmt.WithLogger(nil))
	})
}

func TestNewLogger_DefaultHandler(t *testing.T) {
	l := ragfmt.NewLogger(nil)
	require.NotNil(t, l)
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
}
