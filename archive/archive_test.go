package archive

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/ragfmt"
	"github.com/hupe1980/ragfmt/blobstore"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/compress"
	"github.com/hupe1980/ragfmt/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, name := range codec.Names() {
		for _, ct := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD} {
			t.Run(name+"/"+ct.String(), func(t *testing.T) {
				c, _ := codec.ByName(name)
				arc := New(blobstore.NewMemoryStore(), func(o *Options) {
					o.Codec = c
					o.Compression = ct
					o.Prefix = "envelopes"
				})

				env := testutil.SampleEnvelope("mix")
				key, err := arc.Put(ctx, env)
				require.NoError(t, err)
				assert.Regexp(t, `^envelopes/mix/[0-9a-f-]{36}\.env$`, key)

				got, err := arc.Get(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, env.Status, got.Status)
				assert.Equal(t, env.Metadata.QueryMode, got.Metadata.QueryMode)
				assert.Equal(t, env.Metadata.ProcessingInfo, got.Metadata.ProcessingInfo)
				require.Len(t, got.Data.Chunks, 2)
				assert.Equal(t, env.Data.Chunks[0].Keys(), got.Data.Chunks[0].Keys())
				assert.Equal(t, env.Data.Chunks[1].Keys(), got.Data.Chunks[1].Keys())
				assert.Equal(t, []int{1}, got.MissingChunks("page_idx"))
			})
		}
	}
}

func TestArchive_ListByMode(t *testing.T) {
	ctx := context.Background()
	arc := New(blobstore.NewMemoryStore())

	k1, err := arc.Put(ctx, testutil.SampleEnvelope("naive"))
	require.NoError(t, err)
	k2, err := arc.Put(ctx, testutil.SampleEnvelope("naive"))
	require.NoError(t, err)
	k3, err := arc.Put(ctx, testutil.SampleEnvelope("local"))
	require.NoError(t, err)
	k4, err := arc.Put(ctx, testutil.SampleEnvelope(""))
	require.NoError(t, err)
	assert.Regexp(t, `^_/`, k4)

	naive, err := arc.List(ctx, "naive")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{k1, k2}, naive)

	local, err := arc.List(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, []string{k3}, local)

	all, err := arc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestArchive_ModeEscaping(t *testing.T) {
	ctx := context.Background()
	arc := New(blobstore.NewMemoryStore(), func(o *Options) { o.Prefix = "/p/" })

	key, err := arc.Put(ctx, testutil.SampleEnvelope("a/b c"))
	require.NoError(t, err)
	assert.Regexp(t, `^p/a%2Fb%20c/`, key)

	mode, err := arc.QueryMode(key)
	require.NoError(t, err)
	assert.Equal(t, "a/b c", mode)

	keys, err := arc.List(ctx, "a/b c")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)
}

func TestArchive_DotModes(t *testing.T) {
	ctx := context.Background()

	for _, prefix := range []string{"", "env"} {
		for _, mode := range []string{".", "..", "_", "./x", "a/.."} {
			t.Run(prefix+"|"+mode, func(t *testing.T) {
				store := blobstore.NewLocalStore(t.TempDir())
				arc := New(store, func(o *Options) { o.Prefix = prefix })

				key, err := arc.Put(ctx, testutil.SampleEnvelope(mode))
				require.NoError(t, err)
				if prefix != "" {
					assert.True(t, strings.HasPrefix(key, prefix+"/"), key)
				}
				depth := 1
				if prefix != "" {
					depth = 2
				}
				assert.Equal(t, depth, strings.Count(key, "/"), key)

				got, err := arc.QueryMode(key)
				require.NoError(t, err)
				assert.Equal(t, mode, got)

				keys, err := arc.List(ctx, mode)
				require.NoError(t, err)
				assert.Equal(t, []string{key}, keys)

				empty, err := arc.List(ctx, "")
				require.NoError(t, err)
				assert.Equal(t, []string{key}, empty)

				require.NoError(t, arc.Delete(ctx, key))
				_, err = arc.Get(ctx, key)
				assert.ErrorIs(t, err, blobstore.ErrNotFound)
			})
		}
	}
}

func TestArchive_EmptyAndUnderscoreModesDistinct(t *testing.T) {
	ctx := context.Background()
	arc := New(blobstore.NewMemoryStore())

	kEmpty, err := arc.Put(ctx, testutil.SampleEnvelope(""))
	require.NoError(t, err)
	kUnderscore, err := arc.Put(ctx, testutil.SampleEnvelope("_"))
	require.NoError(t, err)

	mode, err := arc.QueryMode(kEmpty)
	require.NoError(t, err)
	assert.Equal(t, "", mode)
	mode, err = arc.QueryMode(kUnderscore)
	require.NoError(t, err)
	assert.Equal(t, "_", mode)

	keys, err := arc.List(ctx, "_")
	require.NoError(t, err)
	assert.Equal(t, []string{kUnderscore}, keys)
}

func TestArchive_QueryModeInvalid(t *testing.T) {
	arc := New(blobstore.NewMemoryStore(), func(o *Options) { o.Prefix = "p" })
	for _, key := range []string{"other/naive/x.env", "p/naive", "p/naive/x.txt", "p/a/b/x.env"} {
		_, err := arc.QueryMode(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestArchive_GetMissing(t *testing.T) {
	arc := New(blobstore.NewMemoryStore())
	_, err := arc.Get(context.Background(), "naive/nope.env")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestArchive_GetCorrupt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	arc := New(store)

	key, err := arc.Put(ctx, testutil.SampleEnvelope("naive"))
	require.NoError(t, err)
	valid, err := store.Get(ctx, key)
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":        {},
		"bad magic":    append([]byte("XXXX"), valid[4:]...),
		"bad version":  append(append([]byte{}, valid[:4]...), append([]byte{99}, valid[5:]...)...),
		"unknown name": append([]byte("RGFE\x01\x03xml"), valid[6+len(codec.Default.Name()):]...),
		"truncated":    valid[:len(valid)-3],
		"bad payload":  mustBlob(t, []byte("not an envelope")),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "naive/corrupt.env", blob))
			_, err := arc.Get(ctx, "naive/corrupt.env")
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func mustBlob(t *testing.T, payload []byte) []byte {
	t.Helper()
	b, err := encodeBlob(payload, codec.JSON{}, compress.None)
	require.NoError(t, err)
	return b
}

func TestArchive_Delete(t *testing.T) {
	ctx := context.Background()
	cat := NewMemoryCatalog()
	arc := New(blobstore.NewMemoryStore(), func(o *Options) { o.Catalog = cat })

	key, err := arc.Put(ctx, testutil.SampleEnvelope("global"))
	require.NoError(t, err)

	entries, err := arc.Entries(ctx, "global")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, arc.Delete(ctx, key))

	_, err = arc.Get(ctx, key)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	entries, err = arc.Entries(ctx, "global")
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, arc.Delete(ctx, "bogus"), ErrInvalidKey)
}

func TestArchive_CatalogEntry(t *testing.T) {
	ctx := context.Background()
	cat := NewMemoryCatalog()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	arc := New(blobstore.NewMemoryStore(), func(o *Options) {
		o.Catalog = cat
		o.Now = func() time.Time { return now }
	})

	key, err := arc.Put(ctx, testutil.SampleEnvelope("hybrid"))
	require.NoError(t, err)

	entries, err := cat.Entries(ctx, "hybrid")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, key, e.Key)
	assert.Equal(t, "hybrid", e.QueryMode)
	assert.Equal(t, 1, e.Entities)
	assert.Equal(t, 1, e.Relations)
	assert.Equal(t, 2, e.Chunks)
	assert.Equal(t, 1, e.References)
	assert.Positive(t, e.Size)
	assert.Equal(t, now, e.CreatedAt)
}

func TestArchive_NoCatalog(t *testing.T) {
	arc := New(blobstore.NewMemoryStore())
	entries, err := arc.Entries(context.Background(), "naive")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestArchive_NilEnvelope(t *testing.T) {
	arc := New(blobstore.NewMemoryStore())
	_, err := arc.Put(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilEnvelope)
}

type failingStore struct {
	blobstore.Store
	err error
}

func (s failingStore) Put(context.Context, string, []byte) error { return s.err }

func TestArchive_MetricsAndLogs(t *testing.T) {
	ctx := context.Background()
	metrics := &ragfmt.BasicMetricsCollector{}
	var logs bytes.Buffer
	logger := ragfmt.NewLogger(newTextHandler(&logs))

	arc := New(blobstore.NewMemoryStore(), func(o *Options) {
		o.Metrics = metrics
		o.Logger = logger
	})

	key, err := arc.Put(ctx, testutil.SampleEnvelope("naive"))
	require.NoError(t, err)
	_, err = arc.Get(ctx, key)
	require.NoError(t, err)

	boom := errors.New("boom")
	bad := New(failingStore{Store: blobstore.NewMemoryStore(), err: boom}, func(o *Options) {
		o.Metrics = metrics
		o.Logger = logger
	})
	_, err = bad.Put(ctx, testutil.SampleEnvelope("naive"))
	assert.ErrorIs(t, err, boom)

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.ArchiveCount)
	assert.Equal(t, int64(1), stats.ArchiveErrors)
	assert.Positive(t, stats.ArchiveBytes)

	assert.Contains(t, logs.String(), "archive put completed")
	assert.Contains(t, logs.String(), "archive put failed")
	assert.Contains(t, logs.String(), "component=archive")
}

func TestArchive_RateLimitCanceled(t *testing.T) {
	arc := New(blobstore.NewMemoryStore(), func(o *Options) { o.BytesPerSecond = 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// An envelope is far more than one byte, so the limiter cannot admit it in time.
	_, err := arc.Put(ctx, testutil.SampleEnvelope("naive"))
	assert.Error(t, err)

	keys, err := arc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

type failingCatalog struct {
	*MemoryCatalog
	err error
}

func (c failingCatalog) Record(context.Context, Entry) error { return c.err }

func TestArchive_CatalogFailureRemovesBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	boom := errors.New("boom")
	arc := New(store, func(o *Options) {
		o.Catalog = failingCatalog{MemoryCatalog: NewMemoryCatalog(), err: boom}
	})

	key, err := arc.Put(ctx, testutil.SampleEnvelope("naive"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, key)

	assert.Equal(t, 0, store.Len())
	keys, err := arc.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
