package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/ragfmt/archive"
	"github.com/hupe1980/ragfmt/blobstore"
	"github.com/hupe1980/ragfmt/codec"
	"github.com/hupe1980/ragfmt/internal/config"
	"github.com/hupe1980/ragfmt/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "r1.envelope.json"), outputPath("out", "/in/r1.json", codec.GoJSON{}))
	assert.Equal(t, filepath.Join("out", "r1.envelope.msgpack"), outputPath("out", "/in/r1.json", codec.Msgpack{}))
}

func TestIsEnvelopeFile(t *testing.T) {
	assert.True(t, isEnvelopeFile("/x/r1.envelope.json"))
	assert.False(t, isEnvelopeFile("/x/r1.json"))
	assert.False(t, isEnvelopeFile("/x/envelope.json"))
}

func TestProcessor_Process(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	path := writeFile(t, in, "r1.json", testutil.SampleRawJSON)

	a := &app{cfg: config.Default(), logger: nil}
	n := &normalizer{in: codec.JSON{}, out: codec.GoJSON{}}
	arc := archive.New(blobstore.NewMemoryStore())

	p := &processor{app: a, norm: n, archive: arc, outDir: out}
	env, key, outFile, err := p.process(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "mix", env.Metadata.QueryMode)
	assert.NotEmpty(t, key)
	assert.Equal(t, filepath.Join(out, "r1.envelope.json"), outFile)

	b, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"success"`)

	got, err := arc.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, env.Metadata.ProcessingInfo, got.Metadata.ProcessingInfo)
}

func TestProcessor_ProcessMalformed(t *testing.T) {
	in := t.TempDir()
	path := writeFile(t, in, "bad.json", `{"chunks": ["x"]}`)

	p := &processor{
		app:    &app{cfg: config.Default()},
		norm:   &normalizer{in: codec.JSON{}, out: codec.JSON{}},
		outDir: t.TempDir(),
	}
	_, _, _, err := p.process(context.Background(), path)
	assert.Error(t, err)
}
