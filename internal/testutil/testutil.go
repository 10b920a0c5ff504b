// Package testutil provides shared fixtures for ragfmt tests.
package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/ragfmt"
)

// RNG wraps a seeded random source.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Chunks returns n raw chunks. Each chunk carries the standard fields and,
// with probability 1/2 each, "page_idx" and "section". Some chunks omit
// "file_path" to exercise its default.
func (r *RNG) Chunks(n int) []ragfmt.Record {
	out := make([]ragfmt.Record, n)
	for i := range out {
		c := ragfmt.Record{
			ragfmt.FieldReferenceID: fmt.Sprintf("%d", r.Intn(10)),
			ragfmt.FieldContent:     fmt.Sprintf("content %d", i),
			ragfmt.FieldChunkID:     fmt.Sprintf("chunk-%d", i),
		}
		if r.Intn(4) != 0 {
			c[ragfmt.FieldFilePath] = fmt.Sprintf("/docs/%d.md", r.Intn(100))
		}
		if r.Intn(2) == 0 {
			c["page_idx"] = r.Intn(500)
		}
		if r.Intn(2) == 0 {
			c["section"] = fmt.Sprintf("section %d", r.Intn(20))
		}
		out[i] = c
	}
	return out
}

// Entities returns n opaque entity records.
func (r *RNG) Entities(n int) []ragfmt.Record {
	out := make([]ragfmt.Record, n)
	for i := range out {
		out[i] = ragfmt.Record{
			"entity_name": fmt.Sprintf("E%d", i),
			"rank":        r.Intn(100),
		}
	}
	return out
}

// SampleChunks returns the chunks used throughout the tests: the first has a
// "page_idx", the second lacks it and a file path.
func SampleChunks() []ragfmt.Record {
	return []ragfmt.Record{
		{
			"reference_id": "1",
			"content":      "alpha",
			"file_path":    "/a.pdf",
			"chunk_id":     "c1",
			"page_idx":     3,
		},
		{
			"reference_id": "2",
			"content":      "beta",
			"chunk_id":     "c2",
		},
	}
}

// SampleEnvelope returns the envelope of SampleChunks with one entity, one
// relation and one reference, projecting "page_idx".
func SampleEnvelope(queryMode string) *ragfmt.Envelope {
	return ragfmt.Normalize(
		[]ragfmt.Record{{"entity_name": "Alpha"}},
		[]ragfmt.Record{{"src_id": "Alpha", "tgt_id": "Beta"}},
		SampleChunks(),
		[]ragfmt.Record{{"reference_id": "1", "file_path": "/a.pdf"}},
		queryMode,
		ragfmt.WithExtraChunkFields("page_idx"),
	)
}

// SampleRawJSON is a raw retrieval result document.
const SampleRawJSON = `{
  "entities_context": [{"entity_name": "Alpha"}],
  "relations_context": [{"src_id": "Alpha", "tgt_id": "Beta"}],
  "chunks": [
    {"reference_id": "1", "content": "alpha", "file_path": "/a.pdf", "chunk_id": "c1", "page_idx": 3},
    {"reference_id": "2", "content": "beta", "chunk_id": "c2"}
  ],
  "references": [{"reference_id": "1", "file_path": "/a.pdf"}],
  "query_mode": "mix"
}`
