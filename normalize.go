package ragfmt

import (
	"context"
	"time"

	"fortio.org/safecast"
	"github.com/RoaringBitmap/roaring/v2"
)

// Normalize reshapes retrieval results into an Envelope.
//
// entities, relations and references are passed through unchanged; nil sequences
// are treated as empty. Every chunk is normalized to the four standard fields plus
// the extension fields requested with WithExtraChunkFields. queryMode is copied
// verbatim into the metadata.
//
// Normalize never fails and never reorders, deduplicates or drops results.
// It is safe for concurrent use with disjoint inputs.
func Normalize(entities, relations, chunks, references []Record, queryMode string, optFns ...Option) *Envelope {
	o := applyOptions(optFns)
	start := time.Now()

	env := o.normalize(entities, relations, chunks, references, queryMode)

	o.metricsCollector.RecordNormalize(queryMode, len(env.Data.Chunks), time.Since(start), nil)
	o.logger.LogNormalize(context.Background(), queryMode, env.Metadata.ProcessingInfo, nil)
	return env
}

func (o *options) normalize(entities, relations, chunks, references []Record, queryMode string) *Envelope {
	fields := projection(o.extraChunkFields)

	env := &Envelope{
		Status: StatusSuccess,
		Data: Data{
			Entities:      passthrough(entities),
			Relationships: passthrough(relations),
			Chunks:        make([]Chunk, len(chunks)),
			References:    passthrough(references),
		},
		Metadata: Metadata{
			QueryMode: queryMode,
			Keywords:  o.keywords.clone(),
		},
	}

	var cov *coverage
	if len(fields) > 0 {
		cov = newCoverage(fields)
	}
	for i, raw := range chunks {
		env.Data.Chunks[i] = normalizeChunk(raw, fields)
		if cov != nil {
			if err := cov.observe(i, env.Data.Chunks[i]); err != nil {
				o.logger.Warn("chunk index outside coverage range", "index", i, "error", err)
			}
		}
	}

	env.Metadata.ProcessingInfo = ProcessingInfo{
		TotalEntities:   len(env.Data.Entities),
		TotalRelations:  len(env.Data.Relationships),
		TotalChunks:     len(env.Data.Chunks),
		TotalReferences: len(env.Data.References),
	}
	if cov != nil {
		env.Metadata.ProcessingInfo.ExtraFields = cov.report(len(chunks))
		env.missing = cov.missing
	}
	return env
}

// normalizeChunk computes the standard fields first, then projects the extension
// fields. fields must already be filtered by projection.
func normalizeChunk(raw Record, fields []string) Chunk {
	var c Chunk
	for _, f := range standardFields {
		p := c.standardRef(f.name)
		*p = f.def
		if v, ok := raw[f.name]; ok && v != nil {
			*p = stringify(v)
		}
	}
	if len(fields) == 0 {
		return c
	}
	c.Extra = make([]Field, len(fields))
	for i, name := range fields {
		v, ok := raw[name]
		c.Extra[i] = Field{Name: name, Value: v, Present: ok}
	}
	return c
}

// projection drops standard field names and duplicates from the requested
// extension fields, keeping the first occurrence of each name.
func projection(requested []string) []string {
	if len(requested) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, name := range requested {
		if IsStandardField(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func passthrough(s []Record) []Record {
	if s == nil {
		return []Record{}
	}
	return s
}

type coverage struct {
	fields  []string
	present []int
	missing map[string]*roaring.Bitmap
}

func newCoverage(fields []string) *coverage {
	c := &coverage{
		fields:  fields,
		present: make([]int, len(fields)),
		missing: make(map[string]*roaring.Bitmap, len(fields)),
	}
	for _, f := range fields {
		c.missing[f] = roaring.New()
	}
	return c
}

func (c *coverage) observe(i int, chunk Chunk) error {
	for j, f := range chunk.Extra {
		if f.Present {
			c.present[j]++
			continue
		}
		idx, err := safecast.Conv[uint32](i)
		if err != nil {
			return err
		}
		c.missing[f.Name].Add(idx)
	}
	return nil
}

func (c *coverage) report(total int) []FieldCoverage {
	out := make([]FieldCoverage, len(c.fields))
	for j, f := range c.fields {
		out[j] = FieldCoverage{Field: f, Present: c.present[j], Missing: total - c.present[j]}
	}
	return out
}
