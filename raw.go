package ragfmt

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/ragfmt/codec"
)

// Input section names reported by MalformedInputError.
const (
	SectionEntities   = "entities"
	SectionRelations  = "relations"
	SectionChunks     = "chunks"
	SectionReferences = "references"
	SectionBatch      = "batch"
)

// NormalizeAny is Normalize for untyped sequences, such as decoded JSON arrays.
//
// Every element must be a map[string]any. The first element that is not
// (including nil) aborts the call with a *MalformedInputError; no partial
// envelope is returned.
func NormalizeAny(entities, relations, chunks, references []any, queryMode string, optFns ...Option) (*Envelope, error) {
	o := applyOptions(optFns)
	return o.normalizeAny(entities, relations, chunks, references, queryMode)
}

func (o *options) normalizeAny(entities, relations, chunks, references []any, queryMode string) (*Envelope, error) {
	start := time.Now()
	env, err := o.normalizeUntyped(entities, relations, chunks, references, queryMode)
	if err != nil {
		o.metricsCollector.RecordNormalize(queryMode, 0, time.Since(start), err)
		o.logger.LogNormalize(context.Background(), queryMode, ProcessingInfo{}, err)
		return nil, err
	}
	o.metricsCollector.RecordNormalize(queryMode, len(env.Data.Chunks), time.Since(start), nil)
	o.logger.LogNormalize(context.Background(), queryMode, env.Metadata.ProcessingInfo, nil)
	return env, nil
}

func (o *options) normalizeUntyped(entities, relations, chunks, references []any, queryMode string) (*Envelope, error) {
	ents, err := asRecords(SectionEntities, entities)
	if err != nil {
		return nil, err
	}
	rels, err := asRecords(SectionRelations, relations)
	if err != nil {
		return nil, err
	}
	chs, err := asRecords(SectionChunks, chunks)
	if err != nil {
		return nil, err
	}
	refs, err := asRecords(SectionReferences, references)
	if err != nil {
		return nil, err
	}
	return o.normalize(ents, rels, chs, refs, queryMode), nil
}

func asRecords(section string, items []any) ([]Record, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]Record, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, &MalformedInputError{Section: section, Index: i, Type: fmt.Sprintf("%T", item)}
		}
		out[i] = m
	}
	return out, nil
}

// RawResult is the document shape emitted by upstream retrieval stages.
type RawResult struct {
	Entities   []any  `json:"entities_context"`
	Relations  []any  `json:"relations_context"`
	Chunks     []any  `json:"chunks"`
	References []any  `json:"references"`
	QueryMode  string `json:"query_mode,omitempty"`
}

// DecodeRawResult decodes a raw result document with the given codec.
// If c is nil, codec.Default is used.
func DecodeRawResult(data []byte, c codec.Codec) (*RawResult, error) {
	if c == nil {
		c = codec.Default
	}
	var r RawResult
	if err := c.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrDecode, c.Name(), err)
	}
	return &r, nil
}

// Normalize normalizes the raw result. The query mode recorded in the document is
// used unless WithQueryMode supplies a non-empty one.
func (r *RawResult) Normalize(optFns ...Option) (*Envelope, error) {
	o := applyOptions(optFns)
	return r.normalize(&o)
}

func (r *RawResult) normalize(o *options) (*Envelope, error) {
	mode := r.QueryMode
	if o.queryMode != "" {
		mode = o.queryMode
	}
	return o.normalizeAny(r.Entities, r.Relations, r.Chunks, r.References, mode)
}
