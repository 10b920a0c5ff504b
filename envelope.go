package ragfmt

import (
	"fortio.org/safecast"
	"github.com/RoaringBitmap/roaring/v2"
)

// Status is the outcome tag of an envelope.
type Status string

// StatusSuccess is the only status Normalize produces.
const StatusSuccess Status = "success"

// Envelope is the canonical response returned to external consumers.
type Envelope struct {
	Status   Status   `json:"status"`
	Data     Data     `json:"data"`
	Metadata Metadata `json:"metadata"`

	// missing maps each requested extension field to the indices of chunks
	// that lacked it. Only set on envelopes built by this package.
	missing map[string]*roaring.Bitmap
}

// Data holds the four result sequences. None of them is ever nil.
type Data struct {
	Entities      []Record `json:"entities"`
	Relationships []Record `json:"relationships"`
	Chunks        []Chunk  `json:"chunks"`
	References    []Record `json:"references"`
}

// Metadata describes how the envelope was produced.
type Metadata struct {
	QueryMode      string         `json:"query_mode"`
	Keywords       *Keywords      `json:"keywords,omitempty"`
	ProcessingInfo ProcessingInfo `json:"processing_info"`
}

// Keywords are the high- and low-level keywords extracted from the query upstream.
type Keywords struct {
	HighLevel []string `json:"high_level"`
	LowLevel  []string `json:"low_level"`
}

// ProcessingInfo carries result counts.
type ProcessingInfo struct {
	TotalEntities   int `json:"total_entities"`
	TotalRelations  int `json:"total_relations"`
	TotalChunks     int `json:"total_chunks"`
	TotalReferences int `json:"total_references"`

	// ExtraFields reports, per requested extension field, how many chunks carried it.
	ExtraFields []FieldCoverage `json:"extra_fields,omitempty"`
}

// FieldCoverage counts the chunks that carried or lacked a requested extension field.
type FieldCoverage struct {
	Field   string `json:"field"`
	Present int    `json:"present"`
	Missing int    `json:"missing"`
}

// MissingChunks returns, in ascending order, the indices of chunks that lacked the
// requested extension field. It returns nil if the field was not requested or every
// chunk carried it.
func (e *Envelope) MissingChunks(field string) []int {
	bm, ok := e.missing[field]
	if !ok {
		bm = e.scanMissing(field)
	}
	if bm == nil || bm.IsEmpty() {
		return nil
	}
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		idx, err := safecast.Conv[int](it.Next())
		if err != nil {
			break
		}
		out = append(out, idx)
	}
	return out
}

// scanMissing rebuilds the missing-index bitmap from the chunks, used for
// envelopes that were decoded rather than built by Normalize.
func (e *Envelope) scanMissing(field string) *roaring.Bitmap {
	var bm *roaring.Bitmap
	for i, c := range e.Data.Chunks {
		for _, f := range c.Extra {
			if f.Name != field {
				continue
			}
			if bm == nil {
				bm = roaring.New()
			}
			if !f.Present {
				idx, err := safecast.Conv[uint32](i)
				if err != nil {
					return bm
				}
				bm.Add(idx)
			}
			break
		}
	}
	return bm
}
