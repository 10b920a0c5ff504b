// Package ragfmt normalizes retrieval results into a single, stable response envelope.
//
// Upstream retrieval stages (vector search, graph traversal, keyword search) emit
// loosely-structured result sets: entities, relations, text chunks and source
// references, each as a sequence of maps. ragfmt reshapes them into one canonical
// envelope that APIs, UIs and logs can rely on regardless of which retrieval mode
// produced the data.
//
// # Quick Start
//
//	env := ragfmt.Normalize(entities, relations, chunks, references, "hybrid")
//	b, _ := codec.Default.Marshal(env)
//
// # Envelope Shape
//
//	{
//	  "status": "success",
//	  "data": {
//	    "entities": [...],       // passthrough
//	    "relationships": [...],  // passthrough
//	    "chunks": [{"reference_id": "", "content": "", "file_path": "", "chunk_id": ""}],
//	    "references": [...]      // passthrough
//	  },
//	  "metadata": {"query_mode": "hybrid", "processing_info": {...}}
//	}
//
// Every chunk carries exactly four standard fields. Missing values fall back to
// "" (file_path falls back to "unknown_source").
//
// # Extension Fields
//
// Callers can project additional keys from the raw chunks:
//
//	env := ragfmt.Normalize(nil, nil, chunks, nil, "naive",
//	    ragfmt.WithExtraChunkFields("page_idx", "section"))
//
// A requested key is always present in the output chunk. If the raw chunk lacks
// it, the value is null. Keys that were not requested never appear, so consumers
// can tell "not requested" from "requested but absent". Requesting a standard
// field name has no effect.
//
// # Untyped Input
//
// NormalizeAny and RawResult accept untyped sequences (for example decoded JSON)
// and reject elements that are not maps with ErrMalformedInput instead of
// coercing them.
//
// # Beyond the Core
//
//   - codec: JSON, go-json and msgpack encodings of envelopes
//   - compress: LZ4/ZSTD block compression
//   - blobstore: memory, local, bbolt, MinIO and S3 backends
//   - archive: self-describing envelope blobs with an optional catalog
//   - metrics/prometheus: Prometheus collector
package ragfmt
