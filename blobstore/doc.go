// Package blobstore provides the storage abstraction used to archive envelopes.
//
// Store is the interface for writing and reading whole blobs by name.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral use
//   - LocalStore: local filesystem with atomic writes
//   - bolt.Store: single-file bbolt database
//   - minio.Store: MinIO and S3-compatible services
//   - s3.Store: Amazon S3 with managed (multipart) uploads
//
// # Custom Implementations
//
//	type Store interface {
//	    Put(ctx, name, data) error          // Atomic write, replaces existing
//	    Get(ctx, name) ([]byte, error)      // ErrNotFound if missing
//	    List(ctx, prefix) ([]string, error) // Sorted names
//	    Delete(ctx, name) error             // Missing blobs are not an error
//	}
package blobstore
