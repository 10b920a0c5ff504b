// Package bolt provides a blobstore.Store backed by a single bbolt database file.
//
// It suits single-host deployments that want one durable file instead of a
// directory tree. Only one process may hold the database open at a time.
package bolt

import (
	"bytes"
	"context"
	"time"

	"github.com/hupe1980/ragfmt/blobstore"
	"go.etcd.io/bbolt"
)

// DefaultBucket is the bbolt bucket blobs are stored in.
const DefaultBucket = "blobs"

// Store implements blobstore.Store on top of bbolt.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

var _ blobstore.Store = (*Store)(nil)

// Options configures Open.
type Options struct {
	// Bucket is the bbolt bucket name. Default: DefaultBucket.
	Bucket string
	// Timeout is how long Open waits for the file lock. Default: 5s.
	Timeout time.Duration
}

// Open opens (or creates) the database at path.
func Open(path string, optFns ...func(*Options)) (*Store, error) {
	opts := Options{
		Bucket:  DefaultBucket,
		Timeout: 5 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, err
	}

	bucket := []byte(opts.Bucket)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: bucket}, nil
}

// Put writes a blob in a single transaction.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return blobstore.ErrInvalidName
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(name), data)
	})
}

// Get reads a blob.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(name))
		if v == nil {
			return blobstore.ErrNotFound
		}
		// v is only valid for the life of the transaction.
		out = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(name))
	})
}

// List returns all blob names with the given prefix, in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := []string{}
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
