package minio

import (
	"context"
	"os"
	"testing"

	"github.com/hupe1980/ragfmt/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := envOr("RAGFMT_MINIO_ENDPOINT", "localhost:9000")
	accessKey := envOr("RAGFMT_MINIO_ACCESS_KEY", "minioadmin")
	secretKey := envOr("RAGFMT_MINIO_SECRET_KEY", "minioadmin")
	bucket := "test-ragfmt"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	_, err = client.ListBuckets(ctx)
	if err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		require.NoError(t, err)
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "naive/test.env", data))

	got, err := store.Get(ctx, "naive/test.env")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "naive/")
	require.NoError(t, err)
	assert.Contains(t, names, "naive/test.env")

	require.NoError(t, store.Delete(ctx, "naive/test.env"))

	_, err = store.Get(ctx, "naive/test.env")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	// Deleting again is fine.
	assert.NoError(t, store.Delete(ctx, "naive/test.env"))
}

func TestMinioStore_ObjectNames(t *testing.T) {
	s := NewStore(nil, "bucket", "/root/")
	assert.Equal(t, "root/a/b.env", s.objectName("a/b.env"))
	assert.Equal(t, "a/b.env", s.blobName("root/a/b.env"))

	s = NewStore(nil, "bucket", "")
	assert.Equal(t, "a.env", s.objectName("a.env"))
	assert.Equal(t, "a.env", s.blobName("a.env"))
}

func TestMinioStore_PutInvalidName(t *testing.T) {
	s := NewStore(nil, "bucket", "")
	assert.ErrorIs(t, s.Put(context.Background(), "", []byte("x")), blobstore.ErrInvalidName)
}
