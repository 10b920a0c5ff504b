package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreTests exercises the Store contract against a fresh store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "a/one.env", []byte("hello")))

		got, err := s.Get(ctx, "a/one.env")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "k", []byte("v1")))
		require.NoError(t, s.Put(ctx, "k", []byte("v2")))

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "missing")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ListPrefixSorted", func(t *testing.T) {
		s := newStore(t)
		for _, n := range []string{"x/b", "x/a", "y/c", "x/c"} {
			require.NoError(t, s.Put(ctx, n, []byte(n)))
		}

		names, err := s.List(ctx, "x/")
		require.NoError(t, err)
		assert.Equal(t, []string{"x/a", "x/b", "x/c"}, names)

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t)
		names, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "k", []byte("v")))
		require.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Get(ctx, "k")
		assert.True(t, errors.Is(err, ErrNotFound))

		// Deleting again is not an error.
		assert.NoError(t, s.Delete(ctx, "k"))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, s.Put(cctx, "k", []byte("v")))
	})
}

func TestMemoryStore(t *testing.T) {
	RunStoreTests(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	data := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", data))
	data[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'z'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, s.Len())
}

func TestLocalStore(t *testing.T) {
	RunStoreTests(t, func(t *testing.T) Store { return NewLocalStore(t.TempDir()) })
}

func TestLocalStore_InvalidName(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, name := range []string{"", "../escape", "/abs"} {
		err := s.Put(ctx, name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStore_SkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "real", []byte("x")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-123"), []byte("partial"), 0o600))

	names, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, names)
}

func TestLocalStore_MissingRoot(t *testing.T) {
	s := NewLocalStore(filepath.Join(t.TempDir(), "not-yet"))
	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFilterPrefix(t *testing.T) {
	got := FilterPrefix([]string{"b/2", "a/1", "b/1"}, "b/")
	assert.Equal(t, []string{"b/1", "b/2"}, got)
}
