package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeConformance exercises the Store contract shared by all implementations.
func storeConformance(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "idx/a", []byte("alpha")))
	require.NoError(t, store.Put(ctx, "idx/b", []byte("beta")))
	require.NoError(t, store.Put(ctx, "other/c", []byte("gamma")))

	blob, err := store.Open(ctx, "idx/a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), blob.Size())

	data, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
	require.NoError(t, blob.Close())

	// Put replaces existing content.
	require.NoError(t, store.Put(ctx, "idx/a", []byte("replaced")))
	blob, err = store.Open(ctx, "idx/a")
	require.NoError(t, err)
	data, err = ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "idx/")
	require.NoError(t, err)
	assert.Equal(t, []string{"idx/a", "idx/b"}, names)

	require.NoError(t, store.Delete(ctx, "idx/b"))
	require.NoError(t, store.Delete(ctx, "idx/b")) // idempotent
	_, err = store.Open(ctx, "idx/b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeConformance(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	storeConformance(t, store)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("mutable")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'X'

	blob, err := store.Open(ctx, "k")
	require.NoError(t, err)
	got, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "mutable", string(got))
}
