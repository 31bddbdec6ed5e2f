package persist_test

import (
	"testing"

	"github.com/cuemby/warren/pkg/blob"
	"github.com/cuemby/warren/pkg/persist"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutGet(t *testing.T) {
	dir := t.TempDir()
	s, err := persist.OpenBlobStore(dir)
	require.NoError(t, err)
	defer s.Close()

	hash, err := s.Put([]byte("hello"))
	require.NoError(t, err)

	got, err := s.Get(hash)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestBlobStorePutIsIdempotentByContent(t *testing.T) {
	dir := t.TempDir()
	s, err := persist.OpenBlobStore(dir)
	require.NoError(t, err)
	defer s.Close()

	h1, err := s.Put([]byte("data"))
	require.NoError(t, err)
	h2, err := s.Put([]byte("data"))
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	count, err := s.Decr(h1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)

	got, err := s.Get(h1)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), got)
}

func TestBlobStoreDecrToZeroFreesEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := persist.OpenBlobStore(dir)
	require.NoError(t, err)
	defer s.Close()

	hash, err := s.Put([]byte("gone soon"))
	require.NoError(t, err)

	count, err := s.Decr(hash)
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)

	_, err = s.Get(hash)
	require.ErrorIs(t, err, blob.ErrNotFound)
}

func TestBlobStoreIncrOnMissingHashErrors(t *testing.T) {
	dir := t.TempDir()
	s, err := persist.OpenBlobStore(dir)
	require.NoError(t, err)
	defer s.Close()

	var hash [32]byte
	err = s.Incr(hash)
	require.ErrorIs(t, err, blob.ErrNotFound)
}
