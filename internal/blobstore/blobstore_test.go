package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/gitscout-mcp/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPut_Idempotent(t *testing.T) {
	s := newTestStore(t)
	content := []byte("package main\n\nfunc main() {}\n")

	h1, err := s.Put(content)
	require.NoError(t, err)
	h2, err := s.Put(content)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "identical content must produce exactly one entry")

	refs, err := s.RefCount(h1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), refs)
}

func TestPut_DistinctContent(t *testing.T) {
	s := newTestStore(t)

	h1, err := s.Put([]byte("alpha"))
	require.NoError(t, err)
	h2, err := s.Put([]byte("beta"))
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	content := []byte("some file content\nwith two lines\n")

	h, err := s.Put(content)
	require.NoError(t, err)

	got, err := s.Get(h)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	ok, err := s.Exists(h)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	missing := types.HashBytes([]byte("never stored"))

	_, err := s.Get(missing)
	require.ErrorIs(t, err, types.ErrNotFound)

	ok, err := s.Exists(missing)
	require.NoError(t, err)
	assert.False(t, ok)

	refs, err := s.RefCount(missing)
	require.NoError(t, err)
	assert.Zero(t, refs)
}

func TestPut_EmptyContent(t *testing.T) {
	s := newTestStore(t)

	h, err := s.Put(nil)
	require.NoError(t, err)
	assert.Equal(t, types.HashBytes(nil), h)

	got, err := s.Get(h)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Path: dir})
	require.NoError(t, err)

	content := []byte("durable content")
	h, err := s.Put(content)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopen and read back.
	s2, err := Open(Options{Path: dir})
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, err := s2.Get(h)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}
