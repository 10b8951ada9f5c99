package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_LoadMissing(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)

	_, found, err := s.Load(context.Background(), "widgets")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFile_StoreLoadRoundTrip(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "widgets", []byte(`{"version":1}`)))

	blob, found, err := s.Load(ctx, "widgets")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"version":1}`, string(blob))
}

func TestFile_Overwrite(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "widgets", []byte("first")))
	require.NoError(t, s.Store(ctx, "widgets", []byte("second")))

	blob, found, err := s.Load(ctx, "widgets")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", string(blob))
}

func TestFile_Erase(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "widgets", []byte("data")))
	require.NoError(t, s.Erase(ctx, "widgets"))

	_, found, err := s.Load(ctx, "widgets")
	require.NoError(t, err)
	assert.False(t, found)

	// Erasing an already-absent name is not an error.
	require.NoError(t, s.Erase(ctx, "widgets"))
}

func TestFile_NamesAreIsolated(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "a", []byte("alpha")))
	require.NoError(t, s.Store(ctx, "b", []byte("beta")))

	blobA, _, err := s.Load(ctx, "a")
	require.NoError(t, err)
	blobB, _, err := s.Load(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, "alpha", string(blobA))
	assert.Equal(t, "beta", string(blobB))
}
