package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	g, err := NewGraph(Config{Dims: 3, M: 6, EfConstruction: 20, EfSearch: 20, Metric: "cosine", Seed: 42})
	require.NoError(t, err)

	for i := 0; i < 64; i++ {
		v := float32(i)
		_, err := g.Add(Vector{v, v * 0.5, v * 0.25})
		require.NoError(t, err)
	}
	require.True(t, g.Delete(3))

	snap := g.Export()

	restored, err := NewGraph(Config{Dims: 3})
	require.NoError(t, err)
	require.NoError(t, restored.Import(snap))

	assert.Equal(t, g.Len(), restored.Len())
	assert.Equal(t, g.Cap(), restored.Cap())
	assert.Equal(t, g.Metric, restored.Metric)
	assert.Equal(t, g.M, restored.M)
	assert.True(t, restored.Deleted(3))

	q := Vector{10, 5, 2.5}
	want, err := g.Search(q, 5, 20)
	require.NoError(t, err)
	got, err := restored.Search(q, 5, 20)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshot_RejectsIncompatibleVersion(t *testing.T) {
	g, err := NewGraph(Config{Dims: 2})
	require.NoError(t, err)
	_, err = g.Add(Vector{1, 1})
	require.NoError(t, err)

	snap := g.Export()
	snap.Version = SnapshotVersion + 1

	fresh, err := NewGraph(Config{Dims: 2})
	require.NoError(t, err)
	err = fresh.Import(snap)
	require.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestSnapshot_RejectsDimensionMismatch(t *testing.T) {
	g, err := NewGraph(Config{Dims: 2})
	require.NoError(t, err)
	_, err = g.Add(Vector{1, 1})
	require.NoError(t, err)

	snap := g.Export()
	snap.Dims = 3

	fresh, err := NewGraph(Config{Dims: 2})
	require.NoError(t, err)
	err = fresh.Import(snap)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSnapshot_RNGStateSurvivesRoundTrip(t *testing.T) {
	g, err := NewGraph(Config{Dims: 1, Seed: 99})
	require.NoError(t, err)
	_, err = g.Add(Vector{1})
	require.NoError(t, err)

	snap := g.Export()

	restored, err := NewGraph(Config{Dims: 1})
	require.NoError(t, err)
	require.NoError(t, restored.Import(snap))

	wantLevel := g.randomLevel()
	gotLevel := restored.randomLevel()
	assert.Equal(t, wantLevel, gotLevel, "post-restore level sampling must continue deterministically")
}
