package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchDelete(t *testing.T) {
	g, err := NewGraph(Config{Dims: 3, Metric: "cosine"})
	require.NoError(t, err)

	slots := make([]int, 10)
	for i := 0; i < 10; i++ {
		v := float32(i + 1)
		slot, err := g.Add(Vector{v, v, v})
		require.NoError(t, err)
		slots[i] = slot
	}
	require.Equal(t, 10, g.Len())

	t.Run("Delete existing nodes", func(t *testing.T) {
		toDelete := []int{slots[0], slots[2], slots[4]}
		results := g.BatchDelete(toDelete)
		assert.Equal(t, []bool{true, true, true}, results)
		assert.Equal(t, 7, g.Len())

		for _, slot := range toDelete {
			assert.True(t, g.Deleted(slot))
		}
		for _, i := range []int{1, 3, 5, 6, 7, 8, 9} {
			assert.False(t, g.Deleted(slots[i]))
		}
	})

	t.Run("Delete out-of-range slots", func(t *testing.T) {
		results := g.BatchDelete([]int{1000, 1001})
		assert.Equal(t, []bool{false, false}, results)
		assert.Equal(t, 7, g.Len())
	})

	t.Run("Delete already-tombstoned slot", func(t *testing.T) {
		results := g.BatchDelete([]int{slots[0]})
		assert.Equal(t, []bool{false}, results, "deleting a tombstoned slot again reports failure")
		assert.Equal(t, 7, g.Len())
	})

	t.Run("Delete mixed existing and invalid slots", func(t *testing.T) {
		toDelete := []int{slots[1], 999, slots[3]}
		results := g.BatchDelete(toDelete)
		assert.Equal(t, []bool{true, false, true}, results)
		assert.Equal(t, 5, g.Len())
	})

	t.Run("Delete with empty slice", func(t *testing.T) {
		results := g.BatchDelete([]int{})
		assert.Equal(t, []bool{}, results)
		assert.Equal(t, 5, g.Len())
	})

	t.Run("Delete all remaining nodes", func(t *testing.T) {
		remaining := []int{slots[5], slots[6], slots[7], slots[8], slots[9]}
		results := g.BatchDelete(remaining)
		for _, ok := range results {
			assert.True(t, ok)
		}
		assert.Equal(t, 0, g.Len())
	})
}

func TestBatchDeleteLargeGraph(t *testing.T) {
	g, err := NewGraph(Config{Dims: 3, Metric: "cosine"})
	require.NoError(t, err)

	slots := make([]int, 100)
	for i := 0; i < 100; i++ {
		v := float32(i + 1)
		slot, err := g.Add(Vector{v, v, v})
		require.NoError(t, err)
		slots[i] = slot
	}
	require.Equal(t, 100, g.Len())

	var batch []int
	batch = append(batch, slots[0:20]...)
	batch = append(batch, slots[40:60]...)
	batch = append(batch, slots[80:100]...)

	results := g.BatchDelete(batch)
	for i, ok := range results {
		assert.True(t, ok, "deletion of slot %d should succeed", batch[i])
	}
	assert.Equal(t, 40, g.Len())

	deleted := make(map[int]bool, len(batch))
	for _, s := range batch {
		deleted[s] = true
	}
	for i, slot := range slots {
		assert.Equal(t, deleted[slot], g.Deleted(slot), "slot for index %d", i)
	}
}

func BenchmarkBatchDelete(b *testing.B) {
	buildGraph := func() (*Graph, []int) {
		g, _ := NewGraph(Config{Dims: 128})
		slots := make([]int, 1000)
		for i := 0; i < 1000; i++ {
			vector := make(Vector, 128)
			for j := range vector {
				vector[j] = float32(i) * 0.01
			}
			slots[i], _ = g.Add(vector)
		}
		return g, slots
	}

	b.Run("Individual Deletes", func(b *testing.B) {
		g, slots := buildGraph()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			for j := 0; j < 10; j++ {
				g.Delete(slots[j])
			}
		}
	})

	b.Run("Small Batch (10)", func(b *testing.B) {
		g, slots := buildGraph()
		batch := slots[0:10]
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			g.BatchDelete(batch)
		}
	})

	b.Run("Medium Batch (100)", func(b *testing.B) {
		g, slots := buildGraph()
		batch := slots[200:300]
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			g.BatchDelete(batch)
		}
	})

	b.Run("Large Batch (500)", func(b *testing.B) {
		g, slots := buildGraph()
		batch := slots[400:900]
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			g.BatchDelete(batch)
		}
	})
}
