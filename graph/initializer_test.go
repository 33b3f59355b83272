package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHnswInitializerGreedyDescent covers §4.D: the descent follows
// strictly improving neighbors at each layer down to the best node
// found at layer 1, and seeds the pool with it.
func TestHnswInitializerGreedyDescent(t *testing.T) {
	// Topology: ep=3 at layer 2, neighbor 2 at layer 2 improves on 3;
	// at layer 1, node 2 has neighbor 0 which is the global best.
	init := NewHnswInitializer(4, 2)
	init.SetEntryPoint(3)

	init.SetLevels(3, 2)
	init.SetEdges(2, 3, []int32{2})
	init.SetEdges(1, 3, []int32{})

	init.SetLevels(2, 2)
	init.SetEdges(2, 2, []int32{}) // no further improvement at layer 2
	init.SetEdges(1, 2, []int32{0})

	init.SetLevels(0, 1) // a layer-1 neighbor of 2, so it has a layer-1 row
	init.SetLevels(1, 0)

	dist := map[int32]float32{3: 10, 2: 5, 0: 1, 1: 8}
	quant := fakeDistancer{func(id int) float32 { return dist[int32(id)] }}

	pool := NewLinearPool(4, 5, 5)
	init.Initialize(pool, quant)

	require.Equal(t, 1, pool.Size())
	assert.Equal(t, int32(0), pool.ID(0))
	assert.Equal(t, float32(1), pool.Distance(0))
}

// TestHnswInitializerDescentStopsAtLocalMinimum covers the case where
// no neighbor improves at a layer: the search stays at the current
// node through to layer 1.
func TestHnswInitializerDescentStopsAtLocalMinimum(t *testing.T) {
	init := NewHnswInitializer(2, 2)
	init.SetEntryPoint(0)
	init.SetLevels(0, 1)
	init.SetEdges(1, 0, []int32{1})
	init.SetLevels(1, 0)

	dist := map[int32]float32{0: 1, 1: 9} // neighbor 1 is worse; no improvement
	quant := fakeDistancer{func(id int) float32 { return dist[int32(id)] }}

	pool := NewLinearPool(2, 2, 2)
	init.Initialize(pool, quant)

	require.Equal(t, 1, pool.Size())
	assert.Equal(t, int32(0), pool.ID(0))
}
