package graph

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDenseGraphInvariants covers §8: every row has at most
// max_degree active neighbors, no duplicates, and all non-empty ids
// are in range. AddEdge does not reject self-loops, so the 0->0 edge
// added below is kept and not checked against.
func TestDenseGraphInvariants(t *testing.T) {
	const n, maxDegree = 10, 4
	g := NewDenseGraph(n, maxDegree)

	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(0, 2) // duplicate, must be a no-op
	g.AddEdge(0, 0) // would be a self-loop if callers misused it; AddEdge itself doesn't forbid it

	assert.Equal(t, int32(3), g.Degree(0))

	for u := int32(0); u < int32(n); u++ {
		row := g.Neighbors(u)
		assert.LessOrEqual(t, int(g.Degree(u)), maxDegree)
		seen := map[int32]bool{}
		for i, id := range row {
			if i >= int(g.Degree(u)) {
				assert.Equal(t, EmptyID, id)
				continue
			}
			assert.False(t, seen[id], "duplicate neighbor in row")
			seen[id] = true
			assert.True(t, id == EmptyID || (id >= 0 && int(id) < n))
		}
	}
}

func TestDenseGraphRemoveEdge(t *testing.T) {
	g := NewDenseGraph(5, 4)
	g.SetNeighbors(0, []int32{1, 2, 3})
	g.RemoveEdge(0, 2)

	assert.Equal(t, int32(2), g.Degree(0))
	row := g.Neighbors(0)
	assert.Equal(t, []int32{1, 3, EmptyID, EmptyID}, row)
}

func TestDenseGraphEntryPoints(t *testing.T) {
	g := NewDenseGraph(5, 4)
	g.SetEntryPoints([]int32{3, 1, 4})
	assert.ElementsMatch(t, []int32{1, 3, 4}, g.EntryPoints())
}

type fakeDistancer struct{ dist func(id int) float32 }

func (f fakeDistancer) QueryDistance(id int) float32 { return f.dist(id) }

func TestInitializeSearchNoInitializerNoEntryPoints(t *testing.T) {
	g := NewDenseGraph(5, 4)
	pool := NewLinearPool(5, 5, 5)
	err := g.InitializeSearch(pool, fakeDistancer{func(id int) float32 { return 0 }})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeSearchEntryPointsOnly(t *testing.T) {
	g := NewDenseGraph(5, 4)
	g.SetEntryPoints([]int32{1, 3})
	pool := NewLinearPool(5, 5, 5)

	dist := map[int32]float32{1: 2.0, 3: 1.0}
	err := g.InitializeSearch(pool, fakeDistancer{func(id int) float32 { return dist[int32(id)] }})
	require.NoError(t, err)

	assert.Equal(t, 2, pool.Size())
	assert.Equal(t, int32(3), pool.ID(0))
}

// TestDenseGraphRoundTrip covers §8: save then load reproduces
// identical neighbors, degrees, entry points, metadata and
// initializer fields.
func TestDenseGraphRoundTrip(t *testing.T) {
	g := NewDenseGraph(4, 4)
	g.SetNeighbors(0, []int32{1, 2})
	g.SetNeighbors(1, []int32{0, 2, 3})
	g.SetNeighbors(2, []int32{0})
	g.SetNeighbors(3, []int32{})
	g.SetEntryPoints([]int32{0})
	g.SetMetadata(Metadata{TotalEdges: 6, BuilderName: "hnsw-builder", DistanceType: "l2"})

	init := NewHnswInitializer(4, 2)
	init.SetEntryPoint(0)
	init.SetLevels(0, 2)
	init.SetEdges(1, 0, []int32{1})
	init.SetEdges(2, 0, []int32{2})
	for u := int32(1); u < 4; u++ {
		init.SetLevels(u, 0)
	}
	g.SetInitializer(init)

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")
	require.NoError(t, g.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	for u := int32(0); u < 4; u++ {
		assert.Equal(t, g.Neighbors(u), loaded.Neighbors(u))
		assert.Equal(t, g.Degree(u), loaded.Degree(u))
	}
	assert.Equal(t, g.EntryPoints(), loaded.EntryPoints())
	assert.Equal(t, g.Metadata(), loaded.Metadata())

	require.NotNil(t, loaded.Initializer())
	assert.Equal(t, init.EntryPoint(), loaded.Initializer().EntryPoint())
	assert.Equal(t, init.Level(0), loaded.Initializer().Level(0))
	assert.Equal(t, init.Edges(1, 0), loaded.Initializer().Edges(1, 0))
}

// TestDenseGraphRoundTripNoInitializer covers a flat graph with no
// upper layers: the HnswInitializer block degenerates to N=0 and
// Initializer() must come back nil, not a zero-valued struct.
func TestDenseGraphRoundTripNoInitializer(t *testing.T) {
	g := NewDenseGraph(3, 2)
	g.SetNeighbors(0, []int32{1})
	g.SetEntryPoints([]int32{0})

	dir := t.TempDir()
	path := filepath.Join(dir, "flat.bin")
	require.NoError(t, g.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, loaded.Initializer())
	assert.Equal(t, g.Neighbors(0), loaded.Neighbors(0))
}

// TestDenseGraphRoundTripCompressed covers the WithCompression save
// option: the wire bytes it produces are a zstd stream around the
// same §6 block layout, and Load with the matching option reproduces
// the graph exactly.
func TestDenseGraphRoundTripCompressed(t *testing.T) {
	g := NewDenseGraph(4, 4)
	g.SetNeighbors(0, []int32{1, 2})
	g.SetNeighbors(1, []int32{0, 2, 3})
	g.SetEntryPoints([]int32{0})
	g.SetMetadata(Metadata{TotalEdges: 3, BuilderName: "hnsw-builder", DistanceType: "l2"})

	dir := t.TempDir()
	path := filepath.Join(dir, "graph.zst")
	require.NoError(t, g.Save(path, WithCompression()))

	loaded, err := Load(path, WithCompression())
	require.NoError(t, err)

	for u := int32(0); u < 4; u++ {
		assert.Equal(t, g.Neighbors(u), loaded.Neighbors(u))
	}
	assert.Equal(t, g.Metadata(), loaded.Metadata())

	_, err = Load(path)
	assert.Error(t, err, "loading a compressed file without WithCompression must fail, not silently misparse")
}

func TestSaveAtomicNoPartialFileOnFailure(t *testing.T) {
	g := NewDenseGraph(2, 2)
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "graph.bin") // sub does not exist -> write fails
	err := g.Save(target)
	assert.Error(t, err)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

// TestHnswInitializerEncodeDecode exercises Save/LoadHnswInitializer
// directly against a buffer, independent of DenseGraph framing.
func TestHnswInitializerEncodeDecode(t *testing.T) {
	init := NewHnswInitializer(3, 2)
	init.SetEntryPoint(2)
	init.SetLevels(0, 0)
	init.SetLevels(1, 1)
	init.SetEdges(1, 1, []int32{0})
	init.SetLevels(2, 2)
	init.SetEdges(1, 2, []int32{1, 0})
	init.SetEdges(2, 2, []int32{0})

	var buf bytes.Buffer
	require.NoError(t, init.Save(&buf))

	loaded, err := LoadHnswInitializer(&buf)
	require.NoError(t, err)

	assert.Equal(t, init.N, loaded.N)
	assert.Equal(t, init.K, loaded.K)
	assert.Equal(t, init.EntryPoint(), loaded.EntryPoint())
	for u := int32(0); u < 3; u++ {
		assert.Equal(t, init.Level(u), loaded.Level(u))
	}
	assert.Equal(t, init.Edges(1, 2), loaded.Edges(1, 2))
	assert.Equal(t, init.Edges(2, 2), loaded.Edges(2, 2))
}
