package graph

import (
	"errors"

	roaring "github.com/RoaringBitmap/roaring/v2"
)

// EmptyID is the sentinel marking an unused adjacency slot (§3).
const EmptyID int32 = -1

// ErrNotInitialized is returned by InitializeSearch when the graph
// has neither an initializer nor any entry points (§9, resolved in
// SPEC_FULL §13.3).
var ErrNotInitialized = errors.New("graph: no initializer and no entry points")

// Distancer is the minimal query-distance contract InitializeSearch
// needs. quantization.Quantizer satisfies this structurally.
type Distancer interface {
	QueryDistance(id int) float32
}

// Metadata is the persisted, descriptive record from §3/§6.
type Metadata struct {
	TotalEdges   uint64
	BuilderName  string
	DistanceType string
}

// DenseGraph is the fixed-arity adjacency arena of §4.C: a
// contiguous row-major node_t[num_nodes][max_degree] array, a
// parallel degrees slice, an entry-point set, and an optional
// hierarchical initializer for upper layers.
type DenseGraph struct {
	numNodes  int
	maxDegree int

	adjacency []int32
	degrees   []int32

	entryPoints *roaring.Bitmap

	initializer *HnswInitializer
	metadata    Metadata
}

// NewDenseGraph allocates a graph for numNodes nodes with the given
// per-row arity, zero-initialized to EmptyID (§4.C.initialize).
func NewDenseGraph(numNodes, maxDegree int) *DenseGraph {
	g := &DenseGraph{
		numNodes:    numNodes,
		maxDegree:   maxDegree,
		adjacency:   make([]int32, numNodes*maxDegree),
		degrees:     make([]int32, numNodes),
		entryPoints: roaring.New(),
	}
	for i := range g.adjacency {
		g.adjacency[i] = EmptyID
	}
	return g
}

func (g *DenseGraph) NumNodes() int   { return g.numNodes }
func (g *DenseGraph) MaxDegree() int  { return g.maxDegree }
func (g *DenseGraph) Metadata() Metadata { return g.metadata }
func (g *DenseGraph) SetMetadata(m Metadata) { g.metadata = m }

// SetNeighbors copies up to count<=max_degree ids into row u,
// filling the remainder of the row with EmptyID, and updates
// degrees[u].
func (g *DenseGraph) SetNeighbors(u int32, ids []int32) {
	row := g.row(u)
	n := len(ids)
	if n > g.maxDegree {
		n = g.maxDegree
	}
	copy(row, ids[:n])
	for i := n; i < g.maxDegree; i++ {
		row[i] = EmptyID
	}
	g.degrees[u] = int32(n)
}

// AddEdge idempotently inserts v into u's row. It is a silent no-op
// if v is already present or the row is full.
func (g *DenseGraph) AddEdge(u, v int32) {
	row := g.row(u)
	deg := g.degrees[u]
	for i := int32(0); i < deg; i++ {
		if row[i] == v {
			return
		}
	}
	if deg >= int32(g.maxDegree) {
		return
	}
	row[deg] = v
	g.degrees[u] = deg + 1
}

// RemoveEdge removes v from u's row by linear scan, compacting the
// row so active entries stay contiguous at the front.
func (g *DenseGraph) RemoveEdge(u, v int32) {
	row := g.row(u)
	deg := g.degrees[u]
	for i := int32(0); i < deg; i++ {
		if row[i] == v {
			for j := i; j < deg-1; j++ {
				row[j] = row[j+1]
			}
			row[deg-1] = EmptyID
			g.degrees[u] = deg - 1
			return
		}
	}
}

// Neighbors returns the full max_degree-wide row for u, including any
// trailing EmptyID slots.
func (g *DenseGraph) Neighbors(u int32) []int32 { return g.row(u) }

// Degree returns the active neighbor count for u.
func (g *DenseGraph) Degree(u int32) int32 { return g.degrees[u] }

// At returns the neighbor at index i of u's row (§4.G's graph.at).
func (g *DenseGraph) At(u int32, i int) int32 { return g.row(u)[i] }

func (g *DenseGraph) row(u int32) []int32 {
	start := int(u) * g.maxDegree
	return g.adjacency[start : start+g.maxDegree]
}

// PrefetchNeighbors issues up to lines cache-line touches on u's row.
func (g *DenseGraph) PrefetchNeighbors(u int32, lines int) {
	row := g.row(u)
	const intsPerLine = 16 // 64 bytes / 4-byte int32
	for l := 0; l < lines; l++ {
		idx := l * intsPerLine
		if idx >= len(row) {
			break
		}
		_ = row[idx]
	}
}

// SetEntryPoints replaces the base-layer entry point set.
func (g *DenseGraph) SetEntryPoints(ids []int32) {
	g.entryPoints = roaring.New()
	for _, id := range ids {
		g.entryPoints.Add(uint32(id))
	}
}

// EntryPoints returns the entry point ids in ascending order.
func (g *DenseGraph) EntryPoints() []int32 {
	it := g.entryPoints.Iterator()
	out := make([]int32, 0, g.entryPoints.GetCardinality())
	for it.HasNext() {
		out = append(out, int32(it.Next()))
	}
	return out
}

// SetInitializer attaches the hierarchical upper-layer initializer
// produced by the builder.
func (g *DenseGraph) SetInitializer(init *HnswInitializer) { g.initializer = init }

// Initializer returns the attached initializer, or nil.
func (g *DenseGraph) Initializer() *HnswInitializer { return g.initializer }

// InitializeSearch seeds pool for a new search (§4.C): if an
// initializer is present it performs the §4.D greedy descent;
// otherwise every entry point is inserted directly at its distance
// to the encoded query. Per SPEC_FULL §13.3, a graph with neither is
// ErrNotInitialized rather than silently producing an empty pool.
func (g *DenseGraph) InitializeSearch(pool *LinearPool, quant Distancer) error {
	if g.initializer != nil {
		g.initializer.Initialize(pool, quant)
		return nil
	}
	if g.entryPoints.IsEmpty() {
		return ErrNotInitialized
	}
	it := g.entryPoints.Iterator()
	for it.HasNext() {
		ep := int32(it.Next())
		pool.Insert(ep, quant.QueryDistance(int(ep)))
	}
	return nil
}
