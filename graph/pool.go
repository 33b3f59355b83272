package graph

import (
	"sort"

	"github.com/hupe1980/vann/internal/visited"
)

// LinearPool is the bounded, distance-ordered candidate pool of
// §4.E. Entries are kept sorted ascending by distance; the visited
// bitset guarantees an id is never inserted twice; the cursor marks
// the smallest unexpanded index (the best-first frontier head).
type LinearPool struct {
	ids     []int32
	dists   []float32
	size    int
	cursor  int
	capacity int
	k       int
	visited *visited.VisitedSet
}

// NewLinearPool creates a pool over a universe of nTotal ids with
// capacity = max(k, ef) and a target result size of k.
func NewLinearPool(nTotal, ef, k int) *LinearPool {
	capacity := k
	if ef > capacity {
		capacity = ef
	}
	if capacity < 1 {
		capacity = 1
	}
	return &LinearPool{
		ids:      make([]int32, capacity),
		dists:    make([]float32, capacity),
		capacity: capacity,
		k:        k,
		visited:  visited.New(nTotal),
	}
}

// Reset reconfigures the pool for reuse against a new query without
// releasing the backing arrays, per the "pool reuse" design note §9.
func (p *LinearPool) Reset(nTotal, ef, k int) {
	capacity := k
	if ef > capacity {
		capacity = ef
	}
	if capacity < 1 {
		capacity = 1
	}
	if cap(p.ids) < capacity {
		p.ids = make([]int32, capacity)
		p.dists = make([]float32, capacity)
	}
	p.ids = p.ids[:capacity]
	p.dists = p.dists[:capacity]
	p.capacity = capacity
	p.k = k
	p.size = 0
	p.cursor = 0
	p.visited.EnsureCapacity(nTotal)
	p.visited.Reset()
}

// Insert adds (id, d) if id has not already been inserted. A no-op
// if id is already visited. If the pool is at capacity and d is no
// better than the current worst entry, the candidate is dropped.
func (p *LinearPool) Insert(id int32, d float32) {
	if p.visited.Visited(uint64(id)) {
		return
	}
	p.visited.Visit(uint64(id))

	if p.size >= p.capacity && d >= p.dists[p.size-1] {
		return
	}

	pos := sort.Search(p.size, func(i int) bool { return p.dists[i] >= d })

	newSize := p.size
	if newSize < p.capacity {
		newSize++
	}
	for i := newSize - 1; i > pos; i-- {
		p.ids[i] = p.ids[i-1]
		p.dists[i] = p.dists[i-1]
	}
	p.ids[pos] = id
	p.dists[pos] = d
	p.size = newSize

	if pos < p.cursor {
		p.cursor = pos
	}
}

// HasNext reports whether the cursor references a valid, unexpanded
// entry.
func (p *LinearPool) HasNext() bool { return p.cursor < p.size }

// checkedBit marks an entry whose id Pop has already returned; node
// ids are non-negative, so the sign bit is free to carry it.
const checkedBit int32 = -1 << 31

// Pop returns the id at the cursor, marks that entry expanded, and
// advances the cursor past every entry already expanded, so a cursor
// rewound by Insert never hands out the same id twice.
func (p *LinearPool) Pop() int32 {
	pos := p.cursor
	id := p.ids[pos]
	p.ids[pos] |= checkedBit
	for p.cursor < p.size && p.ids[p.cursor] < 0 {
		p.cursor++
	}
	return id
}

// Size returns the number of entries currently held.
func (p *LinearPool) Size() int { return p.size }

// ID returns the id at rank i (ascending distance).
func (p *LinearPool) ID(i int) int32 { return p.ids[i] &^ checkedBit }

// Distance returns the distance at rank i.
func (p *LinearPool) Distance(i int) float32 { return p.dists[i] }

// Visited reports whether id has already been inserted.
func (p *LinearPool) Visited(id int32) bool { return p.visited.Visited(uint64(id)) }

// MarkVisited records id as visited without inserting it into the
// pool, used by the base-layer traversal's neighbor-skip check.
func (p *LinearPool) MarkVisited(id int32) { p.visited.Visit(uint64(id)) }
