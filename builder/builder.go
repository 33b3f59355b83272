package builder

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hupe1980/vann/distance"
	"github.com/hupe1980/vann/graph"
)

// Builder runs the layered insertion protocol of §4.F over a fixed
// corpus, producing a graph.DenseGraph with its upper-layer
// graph.HnswInitializer attached. A Builder is single-use: construct
// one per Build call.
type Builder struct {
	opts   Options
	mL     float64
	rng    *rand.Rand
	distFn distance.Func

	data []float32
	n, d int

	base  *graph.DenseGraph
	upper *graph.HnswInitializer

	topEP    int32
	topLevel int32
}

// New creates a Builder from opts, filling in defaults for any
// unset field.
func New(optFns ...Option) (*Builder, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.M < 2 {
		opts.M = 2
	}
	if opts.EFConstruction < 1 {
		opts.EFConstruction = DefaultEFConstruction
	}

	distFn, err := distance.ForMetric(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Builder{
		opts:     opts,
		mL:       1.0 / math.Log(float64(opts.M)),
		rng:      rand.New(rand.NewSource(opts.RandomSeed)),
		distFn:   distFn,
		topEP:    graph.EmptyID,
		topLevel: -1,
	}, nil
}

// Build runs the insertion protocol of §4.F over n row-major vectors
// of dimension d stored contiguously in data, and freezes the result
// into a DenseGraph with max_degree = 2*M and an attached
// HnswInitializer (§4.F's closing paragraph).
func (b *Builder) Build(data []float32, n, d int) (*graph.DenseGraph, error) {
	if n < 0 || d <= 0 {
		return nil, fmt.Errorf("%w: invalid shape n=%d d=%d", ErrInvalidArgument, n, d)
	}
	if len(data) != n*d {
		return nil, fmt.Errorf("%w: data length %d does not match n*d=%d", ErrInvalidArgument, len(data), n*d)
	}

	b.data = data
	b.n, b.d = n, d
	b.base = graph.NewDenseGraph(n, 2*b.opts.M)
	b.upper = graph.NewHnswInitializer(n, b.opts.M)

	var totalEdges uint64
	for id := 0; id < n; id++ {
		b.insert(int32(id))
	}
	for u := int32(0); u < int32(n); u++ {
		totalEdges += uint64(b.base.Degree(u))
	}

	if b.topEP != graph.EmptyID {
		b.upper.SetEntryPoint(b.topEP)
		b.base.SetEntryPoints([]int32{b.topEP})
		b.base.SetInitializer(b.upper)
	}
	b.base.SetMetadata(graph.Metadata{
		TotalEdges:   totalEdges,
		BuilderName:  "hnsw-layered",
		DistanceType: b.opts.Metric.String(),
	})
	return b.base, nil
}

func (b *Builder) vec(id int32) []float32 {
	return b.data[int(id)*b.d : int(id+1)*b.d]
}

func (b *Builder) dist(a, c int32) float32 {
	return b.distFn(b.vec(a), b.vec(c))
}

// drawLevel samples level = floor(-ln(U) * mL), U uniform in (0,1],
// per §4.F step 1.
func (b *Builder) drawLevel() int32 {
	u := b.rng.Float64()
	for u == 0 {
		u = b.rng.Float64()
	}
	return int32(math.Floor(-math.Log(u) * b.mL))
}

// insert runs the full §4.F protocol for a single point id.
func (b *Builder) insert(id int32) {
	level := b.drawLevel()
	b.upper.SetLevels(id, level)

	if b.topEP == graph.EmptyID {
		b.topEP = id
		b.topLevel = level
		return
	}

	oldEP, oldTopLevel := b.topEP, b.topLevel

	cur := oldEP
	curDist := b.dist(id, oldEP)

	// Step 2: greedy-descend, ef=1, through every layer strictly
	// above the new point's level.
	for l := oldTopLevel; l > level; l-- {
		if b.upper.Level(cur) < l {
			continue
		}
		cur, curDist = b.upper.ClimbLayer(int(l), cur, curDist, b.pointDistancer(id))
	}

	// Step 3-6: layer-local search, heuristic selection, reciprocal
	// edges, and commit, from min(level, height) down to 0.
	top := level
	if oldTopLevel < top {
		top = oldTopLevel
	}
	for l := top; l >= 0; l-- {
		pool := b.searchLayer(int(l), cur, curDist, b.opts.EFConstruction, id)
		if pool.Size() > 0 {
			cur, curDist = pool.ID(0), pool.Distance(0)
		}

		arity := b.opts.M
		if l == 0 {
			arity = 2 * b.opts.M
		}

		neighbors := b.selectHeuristic(pool, id, arity)
		b.commitRow(int(l), id, neighbors)

		for _, n := range neighbors {
			b.addReciprocal(int(l), n, id, arity)
		}
	}

	if level > oldTopLevel {
		b.topEP = id
		b.topLevel = level
	}
}

// searchLayer runs a bounded best-first search of width ef at layer
// level, starting from (ep, epDist), scoring every candidate against
// point id's full-precision vector (§4.F step 3).
func (b *Builder) searchLayer(level int, ep int32, epDist float32, ef int, id int32) *graph.LinearPool {
	pool := graph.NewLinearPool(b.n, ef, ef)
	pool.Insert(ep, epDist)

	for pool.HasNext() {
		u := pool.Pop()
		for _, v := range b.neighborsAt(level, u) {
			if v == graph.EmptyID {
				break
			}
			if pool.Visited(v) {
				continue
			}
			pool.Insert(v, b.dist(id, v))
		}
	}
	return pool
}

func (b *Builder) neighborsAt(level int, u int32) []int32 {
	if level == 0 {
		return b.base.Neighbors(u)
	}
	if int(b.upper.Level(u)) < level {
		return nil
	}
	return b.upper.Edges(level, u)
}

// selectHeuristic applies the relative-neighborhood heuristic of
// §4.F step 4 over pool's candidates (already sorted ascending by
// distance to id), capped at arity entries.
func (b *Builder) selectHeuristic(pool *graph.LinearPool, id int32, arity int) []int32 {
	n := pool.Size()
	result := make([]int32, 0, arity)
	for i := 0; i < n && len(result) < arity; i++ {
		c := pool.ID(i)
		cDist := pool.Distance(i)
		good := true
		for _, acc := range result {
			if b.dist(c, acc) <= cDist {
				good = false
				break
			}
		}
		if good {
			result = append(result, c)
		}
	}
	return result
}

// commitRow writes id's final neighbor row at the given layer.
func (b *Builder) commitRow(level int, id int32, neighbors []int32) {
	if level == 0 {
		b.base.SetNeighbors(id, neighbors)
		return
	}
	b.upper.SetEdges(level, id, neighbors)
}

// addReciprocal adds the edge n->id at level. If n's row already has
// room, id is simply appended; otherwise the row is re-pruned from
// its current members plus id using the same heuristic (§4.F step 5,
// grounded on the teacher's addConnection/addConnectionPrune split).
func (b *Builder) addReciprocal(level int, n, id int32, arity int) {
	if level > 0 && int(b.upper.Level(n)) < level {
		return
	}
	degree := b.degreeAt(level, n)
	for _, v := range b.neighborsAt(level, n) {
		if v == id {
			return
		}
		if v == graph.EmptyID {
			break
		}
	}

	if degree < arity {
		if level == 0 {
			b.base.AddEdge(n, id)
		} else {
			b.upper.AddEdgeAt(level, n, id)
		}
		return
	}
	b.reprune(level, n, id, arity)
}

func (b *Builder) degreeAt(level int, n int32) int {
	if level == 0 {
		return int(b.base.Degree(n))
	}
	return b.upper.DegreeAt(level, n)
}

// reprune re-selects n's neighbor row at level from its current
// full-capacity members plus the new candidate id, keeping at most
// arity of them under the relative-neighborhood heuristic.
func (b *Builder) reprune(level int, n, id int32, arity int) {
	current := b.neighborsAt(level, n)
	type scored struct {
		id   int32
		dist float32
	}
	cand := make([]scored, 0, len(current)+1)
	for _, v := range current {
		if v == graph.EmptyID {
			break
		}
		cand = append(cand, scored{id: v, dist: b.dist(n, v)})
	}
	cand = append(cand, scored{id: id, dist: b.dist(n, id)})
	sort.Slice(cand, func(i, j int) bool { return cand[i].dist < cand[j].dist })

	result := make([]int32, 0, arity)
	for _, c := range cand {
		if len(result) >= arity {
			break
		}
		good := true
		for _, acc := range result {
			if b.dist(c.id, acc) <= c.dist {
				good = false
				break
			}
		}
		if good {
			result = append(result, c.id)
		}
	}
	b.commitRow(level, n, result)
}

// pointDistancer adapts a fixed point id into a graph.Distancer for
// reuse of HnswInitializer.ClimbLayer during construction.
type pointDistancer struct {
	b  *Builder
	id int32
}

func (p pointDistancer) QueryDistance(other int) float32 { return p.b.dist(p.id, int32(other)) }

func (b *Builder) pointDistancer(id int32) graph.Distancer { return pointDistancer{b: b, id: id} }
