package vann

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vann/builder"
	"github.com/hupe1980/vann/distance"
	"github.com/hupe1980/vann/graph"
	"github.com/hupe1980/vann/search"
)

// IndexType names an index algorithm. The layered HNSW-style graph of
// §4.F is the only one this module implements; the type exists so the
// façade's constructor matches §6's `Index(type, dim, metric, ...)`
// signature and a future algorithm has somewhere to register.
type IndexType int

const (
	// HNSW is the layered hierarchical graph of §4.C–§4.F.
	HNSW IndexType = iota
)

func (t IndexType) String() string {
	if t == HNSW {
		return "hnsw"
	}
	return fmt.Sprintf("indextype(%d)", int(t))
}

// Level selects the quantizer a Searcher trains, matching §4.G's
// `level` parameter: 0 is full precision, 1 and 2 trade accuracy for
// a code 4x/8x smaller than full precision.
type Level int

const (
	LevelFP32 Level = 0
	LevelSQ8  Level = 1
	LevelSQ4  Level = 2
)

// SaveOption configures Graph.Save's on-disk representation.
type SaveOption = graph.SaveOption

// WithCompression wraps the on-disk graph in a zstd stream (§11's
// domain-stack compression option). Off by default.
func WithCompression() SaveOption { return graph.WithCompression() }

// Index is the §6 façade constructor's result: a configured, not-yet
// -built index over vectors of a fixed dimension and metric.
type Index struct {
	dim    int
	metric distance.Metric
	opts   indexOptions
}

// facadeDefaultM and facadeDefaultEFConstruction are the façade's own
// R=32/L=200 defaults (§6), distinct from the builder package's lower
// -level M=16 default: NewIndex callers that pass no WithM/
// WithEfConstruction get these, not builder.DefaultOptions.
const (
	facadeDefaultM              = 32
	facadeDefaultEFConstruction = 200
)

// NewIndex constructs an Index (§6's `Index(type, dim, metric, R=32,
// L=200)`). R and L default to 32/200 at this layer; pass WithM/
// WithEfConstruction to override either.
func NewIndex(typ IndexType, dim int, metric distance.Metric, optFns ...IndexOption) (*Index, error) {
	if typ != HNSW {
		return nil, translateError(fmt.Errorf("%w: unknown index type %v", ErrInvalidArgument, typ))
	}
	if dim <= 0 {
		return nil, translateError(fmt.Errorf("%w: dim must be positive, got %d", ErrInvalidArgument, dim))
	}
	return &Index{dim: dim, metric: metric, opts: applyIndexOptions(optFns)}, nil
}

// Build runs the layered insertion protocol over n row-major vectors
// of the Index's dimension stored contiguously in data, returning the
// resulting Graph. Build never silently drops points: a failed
// insertion discards the partial graph and surfaces the error (§7).
func (idx *Index) Build(data []float32, n int) (*Graph, error) {
	start := time.Now()

	optFns := append([]builder.Option{
		builder.WithMetric(idx.metric),
		builder.WithM(facadeDefaultM),
		builder.WithEFConstruction(facadeDefaultEFConstruction),
	}, idx.opts.builderOpts...)
	b, err := builder.New(optFns...)
	if err != nil {
		err = translateError(err)
		idx.opts.logger.LogBuild(context.Background(), n, idx.dim, time.Since(start), err)
		return nil, err
	}

	dg, err := b.Build(data, n, idx.dim)
	if err != nil {
		err = translateError(err)
		idx.opts.logger.LogBuild(context.Background(), n, idx.dim, time.Since(start), err)
		return nil, err
	}

	idx.opts.logger.LogBuild(context.Background(), n, idx.dim, time.Since(start), nil)
	return &Graph{dg: dg}, nil
}

// Graph is an immutable, built index: the §4.C DenseGraph plus its
// §4.D HnswInitializer, shareable across any number of Searchers.
type Graph struct {
	dg *graph.DenseGraph
}

// Save writes the graph to path in the §6 on-disk format, through an
// atomic temp-file-plus-rename.
func (g *Graph) Save(path string, opts ...SaveOption) error {
	err := translateError(g.dg.Save(path, opts...))
	return err
}

// LoadGraph reads a graph previously written by Graph.Save.
func LoadGraph(path string, opts ...SaveOption) (*Graph, error) {
	dg, err := graph.Load(path, opts...)
	if err != nil {
		return nil, translateError(err)
	}
	return &Graph{dg: dg}, nil
}

// NumNodes returns the number of vectors indexed in the graph.
func (g *Graph) NumNodes() int { return g.dg.NumNodes() }

// MaxDegree returns the base layer's per-node neighbor capacity
// (2*M), exposed so callers can confirm which connectivity the graph
// was built with.
func (g *Graph) MaxDegree() int { return g.dg.MaxDegree() }

// Searcher is the §4.G query engine, bound to one Graph, one corpus,
// and one trained quantizer.
type Searcher struct {
	inner  *search.Searcher
	logger *Logger
}

// NewSearcher constructs a Searcher over g for the given corpus data
// (n vectors of dimension dim, row-major), training the quantizer
// level selects. Per §13.1, level 1/2 (SQ8/SQ4) always get an FP32
// reorder companion at this façade layer.
func NewSearcher(g *Graph, data []float32, n, dim int, metric distance.Metric, level Level, optFns ...SearcherOption) (*Searcher, error) {
	o := applySearcherOptions(optFns)

	inner, err := search.New(g.dg, data, n, dim, metric, int(level))
	if err != nil {
		return nil, translateError(err)
	}
	if o.ef > 0 {
		inner.SetEF(o.ef)
	}
	return &Searcher{inner: inner, logger: o.logger}, nil
}

// Search returns up to k nearest neighbor ids for query, padded with
// -1 if fewer than k candidates were found.
func (s *Searcher) Search(query []float32, k int) ([]int32, error) {
	out := make([]int32, k)
	err := s.inner.Search(query, k, out)
	s.logger.LogSearch(context.Background(), k, countValid(out), err)
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// BatchSearch runs nq independent searches in parallel. numThreads=0
// uses the process-wide default set by SetNumThreads.
func (s *Searcher) BatchSearch(queries []float32, nq, k, numThreads int) ([]int32, error) {
	out, err := s.inner.BatchSearch(queries, nq, k, effectiveThreads(numThreads))
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// SetEF sets the retrieval breadth used by subsequent searches.
func (s *Searcher) SetEF(ef int) { s.inner.SetEF(ef) }

// EF returns the current retrieval breadth.
func (s *Searcher) EF() int { return s.inner.EF() }

// Optimize auto-tunes the prefetch schedule (§4.G). numThreads=0 uses
// the process-wide default set by SetNumThreads.
func (s *Searcher) Optimize(numThreads int) error {
	start := time.Now()
	err := s.inner.Optimize(effectiveThreads(numThreads))
	s.logger.LogOptimize(context.Background(), s.inner.PO(), s.inner.PL(), time.Since(start), err)
	return translateError(err)
}

func countValid(ids []int32) int {
	n := 0
	for _, id := range ids {
		if id != graph.EmptyID {
			n++
		}
	}
	return n
}
