package search

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vann/distance"
	"github.com/hupe1980/vann/graph"
	"github.com/hupe1980/vann/quantization"
)

// Searcher is the engine of §4.G: an immutable graph, an owned
// quantizer, and the (po, pl, ef) tuning knobs that steer the
// base-layer best-first traversal's prefetch schedule.
//
// A Searcher's quantizer holds one mutable query buffer; per §5, an
// instance is reentrant only if callers do not share it across
// goroutines. BatchSearch clones the quantizer per worker to stay
// correct under concurrency.
type Searcher struct {
	graph *graph.DenseGraph
	quant quantization.Quantizer

	data []float32 // retained corpus, used only by Optimize's self-sampling
	n, d int

	ef     int
	po, pl int
}

// New constructs a Searcher over g for the given corpus data (n
// vectors of dimension d, row-major), training a quantizer selected
// by level (0=FP32, 1=SQ8, 2=SQ4) on metric. Per SPEC_FULL §13.1, the
// façade always attaches an FP32 reorder companion for SQ8/SQ4.
func New(g *graph.DenseGraph, data []float32, n, d int, metric distance.Metric, level int) (*Searcher, error) {
	if n < 0 || d <= 0 {
		return nil, fmt.Errorf("%w: n=%d d=%d", ErrInvalidArgument, n, d)
	}
	if len(data) != n*d {
		return nil, fmt.Errorf("%w: data length %d does not match n*d=%d", ErrInvalidArgument, len(data), n*d)
	}

	qtype, err := typeForLevel(level)
	if err != nil {
		return nil, err
	}

	var companion *quantization.FP32Quantizer
	if qtype != quantization.FP32 {
		companion, err = quantization.NewFP32Quantizer(metric)
		if err != nil {
			return nil, err
		}
	}

	quant, err := quantization.New(qtype, metric, companion)
	if err != nil {
		return nil, err
	}
	if err := quant.Train(data, n, d); err != nil {
		return nil, err
	}

	return &Searcher{
		graph: g,
		quant: quant,
		data:  data,
		n:     n,
		d:     d,
		ef:    defaultEF,
		po:    defaultPO,
		pl:    defaultPL,
	}, nil
}

const (
	defaultEF = 50
	defaultPO = 4
	defaultPL = 1
)

func typeForLevel(level int) (quantization.Type, error) {
	switch level {
	case 0:
		return quantization.FP32, nil
	case 1:
		return quantization.SQ8, nil
	case 2:
		return quantization.SQ4, nil
	default:
		return 0, fmt.Errorf("%w: unknown quantizer level %d", ErrInvalidArgument, level)
	}
}

// SetEF sets the retrieval breadth. Calling it twice with the same
// value leaves engine state unchanged (§8's idempotence law).
func (s *Searcher) SetEF(ef int) { s.ef = ef }

// EF returns the current retrieval breadth.
func (s *Searcher) EF() int { return s.ef }

// PO returns the current neighbor-prefetch count, tuned by Optimize.
func (s *Searcher) PO() int { return s.po }

// PL returns the current per-neighbor prefetch line count, tuned by
// Optimize.
func (s *Searcher) PL() int { return s.pl }

// Search runs the §4.G Search(q, k, out_ids) protocol: encode the
// query, seed the pool via graph.InitializeSearch, best-first expand
// the base layer with prefetching, then reorder into outIDs. outIDs
// must have length k (or more; only the first k entries are written).
// k > capacity is clamped by the pool's own capacity bound.
func (s *Searcher) Search(q []float32, k int, outIDs []int32) error {
	if s.data == nil {
		return ErrNotInitialized
	}
	if len(q) != s.d {
		return fmt.Errorf("%w: got %d want %d", ErrDimMismatch, len(q), s.d)
	}
	if k < 0 {
		return fmt.Errorf("%w: negative k", ErrInvalidArgument)
	}

	s.quant.EncodeQuery(q)

	capacity := k
	if s.ef > capacity {
		capacity = s.ef
	}
	pool := graph.NewLinearPool(s.graph.NumNodes(), capacity, k)

	if err := s.graph.InitializeSearch(pool, s.quant); err != nil {
		return err
	}

	s.expandBaseLayer(pool)

	s.quant.Reorder(pool, q, outIDs, k)
	return nil
}

// expandBaseLayer runs the §4.G step 4 best-first traversal with
// prefetch scheduling: po controls how many of a node's neighbors get
// their codes prefetched up front, pl controls how many cache lines
// of each code are touched.
func (s *Searcher) expandBaseLayer(pool *graph.LinearPool) {
	maxDegree := s.graph.MaxDegree()
	graphPrefetchLines := maxDegree / 16
	if graphPrefetchLines < 1 {
		graphPrefetchLines = 1
	}

	for pool.HasNext() {
		u := pool.Pop()
		s.graph.PrefetchNeighbors(u, graphPrefetchLines)

		row := s.graph.Neighbors(u)
		for i := 0; i < s.po && i < len(row); i++ {
			v := row[i]
			if v == graph.EmptyID {
				break
			}
			s.quant.Prefetch(int(v), s.pl)
		}

		for i := 0; i < maxDegree; i++ {
			v := s.graph.At(u, i)
			if v == graph.EmptyID {
				break
			}
			if i+s.po < maxDegree {
				if lookahead := s.graph.At(u, i+s.po); lookahead != graph.EmptyID {
					s.quant.Prefetch(int(lookahead), s.pl)
				}
			}
			if pool.Visited(v) {
				continue
			}
			pool.Insert(v, s.quant.QueryDistance(int(v)))
		}
	}
}

// BatchSearch runs independent per-query searches, parallelizing
// across a worker pool bounded by numThreads (0 means unbounded, per
// §6's facade default). Each worker clones the Searcher's quantizer
// so query buffers never cross goroutines (§5).
func (s *Searcher) BatchSearch(queries []float32, nq, k, numThreads int) ([]int32, error) {
	if s.data == nil {
		return nil, ErrNotInitialized
	}
	if len(queries) != nq*s.d {
		return nil, fmt.Errorf("%w: queries length %d does not match nq*d=%d", ErrInvalidArgument, len(queries), nq*s.d)
	}

	out := make([]int32, nq*k)

	g := new(errgroup.Group)
	if numThreads > 0 {
		g.SetLimit(numThreads)
	}

	for i := 0; i < nq; i++ {
		i := i
		g.Go(func() error {
			worker := s.cloneForQuery()
			q := queries[i*s.d : (i+1)*s.d]
			return worker.Search(q, k, out[i*k:(i+1)*k])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// cloneForQuery returns a Searcher sharing the graph and corpus but
// with an independently cloned quantizer, safe for use from one
// goroutine concurrently with the original.
func (s *Searcher) cloneForQuery() *Searcher {
	clone := *s
	clone.quant = s.quant.Clone()
	return &clone
}

// Optimize autotunes (po, pl) per §4.G: it samples min(1000, N-1)
// corpus points as queries, measures k=10 search wall time across
// every (po, pl) pair in the grid, and commits the fastest. It
// restores the Searcher's ef/po/pl only on failure; on success the
// winning po/pl become the new defaults.
func (s *Searcher) Optimize(numThreads int) error {
	if s.data == nil {
		return ErrNotInitialized
	}

	sampleSize := s.n - 1
	if sampleSize > 1000 {
		sampleSize = 1000
	}
	if sampleSize < 1 {
		return nil // too small a corpus to meaningfully tune
	}

	maxPO := s.graph.MaxDegree()
	if maxPO > 10 {
		maxPO = 10
	}
	codeLines := (s.quant.CodeSize() + 63) / 64
	maxPL := codeLines
	if maxPL > 5 {
		maxPL = 5
	}
	if maxPL < 1 {
		maxPL = 1
	}

	origPO, origPL, origEF := s.po, s.pl, s.ef

	bestPO, bestPL := origPO, origPL
	var bestElapsed time.Duration

	type result struct {
		po, pl  int
		elapsed time.Duration
		err     error
	}

	var combos []struct{ po, pl int }
	for po := 1; po <= maxPO; po++ {
		for pl := 1; pl <= maxPL; pl++ {
			combos = append(combos, struct{ po, pl int }{po, pl})
		}
	}

	results := make([]result, len(combos))
	g := new(errgroup.Group)
	if numThreads > 0 {
		g.SetLimit(numThreads)
	}
	for idx, combo := range combos {
		idx, combo := idx, combo
		g.Go(func() error {
			elapsed, err := s.timeGrid(combo.po, combo.pl, sampleSize)
			results[idx] = result{po: combo.po, pl: combo.pl, elapsed: elapsed, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.po, s.pl, s.ef = origPO, origPL, origEF
		return err
	}

	first := true
	for _, r := range results {
		if r.err != nil {
			continue
		}
		if first || r.elapsed < bestElapsed {
			bestElapsed = r.elapsed
			bestPO, bestPL = r.po, r.pl
			first = false
		}
	}

	s.po, s.pl = bestPO, bestPL
	s.ef = origEF
	return nil
}

// timeGrid runs k=10 searches for each of the first sampleSize corpus
// points using a clone configured with (po, pl), and returns the
// total wall time.
func (s *Searcher) timeGrid(po, pl, sampleSize int) (time.Duration, error) {
	worker := s.cloneForQuery()
	worker.po, worker.pl = po, pl

	out := make([]int32, 10)
	start := time.Now()
	for i := 0; i < sampleSize; i++ {
		q := s.data[i*s.d : (i+1)*s.d]
		if err := worker.Search(q, 10, out); err != nil {
			return 0, err
		}
	}
	return time.Since(start), nil
}
