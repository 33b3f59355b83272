// Command annbench is the CLI driver of §6: it builds (or loads) a
// graph over a base fvecs corpus, auto-tunes and runs repeated
// recall@k / QPS measurements against a query set and ivecs ground
// truth.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/vann/builder"
	"github.com/hupe1980/vann/distance"
	"github.com/hupe1980/vann/fvecs"
	"github.com/hupe1980/vann/graph"
	"github.com/hupe1980/vann/search"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "annbench:", err)
		os.Exit(1)
	}
}

type config struct {
	basePath   string
	queryPath  string
	gtPath     string
	graphPath  string
	level      int
	topk       int
	searchEF   int
	numThreads int
	iters      int
}

func run(args []string) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	base, n, dim, err := fvecs.LoadFloat32(cfg.basePath)
	if err != nil {
		return fmt.Errorf("load base corpus: %w", err)
	}
	query, nq, qdim, err := fvecs.LoadFloat32(cfg.queryPath)
	if err != nil {
		return fmt.Errorf("load query set: %w", err)
	}
	if qdim != dim {
		return fmt.Errorf("query dim %d does not match base dim %d", qdim, dim)
	}
	gt, gtN, gtK, err := fvecs.LoadInt32(cfg.gtPath)
	if err != nil {
		return fmt.Errorf("load ground truth: %w", err)
	}
	if gtN != nq {
		return fmt.Errorf("ground truth has %d rows, expected %d (one per query)", gtN, nq)
	}

	g, err := buildOrLoadGraph(cfg.graphPath, base, n, dim, logger)
	if err != nil {
		return fmt.Errorf("build or load graph: %w", err)
	}

	s, err := search.New(g, base, n, dim, distance.L2, cfg.level)
	if err != nil {
		return fmt.Errorf("construct searcher: %w", err)
	}

	if err := s.Optimize(cfg.numThreads); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	s.SetEF(cfg.searchEF)
	logger.Info("tuned searcher", "po", s.PO(), "pl", s.PL(), "ef", s.EF())

	// A single Wait on a limiter whose one-token bucket starts full:
	// it returns at once and does not delay the first iteration.
	warmup := rate.NewLimiter(rate.Limit(50), 1)
	_ = warmup.Wait(context.Background())

	bestQPS := 0.0
	for iter := 1; iter <= cfg.iters; iter++ {
		pred := make([]int32, nq*cfg.topk)
		start := time.Now()
		for i := 0; i < nq; i++ {
			q := query[i*dim : (i+1)*dim]
			if err := s.Search(q, cfg.topk, pred[i*cfg.topk:(i+1)*cfg.topk]); err != nil {
				return fmt.Errorf("search query %d: %w", i, err)
			}
		}
		elapsed := time.Since(start).Seconds()
		qps := float64(nq) / elapsed

		recall := computeRecall(pred, gt, nq, cfg.topk, gtK)
		if qps > bestQPS {
			bestQPS = qps
		}
		fmt.Printf("iter [%d/%d]: Recall@%d = %.4f, QPS = %.2f\n", iter, cfg.iters, cfg.topk, recall, qps)
	}
	fmt.Printf("Best QPS = %.2f\n", bestQPS)
	return nil
}

func buildOrLoadGraph(path string, base []float32, n, dim int, logger *slog.Logger) (*graph.DenseGraph, error) {
	if _, err := os.Stat(path); err == nil {
		logger.Info("loading existing graph", "path", path)
		return graph.Load(path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	logger.Info("building graph", "path", path, "n", n, "dim", dim)
	b, err := builder.New(builder.WithMetric(distance.L2), builder.WithM(32), builder.WithEFConstruction(200))
	if err != nil {
		return nil, err
	}
	g, err := b.Build(base, n, dim)
	if err != nil {
		return nil, err
	}
	if err := g.Save(path); err != nil {
		return nil, err
	}
	return g, nil
}

func computeRecall(pred, gt []int32, nq, topk, gtK int) float64 {
	hits := 0
	for i := 0; i < nq; i++ {
		truth := make(map[int32]bool, topk)
		for j := 0; j < topk && j < gtK; j++ {
			truth[gt[i*gtK+j]] = true
		}
		for j := 0; j < topk; j++ {
			if truth[pred[i*topk+j]] {
				hits++
			}
		}
	}
	return float64(hits) / float64(nq*topk)
}

func parseArgs(args []string) (config, error) {
	if len(args) < 7 {
		return config{}, fmt.Errorf("usage: annbench base_path query_path gt_path graph_path level topk search_ef [num_threads] [iters]")
	}

	level, err := strconv.Atoi(args[4])
	if err != nil {
		return config{}, fmt.Errorf("invalid level %q: %w", args[4], err)
	}
	topk, err := strconv.Atoi(args[5])
	if err != nil {
		return config{}, fmt.Errorf("invalid topk %q: %w", args[5], err)
	}
	searchEF, err := strconv.Atoi(args[6])
	if err != nil {
		return config{}, fmt.Errorf("invalid search_ef %q: %w", args[6], err)
	}

	numThreads := 1
	if len(args) >= 8 {
		numThreads, err = strconv.Atoi(args[7])
		if err != nil {
			return config{}, fmt.Errorf("invalid num_threads %q: %w", args[7], err)
		}
	}
	iters := 10
	if len(args) >= 9 {
		iters, err = strconv.Atoi(args[8])
		if err != nil {
			return config{}, fmt.Errorf("invalid iters %q: %w", args[8], err)
		}
	}

	return config{
		basePath:   args[0],
		queryPath:  args[1],
		gtPath:     args[2],
		graphPath:  args[3],
		level:      level,
		topk:       topk,
		searchEF:   searchEF,
		numThreads: numThreads,
		iters:      iters,
	}, nil
}
