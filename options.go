package vann

import (
	"sync/atomic"

	"github.com/hupe1980/vann/builder"
)

var globalNumThreads atomic.Int64

// SetNumThreads sets the process-wide default worker-pool size used
// by BatchSearch and Optimize calls that pass numThreads=0, per §6's
// global `set_num_threads(n)` knob. A value of 0 (the default) leaves
// those calls unbounded.
func SetNumThreads(n int) { globalNumThreads.Store(int64(n)) }

func effectiveThreads(override int) int {
	if override > 0 {
		return override
	}
	return int(globalNumThreads.Load())
}

type indexOptions struct {
	builderOpts []builder.Option
	logger      *Logger
}

// IndexOption configures Index's construction/build behavior.
type IndexOption func(*indexOptions)

// WithM sets the HNSW connectivity parameter (§6 façade default R=32).
func WithM(m int) IndexOption {
	return func(o *indexOptions) { o.builderOpts = append(o.builderOpts, builder.WithM(m)) }
}

// WithEfConstruction sets the build-time candidate pool width (§6
// façade default L=200).
func WithEfConstruction(ef int) IndexOption {
	return func(o *indexOptions) { o.builderOpts = append(o.builderOpts, builder.WithEFConstruction(ef)) }
}

// WithRandomSeed seeds the deterministic per-point level draw.
func WithRandomSeed(seed int64) IndexOption {
	return func(o *indexOptions) { o.builderOpts = append(o.builderOpts, builder.WithRandomSeed(seed)) }
}

// WithIndexLogger attaches a Logger to an Index's Build calls.
func WithIndexLogger(l *Logger) IndexOption {
	return func(o *indexOptions) { o.logger = l }
}

func applyIndexOptions(optFns []IndexOption) indexOptions {
	o := indexOptions{logger: NoopLogger()}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type searcherOptions struct {
	ef     int
	logger *Logger
}

// SearcherOption configures NewSearcher's initial tuning state.
type SearcherOption func(*searcherOptions)

// WithEf sets the initial retrieval breadth (default 50).
func WithEf(ef int) SearcherOption {
	return func(o *searcherOptions) { o.ef = ef }
}

// WithSearcherLogger attaches a Logger to a Searcher's Optimize and
// Search calls.
func WithSearcherLogger(l *Logger) SearcherOption {
	return func(o *searcherOptions) { o.logger = l }
}

func applySearcherOptions(optFns []SearcherOption) searcherOptions {
	o := searcherOptions{logger: NoopLogger()}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
