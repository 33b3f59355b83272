package builder

import "github.com/hupe1980/vann/distance"

// DefaultM is this package's own HNSW connectivity default for
// direct builder.New callers, matching the original implementation's
// M=16. The façade's NewIndex uses a higher R=32 default instead (§6,
// SPEC_FULL §12.1); it is not derived from this constant.
const DefaultM = 16

// DefaultEFConstruction is the default search breadth during insertion.
const DefaultEFConstruction = 200

// Options configures a Builder (§4.F).
type Options struct {
	// M is the per-node upper-layer arity; layer 0's arity is 2*M.
	M int

	// EFConstruction is the candidate pool width during insertion.
	EFConstruction int

	// RandomSeed seeds the per-point level draw. Zero means "use a
	// fixed default seed", keeping Build deterministic by default
	// rather than time-seeded.
	RandomSeed int64

	// Metric selects the full-precision build-time distance kernel.
	Metric distance.Metric
}

// DefaultOptions returns the builder defaults: M=16, ef_construction=200,
// metric L2.
func DefaultOptions() Options {
	return Options{
		M:              DefaultM,
		EFConstruction: DefaultEFConstruction,
		Metric:         distance.L2,
	}
}

// Option mutates an Options value.
type Option func(*Options)

// WithM sets the HNSW connectivity parameter.
func WithM(m int) Option {
	return func(o *Options) { o.M = m }
}

// WithEFConstruction sets the build-time candidate pool width.
func WithEFConstruction(ef int) Option {
	return func(o *Options) { o.EFConstruction = ef }
}

// WithRandomSeed sets the deterministic level-assignment seed.
func WithRandomSeed(seed int64) Option {
	return func(o *Options) { o.RandomSeed = seed }
}

// WithMetric sets the full-precision build-time distance metric.
func WithMetric(m distance.Metric) Option {
	return func(o *Options) { o.Metric = m }
}
