package quantization

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vann/distance"
)

// ErrUnsupported is returned when a metric has no kernel for a given
// code type (§9: SQ4 supports L2 but not IP or cosine).
var ErrUnsupported = errors.New("quantization: unsupported metric for this code type")

// ErrNotTrained names the use of a quantizer before Train. Encode,
// EncodeQuery and QueryDistance return no error, so no function in
// this package returns it; the façade maps it to ErrNotInitialized.
var ErrNotTrained = errors.New("quantization: quantizer not trained")

// Type names the three concrete quantizers of §4.B.
type Type int

const (
	FP32 Type = iota
	SQ8
	SQ4
)

func (t Type) String() string {
	switch t {
	case FP32:
		return "fp32"
	case SQ8:
		return "sq8"
	case SQ4:
		return "sq4"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// PoolView is the minimal read view Reorder needs over a candidate
// pool. graph.LinearPool satisfies this structurally; quantization
// never imports graph, so there is no import cycle.
type PoolView interface {
	Size() int
	ID(i int) int32
	Distance(i int) float32
}

// Quantizer is the contract every concrete variant implements, per
// §4.B.
type Quantizer interface {
	// Train populates encoding parameters from data (n vectors of
	// dimension d, row-major) and fills the internal code buffer.
	Train(data []float32, n, d int) error

	// Encode converts one vector into code_size() bytes, zero-padding
	// any alignment tail.
	Encode(in []float32, out []byte)

	// Decode reconstructs one vector from a code.
	Decode(code []byte, out []float32)

	// Code returns a stable pointer to the i-th encoded vector's code
	// bytes. Valid until the quantizer is discarded.
	Code(i int) []byte

	// EncodeQuery encodes q into the quantizer's internally-held query
	// buffer, used by subsequent QueryDistance calls.
	EncodeQuery(q []float32)

	// QueryDistance returns the code-space distance between the last
	// encoded query and corpus vector i.
	QueryDistance(i int) float32

	// QueryDistanceRaw returns the code-space distance between the
	// last encoded query and an arbitrary code.
	QueryDistanceRaw(code []byte) float32

	// Prefetch issues up to lines cache-line prefetch hints starting
	// at Code(i).
	Prefetch(i, lines int)

	CodeSize() int
	Dim() int
	Name() string

	// Reorder re-ranks pool's candidates and writes up to k ids into
	// out, padding with -1 if fewer candidates exist.
	Reorder(pool PoolView, rawQuery []float32, out []int32, k int)

	// Clone returns a quantizer sharing this one's trained, read-only
	// state (codes, offsets, scales) but with its own query scratch
	// buffer. Per §5's "shared resources" note, one quantizer
	// instance's query buffer is not reentrant across goroutines;
	// concurrent callers each clone and encode their own query.
	Clone() Quantizer
}

// New constructs an untrained quantizer of the given type for metric
// m. For SQ8/SQ4, reorder is an optional FP32 companion used by
// Reorder; pass nil for the degenerate identity-copy fallback
// documented in §4.B and resolved in SPEC_FULL §13.1.
func New(t Type, m distance.Metric, reorder *FP32Quantizer) (Quantizer, error) {
	switch t {
	case FP32:
		return NewFP32Quantizer(m)
	case SQ8:
		return NewSQ8Quantizer(m, reorder)
	case SQ4:
		return NewSQ4Quantizer(m, reorder)
	default:
		return nil, fmt.Errorf("quantization: unknown type %v", t)
	}
}
