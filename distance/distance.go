// Package distance provides the public, fixed-signature distance
// kernels over full-precision and quantized vector codes. Every
// function here delegates to the runtime dispatch table built once at
// startup in internal/simd; none of them branch on CPU feature flags
// themselves.
package distance

import (
	"fmt"

	"github.com/hupe1980/vann/internal/simd"
)

// Metric identifies which distance a quantizer or searcher computes.
type Metric int

const (
	// L2 is squared Euclidean distance.
	L2 Metric = iota
	// IP ranks by inner product similarity. The distance used for
	// ordering is 1-Σa·b, not the raw product (see ipDistance).
	IP
	// Cosine is 1 minus the inner product of unit-norm vectors. It
	// does not renormalize its inputs.
	Cosine
)

func (m Metric) String() string {
	switch m {
	case L2:
		return "l2"
	case IP:
		return "ip"
	case Cosine:
		return "cosine"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric parses a metric name produced by Metric.String.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "l2":
		return L2, nil
	case "ip":
		return IP, nil
	case "cosine":
		return Cosine, nil
	default:
		return 0, fmt.Errorf("distance: unknown metric %q", s)
	}
}

// L2Sqr computes Σ(a-b)² over two equal-length f32 vectors.
func L2Sqr(a, b []float32) float32 { return simd.L2Sqr(a, b) }

// InnerProduct computes Σ a·b over two equal-length f32 vectors.
func InnerProduct(a, b []float32) float32 { return simd.IP(a, b) }

// CosineDistance computes 1-Σa·b, assuming a and b are unit norm.
func CosineDistance(a, b []float32) float32 { return simd.CosineDistance(a, b) }

// ipDistance converts inner-product similarity into an ascending
// distance (1-Σa·b) so IP orders the same way as L2 and Cosine in a
// best-first pool: smallest value nearest.
func ipDistance(a, b []float32) float32 { return 1 - InnerProduct(a, b) }

// L2SqrCode computes the SQ8 code-space squared distance (integer
// promoted) between two one-byte-per-dimension codes.
func L2SqrCode(a, b []byte) float32 { return simd.L2SqrU8(a, b) }

// IPCode computes the SQ8 code-space inner product (integer
// promoted) between two one-byte-per-dimension codes.
func IPCode(a, b []byte) float32 { return simd.IPU8(a, b) }

// IPCodeDistance is IPCode converted to an ascending distance
// (1-Σa·b), the code-space counterpart of ipDistance for quantizers
// that score in code space rather than through ForMetric.
func IPCodeDistance(a, b []byte) float32 { return 1 - IPCode(a, b) }

// L2SqrPacked computes the SQ4 code-space squared distance between
// two nibble-packed codes holding n logical values.
func L2SqrPacked(a, b []byte, n int) float32 { return simd.L2SqrU4(a, b, n) }

// Func computes a distance between two full-precision vectors for a
// given metric.
type Func func(a, b []float32) float32

// ForMetric returns the f32 distance function for m.
func ForMetric(m Metric) (Func, error) {
	switch m {
	case L2:
		return L2Sqr, nil
	case IP:
		return ipDistance, nil
	case Cosine:
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("distance: unsupported metric %v", m)
	}
}

// SupportsCode reports whether metric m has a code-space kernel for
// the given quantized width (8 or 4 bits per component). §4.A/§9:
// the table supplies L2-under-SQ4 but not IP-under-SQ4 or
// cosine-under-SQ4.
func SupportsCode(m Metric, bits int) bool {
	switch bits {
	case 8:
		return m == L2 || m == IP
	case 4:
		return m == L2
	default:
		return false
	}
}
