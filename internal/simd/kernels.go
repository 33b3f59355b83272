package simd

// Kernel function types. A dispatch table of these is built at package
// init by selectKernels (on amd64 and arm64 a second time, once the
// platform init has probed the CPU flags). Nothing downstream branches
// on a feature flag per call; every call goes through one of these
// package-level function variables.
type (
	f32PairFunc func(a, b []float32) float32
	u8PairFunc  func(a, b []byte) float32
	u4PairFunc  func(a, b []byte, n int) float32
)

var (
	kernelL2Sqr    f32PairFunc
	kernelIP       f32PairFunc
	kernelL2SqrU8  u8PairFunc
	kernelIPU8     u8PairFunc
	kernelL2SqrU4  u4PairFunc
)

// selectKernels populates the dispatch table for the given ISA tier.
// Every tier's kernel body is a portable Go implementation: the
// reduction is reassociated (accumulated into multiple independent
// lanes, matching the vector width the tier targets, per §4.A's
// allowance for FMA/reassociation inside SIMD reductions) but never
// calls into architecture-specific assembly, since no such assembly
// shipped with this package's source material.
func selectKernels(isa ISA) {
	switch isa {
	case AVX512:
		kernelL2Sqr = l2SqrLanes8
		kernelIP = ipLanes8
	case AVX2, NEON:
		kernelL2Sqr = l2SqrLanes4
		kernelIP = ipLanes4
	case SSE:
		kernelL2Sqr = l2SqrLanes2
		kernelIP = ipLanes2
	default:
		kernelL2Sqr = l2SqrGeneric
		kernelIP = ipGeneric
	}
	// The SQ8/SQ4 code-space kernels operate on byte codes; the
	// generic integer-promoted implementation is already the
	// reference and is reused for every tier, since the dominant
	// cost there is the byte-to-float promotion, not the reduction
	// width.
	kernelL2SqrU8 = l2SqrU8Generic
	kernelIPU8 = ipU8Generic
	kernelL2SqrU4 = l2SqrU4Generic
}

// L2Sqr computes the squared Euclidean distance between two
// equal-length f32 vectors.
func L2Sqr(a, b []float32) float32 { return kernelL2Sqr(a, b) }

// IP computes the inner product of two equal-length f32 vectors.
func IP(a, b []float32) float32 { return kernelIP(a, b) }

// CosineDistance computes 1 minus the inner product of two
// unit-norm f32 vectors. It does not renormalize its inputs.
func CosineDistance(a, b []float32) float32 { return 1 - kernelIP(a, b) }

// L2SqrU8 computes the squared distance between two SQ8-encoded
// (one byte per dimension) codes, in integer-promoted f32.
func L2SqrU8(a, b []byte) float32 { return kernelL2SqrU8(a, b) }

// IPU8 computes the inner product between two SQ8-encoded codes, in
// integer-promoted f32.
func IPU8(a, b []byte) float32 { return kernelIPU8(a, b) }

// L2SqrU4 computes the squared distance between two SQ4-packed codes
// (two 4-bit values per byte) over n logical values.
func L2SqrU4(a, b []byte, n int) float32 { return kernelL2SqrU4(a, b, n) }
