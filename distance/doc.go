// Package distance provides vector distance calculations with a
// runtime-dispatched SIMD tier (AVX-512/AVX2/SSE on amd64, NEON on
// arm64, falling back to a portable scalar kernel elsewhere).
//
// # Supported Metrics
//
//   - L2: squared Euclidean distance
//   - IP: inner product
//   - Cosine: 1 minus inner product of unit-norm vectors
//
// # Usage
//
//	d := distance.L2Sqr(a, b)
//	f, _ := distance.ForMetric(distance.Cosine)
//	d = f(a, b)
package distance
