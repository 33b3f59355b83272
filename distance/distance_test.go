package distance_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vann/distance"
)

func randVec(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func l2Reference(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func ipReference(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// TestKernelEquivalence is the end-to-end scenario from §8.5: for
// every listed dimension, the dispatched kernel must agree with the
// scalar reference to within 1e-5 relative error, covering dimension
// tails that don't divide evenly by any lane width.
func TestKernelEquivalence(t *testing.T) {
	dims := []int{1, 4, 8, 16, 32, 63, 64, 65, 127, 128, 129, 256}
	rng := rand.New(rand.NewSource(42))

	for _, d := range dims {
		a := randVec(rng, d)
		b := randVec(rng, d)

		gotL2 := distance.L2Sqr(a, b)
		wantL2 := l2Reference(a, b)
		assertCloseEnough(t, wantL2, gotL2, d, "l2sqr")

		gotIP := distance.InnerProduct(a, b)
		wantIP := ipReference(a, b)
		assertCloseEnough(t, wantIP, gotIP, d, "ip")
	}
}

func assertCloseEnough(t *testing.T, want, got float32, d int, name string) {
	t.Helper()
	denom := math.Abs(float64(want))
	if denom < 1e-6 {
		denom = 1
	}
	rel := math.Abs(float64(got-want)) / denom
	assert.LessOrEqualf(t, rel, 1e-5, "%s dim=%d: want %v got %v", name, d, want, got)
}

func TestCosineDistanceUnitNorm(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	require.InDelta(t, 0, distance.CosineDistance(a, b), 1e-6)

	c := []float32{0, 1, 0}
	require.InDelta(t, 1, distance.CosineDistance(a, c), 1e-6)
}

func TestSQ4SupportsOnlyL2(t *testing.T) {
	assert.True(t, distance.SupportsCode(distance.L2, 4))
	assert.False(t, distance.SupportsCode(distance.IP, 4))
	assert.False(t, distance.SupportsCode(distance.Cosine, 4))
}

// TestForMetricIPOrdersMostSimilarAsNearest guards against returning
// raw inner product from ForMetric: a pool ordered ascending by
// distance must rank the more-similar vector first.
func TestForMetricIPOrdersMostSimilarAsNearest(t *testing.T) {
	fn, err := distance.ForMetric(distance.IP)
	require.NoError(t, err)

	q := []float32{1, 0, 0}
	similar := []float32{0.9, 0.1, 0}
	dissimilar := []float32{-1, 0, 0}

	dSimilar := fn(q, similar)
	dDissimilar := fn(q, dissimilar)
	assert.Less(t, dSimilar, dDissimilar, "more similar vector must have smaller distance")
}

func TestIPCodeDistanceOrdersMostSimilarAsNearest(t *testing.T) {
	q := []byte{200, 10, 10}
	similar := []byte{190, 20, 10}
	dissimilar := []byte{0, 10, 10}

	dSimilar := distance.IPCodeDistance(q, similar)
	dDissimilar := distance.IPCodeDistance(q, dissimilar)
	assert.Less(t, dSimilar, dDissimilar, "more similar code must have smaller distance")
}
