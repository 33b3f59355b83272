package quantization_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vann/distance"
	"github.com/hupe1980/vann/quantization"
)

func genCorpus(rng *rand.Rand, n, d int) []float32 {
	data := make([]float32, n*d)
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
	return data
}

// TestFP32RoundTrip covers §8: encode then decode is identity for
// the FP32 quantizer (ignoring the alignment tail).
func TestFP32RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n, d := 20, 37
	data := genCorpus(rng, n, d)

	q, err := quantization.NewFP32Quantizer(distance.L2)
	require.NoError(t, err)
	require.NoError(t, q.Train(data, n, d))

	out := make([]float32, d)
	for i := 0; i < n; i++ {
		q.Decode(q.Code(i), out)
		for j := 0; j < d; j++ {
			assert.Equal(t, data[i*d+j], out[j])
		}
	}
}

// TestSQ8ReconstructionError covers §8: per-dimension max
// reconstruction error must not exceed scale[j].
func TestSQ8ReconstructionError(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n, d := 64, 33
	data := genCorpus(rng, n, d)

	q, err := quantization.NewSQ8Quantizer(distance.L2, nil)
	require.NoError(t, err)
	require.NoError(t, q.Train(data, n, d))

	out := make([]float32, d)
	for i := 0; i < n; i++ {
		q.Decode(q.Code(i), out)
		for j := 0; j < d; j++ {
			diff := out[j] - data[i*d+j]
			if diff < 0 {
				diff = -diff
			}
			assert.LessOrEqual(t, float64(diff), float64(q.Scale(j))+1e-6)
		}
	}
}

func TestSQ4RequiresL2(t *testing.T) {
	_, err := quantization.NewSQ4Quantizer(distance.IP, nil)
	require.ErrorIs(t, err, quantization.ErrUnsupported)

	_, err = quantization.NewSQ4Quantizer(distance.Cosine, nil)
	require.ErrorIs(t, err, quantization.ErrUnsupported)

	_, err = quantization.NewSQ4Quantizer(distance.L2, nil)
	require.NoError(t, err)
}

type fakePool struct {
	ids   []int32
	dists []float32
}

func (p *fakePool) Size() int             { return len(p.ids) }
func (p *fakePool) ID(i int) int32        { return p.ids[i] }
func (p *fakePool) Distance(i int) float32 { return p.dists[i] }

// TestSQ8ReorderDegenerate covers SPEC_FULL §13.1: without a
// companion, Reorder degenerates to a direct id copy.
func TestSQ8ReorderDegenerate(t *testing.T) {
	q, err := quantization.NewSQ8Quantizer(distance.L2, nil)
	require.NoError(t, err)
	require.NoError(t, q.Train(genCorpus(rand.New(rand.NewSource(3)), 10, 8), 10, 8))

	pool := &fakePool{ids: []int32{3, 1, 7}, dists: []float32{0.1, 0.2, 0.3}}
	out := make([]int32, 5)
	q.Reorder(pool, make([]float32, 8), out, 5)
	assert.Equal(t, []int32{3, 1, 7, -1, -1}, out)
}

// TestSQ8ReorderWithCompanion covers §4.B.2: with a companion, the
// top-k is re-ranked by exact FP32 distance.
func TestSQ8ReorderWithCompanion(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n, d := 30, 16
	data := genCorpus(rng, n, d)

	companion, err := quantization.NewFP32Quantizer(distance.L2)
	require.NoError(t, err)

	q, err := quantization.NewSQ8Quantizer(distance.L2, companion)
	require.NoError(t, err)
	require.NoError(t, q.Train(data, n, d))

	query := data[0:d]
	ids := make([]int32, n)
	dists := make([]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = int32(i)
		dists[i] = float32(i) // arbitrary pool order, unrelated to exact distance
	}
	pool := &fakePool{ids: ids, dists: dists}

	out := make([]int32, 5)
	q.Reorder(pool, query, out, 5)

	// the query is exactly corpus vector 0, so it must be the closest
	// match after exact re-ranking.
	assert.Equal(t, int32(0), out[0])
}

// TestCloneIndependentQueryBuffers covers §5: a clone's EncodeQuery
// must not disturb the original's in-flight query state.
func TestCloneIndependentQueryBuffers(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n, d := 20, 12
	data := genCorpus(rng, n, d)

	q, err := quantization.NewSQ8Quantizer(distance.L2, nil)
	require.NoError(t, err)
	require.NoError(t, q.Train(data, n, d))

	q.EncodeQuery(data[0:d])
	want := q.QueryDistance(0)

	clone := q.Clone()
	clone.EncodeQuery(data[d : 2*d])
	_ = clone.QueryDistance(1)

	got := q.QueryDistance(0)
	assert.Equal(t, want, got)
}
