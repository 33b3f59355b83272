package builder_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vann/builder"
	"github.com/hupe1980/vann/distance"
)

func genCorpus(rng *rand.Rand, n, d int) []float32 {
	data := make([]float32, n*d)
	for i := range data {
		data[i] = rng.Float32()*0.2 - 0.1
	}
	return data
}

// TestBuildInvariants covers §8: every row has at most max_degree
// active neighbors, every neighbor id is in range, no self-loops, no
// duplicates within a row.
func TestBuildInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	n, d, m := 100, 32, 8
	data := genCorpus(rng, n, d)

	b, err := builder.New(builder.WithM(m), builder.WithEFConstruction(64), builder.WithRandomSeed(42))
	require.NoError(t, err)

	g, err := b.Build(data, n, d)
	require.NoError(t, err)

	require.Equal(t, n, g.NumNodes())
	maxDegree := g.MaxDegree()
	require.Equal(t, 2*m, maxDegree)

	for u := int32(0); u < int32(n); u++ {
		deg := int(g.Degree(u))
		assert.LessOrEqual(t, deg, maxDegree)
		seen := map[int32]bool{}
		row := g.Neighbors(u)
		for i, v := range row {
			if i >= deg {
				assert.Equal(t, int32(-1), v)
				continue
			}
			assert.NotEqual(t, u, v, "self-loop")
			assert.False(t, seen[v], "duplicate neighbor")
			seen[v] = true
			assert.True(t, v >= 0 && int(v) < n)
		}
	}

	require.NotNil(t, g.Initializer())
	require.NotEmpty(t, g.EntryPoints())
}

// TestBuildDeterministic covers §8: identical seeds produce
// identical adjacency.
func TestBuildDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n, d := 50, 16
	data := genCorpus(rng, n, d)

	build := func() []int32 {
		b, err := builder.New(builder.WithM(8), builder.WithEFConstruction(32), builder.WithRandomSeed(99))
		require.NoError(t, err)
		g, err := b.Build(data, n, d)
		require.NoError(t, err)

		var flat []int32
		for u := int32(0); u < int32(n); u++ {
			flat = append(flat, g.Neighbors(u)...)
		}
		return flat
	}

	first := build()
	second := build()
	assert.Equal(t, first, second)
}

// TestBuildRecall covers the build half of §8 scenario 1 with L2/FP32
// over a small deterministic corpus: for more than a tenth of the
// corpus points, the brute-force nearest neighbor appears directly in
// the point's own base-layer row. No search is run.
func TestBuildRecall(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n, d := 200, 24
	data := genCorpus(rng, n, d)

	b, err := builder.New(
		builder.WithM(16),
		builder.WithEFConstruction(100),
		builder.WithRandomSeed(1),
	)
	require.NoError(t, err)

	g, err := b.Build(data, n, d)
	require.NoError(t, err)

	l2, err := distance.ForMetric(distance.L2)
	require.NoError(t, err)

	vec := func(id int32) []float32 { return data[int(id)*d : int(id+1)*d] }

	hits := 0
	for q := int32(0); q < int32(n); q++ {
		// brute-force nearest neighbor (excluding self)
		best := int32(-1)
		bestDist := float32(0)
		for c := int32(0); c < int32(n); c++ {
			if c == q {
				continue
			}
			dd := l2(vec(q), vec(c))
			if best == -1 || dd < bestDist {
				best, bestDist = c, dd
			}
		}

		// one-hop walk from q's own committed row: does it reach its
		// true nearest neighbor, or something close to it?
		row := g.Neighbors(q)
		found := false
		for _, v := range row {
			if v == best {
				found = true
				break
			}
		}
		if found {
			hits++
		}
	}
	// one-hop-only is a weak proxy for full graph search recall; just
	// assert the graph is not degenerate (some meaningful edge overlap).
	assert.Greater(t, hits, n/10)
}

func TestBuildRejectsShapeMismatch(t *testing.T) {
	b, err := builder.New()
	require.NoError(t, err)
	_, err = b.Build(make([]float32, 10), 5, 3)
	assert.Error(t, err)
}

func TestBuildEmptyCorpus(t *testing.T) {
	b, err := builder.New()
	require.NoError(t, err)
	g, err := b.Build(nil, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, g.NumNodes())
	assert.Nil(t, g.Initializer())
	assert.Empty(t, g.EntryPoints())
}
