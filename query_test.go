package vecbuild

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbuild/index"
)

func buildTestIndex(t *testing.T, metricType index.MetricType) (*Index, [][]float32) {
	t.Helper()

	ctx := context.Background()
	engine := NewEngine(WithRandomSeed(42))
	vectors := clusteredVectors(t, 200, 8, 4, 1)

	pqParams := index.PQBuildParams{
		NumSubVectors: 4,
		NumBits:       4,
		MetricType:    metricType,
		MaxIters:      10,
		MaxOpqIters:   5,
	}
	builder := testBuilder().SetPQParams(pqParams)

	idx, err := engine.CreateIndex(ctx, builder, vectors)
	require.NoError(t, err)
	return idx, vectors
}

func TestSearchDefaults(t *testing.T) {
	idx, vectors := buildTestIndex(t, index.MetricTypeL2)

	results, err := idx.Search(vectors[0]).NProbes(4).Execute(context.Background())
	require.NoError(t, err)

	// Default limit is 10.
	assert.Len(t, results, DefaultLimit)

	// Results are sorted by ascending distance.
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

func TestSearchFindsExactMatch(t *testing.T) {
	idx, vectors := buildTestIndex(t, index.MetricTypeL2)

	results, err := idx.Search(vectors[7]).
		NProbes(4).
		RefineFactor(10).
		Execute(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// With all partitions probed and exact reranking, the query vector
	// itself must come back first at distance zero.
	assert.Equal(t, uint32(7), results[0].ID)
	assert.InDelta(t, 0.0, float64(results[0].Distance), 1e-6)
}

func TestSearchLimit(t *testing.T) {
	idx, vectors := buildTestIndex(t, index.MetricTypeL2)

	results, err := idx.Search(vectors[0]).NProbes(4).Limit(3).Execute(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 3)

	_, err = idx.Search(vectors[0]).Limit(0).Execute(context.Background())
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearchFilter(t *testing.T) {
	idx, vectors := buildTestIndex(t, index.MetricTypeL2)

	results, err := idx.Search(vectors[0]).
		NProbes(4).
		Filter(func(id uint32) bool { return id%2 == 0 }).
		Execute(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.Zero(t, r.ID%2)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	idx, _ := buildTestIndex(t, index.MetricTypeL2)

	_, err := idx.Search(make([]float32, 5)).Execute(context.Background())
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 8, dm.Expected)
	assert.Equal(t, 5, dm.Actual)
}

func TestSearchCosine(t *testing.T) {
	idx, vectors := buildTestIndex(t, index.MetricTypeCosine)
	assert.Equal(t, index.MetricTypeCosine, idx.Params().MetricType)

	results, err := idx.Search(vectors[3]).
		NProbes(4).
		RefineFactor(10).
		Execute(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Cosine distance of a vector to itself is zero.
	assert.Equal(t, uint32(3), results[0].ID)
	assert.InDelta(t, 0.0, float64(results[0].Distance), 1e-5)
}

func TestSearchNProbesRecall(t *testing.T) {
	idx, vectors := buildTestIndex(t, index.MetricTypeL2)
	ctx := context.Background()

	// Probing every partition can only find more, never fewer, of the true
	// neighbors than probing one.
	one, err := idx.Search(vectors[0]).NProbes(1).Limit(20).Execute(ctx)
	require.NoError(t, err)
	all, err := idx.Search(vectors[0]).NProbes(4).Limit(20).Execute(ctx)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(all), len(one))
}
