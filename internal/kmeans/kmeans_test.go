package kmeans

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbuild/internal/math32"
)

func TestRunNoData(t *testing.T) {
	_, err := Run(context.Background(), nil, 4, 10, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestRunFewerVectorsThanK(t *testing.T) {
	vectors := [][]float32{{1, 1}, {2, 2}}
	centroids, err := Run(context.Background(), vectors, 5, 10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, centroids, 5)
	for _, c := range centroids {
		assert.Len(t, c, 2)
	}
}

func TestRunSeparatedClusters(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	// Two well-separated blobs around (0,0) and (10,10).
	var vectors [][]float32
	for i := 0; i < 50; i++ {
		vectors = append(vectors, []float32{rng.Float32(), rng.Float32()})
		vectors = append(vectors, []float32{10 + rng.Float32(), 10 + rng.Float32()})
	}

	centroids, err := Run(context.Background(), vectors, 2, 25, rng)
	require.NoError(t, err)
	require.Len(t, centroids, 2)

	// One centroid should land near each blob.
	d0 := math32.SquaredL2(centroids[0], []float32{0.5, 0.5})
	d1 := math32.SquaredL2(centroids[1], []float32{0.5, 0.5})
	near, far := centroids[0], centroids[1]
	if d1 < d0 {
		near, far = far, near
	}
	assert.Less(t, math32.SquaredL2(near, []float32{0.5, 0.5}), float32(1.0))
	assert.Less(t, math32.SquaredL2(far, []float32{10.5, 10.5}), float32(1.0))
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vectors := [][]float32{{1}, {2}, {3}, {4}}
	_, err := Run(ctx, vectors, 2, 10, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNearestCentroid(t *testing.T) {
	centroids := [][]float32{{0, 0}, {10, 10}, {5, 5}}
	assert.Equal(t, 0, NearestCentroid([]float32{1, 1}, centroids))
	assert.Equal(t, 1, NearestCentroid([]float32{9, 9}, centroids))
	assert.Equal(t, 2, NearestCentroid([]float32{5, 4}, centroids))
}
