package ivf

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbuild/index"
)

func clusteredVectors(rng *rand.Rand, perCluster int) [][]float32 {
	centers := [][]float32{{0, 0}, {10, 0}, {0, 10}, {10, 10}}
	var vectors [][]float32
	for _, c := range centers {
		for i := 0; i < perCluster; i++ {
			vectors = append(vectors, []float32{
				c[0] + rng.Float32(),
				c[1] + rng.Float32(),
			})
		}
	}
	return vectors
}

func TestTrainAndAssign(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vectors := clusteredVectors(rng, 25)

	q, err := Train(context.Background(), vectors, index.NewIvfBuildParams(4), rng)
	require.NoError(t, err)
	assert.Equal(t, 4, q.NumPartitions())

	// Vectors from the same blob must land in the same partition.
	p1 := q.Assign([]float32{0.2, 0.3})
	p2 := q.Assign([]float32{0.8, 0.1})
	assert.Equal(t, p1, p2)

	// Vectors from opposite blobs must not.
	p3 := q.Assign([]float32{10.5, 10.5})
	assert.NotEqual(t, p1, p3)
}

func TestTrainInvalidNumPartitions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vectors := clusteredVectors(rng, 5)

	for _, numPartitions := range []int{0, -1} {
		_, err := Train(context.Background(), vectors, index.IvfBuildParams{NumPartitions: numPartitions, MaxIters: 10}, rng)
		assert.ErrorIs(t, err, ErrInvalidNumPartitions)
	}
}

func TestNewCoarseQuantizer(t *testing.T) {
	_, err := NewCoarseQuantizer(nil)
	assert.ErrorIs(t, err, ErrNoPartitions)

	q, err := NewCoarseQuantizer([][]float32{{0, 0}, {1, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, q.NumPartitions())
}

func TestNearestPartitions(t *testing.T) {
	q, err := NewCoarseQuantizer([][]float32{{0, 0}, {5, 5}, {10, 10}})
	require.NoError(t, err)

	got := q.NearestPartitions([]float32{6, 6}, 2)
	assert.Equal(t, []int{1, 2}, got)

	// n larger than the partition count is clamped.
	got = q.NearestPartitions([]float32{0, 0}, 10)
	assert.Len(t, got, 3)
	assert.Equal(t, 0, got[0])
}

func TestResidual(t *testing.T) {
	q, err := NewCoarseQuantizer([][]float32{{1, 2}})
	require.NoError(t, err)

	dst := make([]float32, 2)
	q.Residual(dst, []float32{3, 3}, 0)
	assert.Equal(t, []float32{2, 1}, dst)
}

func TestPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vectors := clusteredVectors(rng, 10)

	q, err := Train(context.Background(), vectors, index.NewIvfBuildParams(4), rng)
	require.NoError(t, err)

	assignment, err := q.Partition(context.Background(), vectors)
	require.NoError(t, err)
	require.Len(t, assignment.Partitions, len(vectors))
	require.Len(t, assignment.Postings, 4)

	// Every vector appears in exactly the posting list of its partition.
	var total uint64
	for p, postings := range assignment.Postings {
		total += postings.GetCardinality()
		it := postings.Iterator()
		for it.HasNext() {
			assert.Equal(t, p, assignment.Partitions[it.Next()])
		}
	}
	assert.Equal(t, uint64(len(vectors)), total)
}

func TestPartitionCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q, err := NewCoarseQuantizer([][]float32{{0, 0}})
	require.NoError(t, err)

	_, err = q.Partition(ctx, [][]float32{{1, 1}})
	assert.ErrorIs(t, err, context.Canceled)
}
