// Package ivf implements the inverted-file partitioning stage: a coarse
// k-means quantizer plus posting lists mapping partitions to vector ids.
package ivf

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecbuild/index"
	"github.com/hupe1980/vecbuild/internal/kmeans"
	"github.com/hupe1980/vecbuild/internal/math32"
)

var (
	// ErrNoPartitions is returned when a quantizer is constructed without
	// centroids.
	ErrNoPartitions = errors.New("ivf: no partitions")

	// ErrInvalidNumPartitions is returned when training is requested with a
	// non-positive partition count.
	ErrInvalidNumPartitions = errors.New("ivf: number of partitions must be positive")
)

// CoarseQuantizer assigns vectors to the nearest of a fixed set of partition
// centroids. It is immutable after training and safe for concurrent use.
type CoarseQuantizer struct {
	centroids [][]float32
}

// Train learns partition centroids from the given vectors according to params.
// The rng drives centroid seeding; pass a seeded generator for deterministic
// builds.
func Train(ctx context.Context, vectors [][]float32, params index.IvfBuildParams, rng *rand.Rand) (*CoarseQuantizer, error) {
	if params.NumPartitions < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidNumPartitions, params.NumPartitions)
	}

	centroids, err := kmeans.Run(ctx, vectors, params.NumPartitions, params.MaxIters, rng)
	if err != nil {
		return nil, err
	}
	return &CoarseQuantizer{centroids: centroids}, nil
}

// NewCoarseQuantizer wraps previously trained centroids, e.g. when loading a
// persisted index.
func NewCoarseQuantizer(centroids [][]float32) (*CoarseQuantizer, error) {
	if len(centroids) == 0 {
		return nil, ErrNoPartitions
	}
	return &CoarseQuantizer{centroids: centroids}, nil
}

// NumPartitions returns the number of partitions.
func (q *CoarseQuantizer) NumPartitions() int {
	return len(q.centroids)
}

// Centroids returns the partition centroids. The returned slices are shared;
// callers must not mutate them.
func (q *CoarseQuantizer) Centroids() [][]float32 {
	return q.centroids
}

// Assign returns the partition whose centroid is nearest to vec.
func (q *CoarseQuantizer) Assign(vec []float32) int {
	return kmeans.NearestCentroid(vec, q.centroids)
}

// NearestPartitions returns up to n partition ids ordered by ascending
// centroid distance. This drives probe selection at search time.
func (q *CoarseQuantizer) NearestPartitions(vec []float32, n int) []int {
	type candidate struct {
		partition int
		dist      float32
	}

	candidates := make([]candidate, len(q.centroids))
	for i, centroid := range q.centroids {
		candidates[i] = candidate{partition: i, dist: math32.SquaredL2(vec, centroid)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	partitions := make([]int, n)
	for i := 0; i < n; i++ {
		partitions[i] = candidates[i].partition
	}
	return partitions
}

// Residual writes vec minus its partition centroid into dst.
// dst must have the same length as vec.
func (q *CoarseQuantizer) Residual(dst, vec []float32, partition int) {
	math32.Sub(dst, vec, q.centroids[partition])
}

// Assignment is the result of partitioning a dataset: per-vector partition
// ids plus one posting list per partition.
type Assignment struct {
	// Partitions holds the partition id for each vector, by position.
	Partitions []int

	// Postings maps each partition to the set of vector positions assigned
	// to it.
	Postings []*roaring.Bitmap
}

// Partition assigns every vector to its nearest partition and builds the
// posting lists.
func (q *CoarseQuantizer) Partition(ctx context.Context, vectors [][]float32) (*Assignment, error) {
	assignment := &Assignment{
		Partitions: make([]int, len(vectors)),
		Postings:   make([]*roaring.Bitmap, len(q.centroids)),
	}
	for i := range assignment.Postings {
		assignment.Postings[i] = roaring.New()
	}

	for i, vec := range vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p := q.Assign(vec)
		assignment.Partitions[i] = p
		assignment.Postings[p].Add(uint32(i))
	}

	return assignment, nil
}
