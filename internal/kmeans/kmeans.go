// Package kmeans implements Lloyd's algorithm with kmeans++ seeding for
// float32 vectors. It is the training core shared by the IVF coarse
// quantizer and the PQ sub-quantizers.
package kmeans

import (
	"context"
	"errors"
	"math/rand"

	"github.com/hupe1980/vecbuild/internal/math32"
)

// ErrNoTrainingData is returned when Run is called without vectors.
var ErrNoTrainingData = errors.New("kmeans: no training data")

// Run clusters vectors into k centroids, iterating at most maxIters times or
// until assignments stop changing. The rng drives kmeans++ seeding; pass a
// seeded generator for deterministic training.
//
// If fewer than k vectors are provided, the available vectors are recycled as
// centroids so the caller always gets exactly k of them.
func Run(ctx context.Context, vectors [][]float32, k, maxIters int, rng *rand.Rand) ([][]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrNoTrainingData
	}

	dim := len(vectors[0])

	if len(vectors) < k {
		centroids := make([][]float32, k)
		for i := range centroids {
			centroids[i] = make([]float32, dim)
			copy(centroids[i], vectors[i%len(vectors)])
		}
		return centroids, nil
	}

	centroids := seedPlusPlus(vectors, k, dim, rng)

	assignments := make([]int, len(vectors))
	counts := make([]int, k)
	sumsFlat := make([]float32, k*dim)

	for iter := 0; iter < maxIters; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i, vec := range vectors {
			nearest := NearestCentroid(vec, centroids)
			if assignments[i] != nearest {
				changed = true
				assignments[i] = nearest
			}
		}

		if !changed && iter > 0 {
			break
		}

		clear(counts)
		clear(sumsFlat)
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			math32.AddInPlace(sumsFlat[c*dim:(c+1)*dim], vec)
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed empty clusters from a random vector.
				copy(centroids[c], vectors[rng.Intn(len(vectors))])
				continue
			}
			sum := sumsFlat[c*dim : (c+1)*dim]
			inv := 1 / float32(counts[c])
			for j := range centroids[c] {
				centroids[c][j] = sum[j] * inv
			}
		}
	}

	return centroids, nil
}

// seedPlusPlus picks k initial centroids with probability proportional to the
// squared distance from already chosen ones.
func seedPlusPlus(vectors [][]float32, k, dim int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, k)
	for i := range centroids {
		centroids[i] = make([]float32, dim)
	}

	copy(centroids[0], vectors[rng.Intn(len(vectors))])

	// minDistSq tracks each vector's squared distance to its nearest chosen centroid.
	minDistSq := make([]float32, len(vectors))
	var sum float32
	for i, vec := range vectors {
		d := math32.SquaredL2(vec, centroids[0])
		minDistSq[i] = d
		sum += d
	}

	for c := 1; c < k; c++ {
		if sum == 0 {
			copy(centroids[c], vectors[rng.Intn(len(vectors))])
			continue
		}

		target := rng.Float32() * sum
		var cumsum float32
		chosen := 0
		for i, d := range minDistSq {
			cumsum += d
			if cumsum >= target {
				chosen = i
				break
			}
		}
		copy(centroids[c], vectors[chosen])

		sum = 0
		for i, vec := range vectors {
			d := math32.SquaredL2(vec, centroids[c])
			if d < minDistSq[i] {
				minDistSq[i] = d
			}
			sum += minDistSq[i]
		}
	}

	return centroids
}

// NearestCentroid returns the index of the centroid closest to vec by
// squared L2 distance.
func NearestCentroid(vec []float32, centroids [][]float32) int {
	best := 0
	bestDist := math32.SquaredL2(vec, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := math32.SquaredL2(vec, centroids[i]); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
