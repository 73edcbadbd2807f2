package pq

import (
	"context"
	"math/rand"

	"github.com/hupe1980/vecbuild/internal/kmeans"
	"github.com/hupe1980/vecbuild/internal/math32"
)

// trainOptimized learns rotation and codebooks jointly by alternating
// optimization: rotate, retrain codebooks, nudge the rotation toward the
// dominant direction of the quantization residuals, re-orthogonalize.
func (pq *ProductQuantizer) trainOptimized(ctx context.Context, vectors [][]float32, rng *rand.Rand) error {
	dim := pq.dimension
	pq.rotation = identity(dim)

	rotated := make([][]float32, len(vectors))
	for i := range rotated {
		rotated[i] = make([]float32, dim)
	}

	iters := pq.params.MaxOpqIters
	if iters < 1 {
		iters = 1
	}

	for iter := 0; iter < iters; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, vec := range vectors {
			copy(rotated[i], matVec(pq.rotation, vec))
		}

		codebooks, err := trainCodebooks(ctx, rotated, pq.params, pq.subDim, rng)
		if err != nil {
			return err
		}
		pq.codebooks = codebooks

		if iter < iters-1 {
			pq.updateRotation(rotated)
		}
	}

	return nil
}

// updateRotation refines the rotation from the covariance of the current
// quantization residuals, pulling the diagonal toward the dominant
// eigenvector and restoring orthonormality with Gram-Schmidt.
func (pq *ProductQuantizer) updateRotation(rotated [][]float32) {
	dim := pq.dimension

	residuals := make([][]float32, len(rotated))
	for i, vec := range rotated {
		reconstructed := make([]float32, dim)
		for m := 0; m < pq.params.NumSubVectors; m++ {
			start := m * pq.subDim
			code := kmeans.NearestCentroid(vec[start:start+pq.subDim], pq.codebooks[m])
			copy(reconstructed[start:start+pq.subDim], pq.codebooks[m][code])
		}
		residuals[i] = make([]float32, dim)
		math32.Sub(residuals[i], vec, reconstructed)
	}

	cov := covariance(residuals)
	eigen := dominantEigenvector(cov)

	// Learning-rate nudge of the diagonal toward the eigenvector.
	const alpha = 0.1
	for i := 0; i < dim; i++ {
		pq.rotation[i][i] += alpha * (eigen[i] - pq.rotation[i][i])
	}

	orthonormalize(pq.rotation)
}

func identity(dim int) [][]float32 {
	m := make([][]float32, dim)
	for i := range m {
		m[i] = make([]float32, dim)
		m[i][i] = 1
	}
	return m
}

// covariance computes the covariance matrix of the given vectors.
func covariance(vectors [][]float32) [][]float32 {
	dim := len(vectors[0])
	n := len(vectors)

	mean := make([]float32, dim)
	for _, vec := range vectors {
		math32.AddInPlace(mean, vec)
	}
	math32.ScaleInPlace(mean, 1/float32(n))

	cov := make([][]float32, dim)
	for i := range cov {
		cov[i] = make([]float32, dim)
	}
	centered := make([]float32, dim)
	for _, vec := range vectors {
		math32.Sub(centered, vec, mean)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				cov[i][j] += centered[i] * centered[j]
			}
		}
	}
	norm := float32(1)
	if n > 1 {
		norm = 1 / float32(n-1)
	}
	for i := range cov {
		math32.ScaleInPlace(cov[i], norm)
	}
	return cov
}

// dominantEigenvector approximates the top eigenvector by power iteration.
func dominantEigenvector(m [][]float32) []float32 {
	dim := len(m)
	v := make([]float32, dim)
	init := 1 / math32.Sqrt(float32(dim))
	for i := range v {
		v[i] = init
	}

	for iter := 0; iter < 5; iter++ {
		next := matVec(m, v)
		norm := math32.Sqrt(math32.Dot(next, next))
		if norm == 0 {
			break
		}
		math32.ScaleInPlace(next, 1/norm)
		v = next
	}
	return v
}

// orthonormalize applies Gram-Schmidt to the rows of m in place.
func orthonormalize(m [][]float32) {
	for i := range m {
		for j := 0; j < i; j++ {
			dot := math32.Dot(m[i], m[j])
			for k := range m[i] {
				m[i][k] -= dot * m[j][k]
			}
		}
		norm := math32.Sqrt(math32.Dot(m[i], m[i]))
		if norm > 0 {
			math32.ScaleInPlace(m[i], 1/norm)
		}
	}
}
