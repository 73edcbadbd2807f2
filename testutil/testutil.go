// Package testutil provides deterministic vector generators for tests.
package testutil

import (
	"math/rand"
	"sync"
)

// RNG is a seeded, thread-safe random number generator.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// Uniform returns n random vectors with coordinates in [0, 1).
func Uniform(n, dimension int, seed int64) [][]float32 {
	rng := NewRNG(seed)

	vectors := make([][]float32, n)
	for i := range vectors {
		vec := make([]float32, dimension)
		rng.FillUniform(vec)
		vectors[i] = vec
	}
	return vectors
}

// Clustered returns n vectors scattered with the given noise around k
// well-separated cluster centers. Vector i belongs to cluster i%k, so
// cluster membership is known to the caller.
func Clustered(n, dimension, k int, noise float32, seed int64) [][]float32 {
	rng := NewRNG(seed)

	centers := make([][]float32, k)
	for c := range centers {
		center := make([]float32, dimension)
		for d := range center {
			center[d] = float32(c*10) + rng.Float32()
		}
		centers[c] = center
	}

	vectors := make([][]float32, n)
	for i := range vectors {
		center := centers[i%k]
		vec := make([]float32, dimension)
		for d := range vec {
			vec[d] = center[d] + noise*rng.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}
