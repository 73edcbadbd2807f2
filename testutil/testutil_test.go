package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(7)
	b := NewRNG(7)
	assert.Equal(t, a.Float32(), b.Float32())
	assert.Equal(t, a.Intn(100), b.Intn(100))

	a.Reset()
	c := NewRNG(7)
	assert.Equal(t, c.Float32(), a.Float32())
	assert.Equal(t, int64(7), a.Seed())
}

func TestUniform(t *testing.T) {
	vectors := Uniform(10, 4, 1)
	require.Len(t, vectors, 10)
	for _, vec := range vectors {
		require.Len(t, vec, 4)
		for _, v := range vec {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}

	assert.Equal(t, Uniform(10, 4, 1), Uniform(10, 4, 1))
}

func TestClusteredSeparation(t *testing.T) {
	vectors := Clustered(40, 4, 2, 0.1, 1)
	require.Len(t, vectors, 40)

	// Members of the same cluster sit far closer together than members of
	// different clusters.
	sameDist := squaredL2(vectors[0], vectors[2])
	crossDist := squaredL2(vectors[0], vectors[1])
	assert.Less(t, sameDist, crossDist)
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
