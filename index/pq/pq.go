// Package pq implements the product-quantization compression stage: codebook
// training, code generation, and asymmetric distance computation. The
// optimized variant (OPQ) additionally learns a rotation that reduces
// quantization error.
package pq

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecbuild/index"
	"github.com/hupe1980/vecbuild/internal/kmeans"
	"github.com/hupe1980/vecbuild/internal/math32"
)

var (
	// ErrNoTrainingData is returned when Train is called without vectors.
	ErrNoTrainingData = errors.New("pq: no training data")

	// ErrInvalidNumBits is returned when the code width does not fit a byte.
	ErrInvalidNumBits = errors.New("pq: num bits must be in [1,8]")
)

// ErrDimensionNotDivisible indicates that the vector dimension cannot be
// split evenly into the configured number of sub-vectors.
type ErrDimensionNotDivisible struct {
	Dimension     int
	NumSubVectors int
}

func (e *ErrDimensionNotDivisible) Error() string {
	return fmt.Sprintf("pq: dimension %d not divisible by %d sub-vectors", e.Dimension, e.NumSubVectors)
}

// ProductQuantizer compresses vectors into NumSubVectors byte codes.
// It is immutable after training and safe for concurrent use.
type ProductQuantizer struct {
	params    index.PQBuildParams
	dimension int
	subDim    int

	// codebooks holds NumSubVectors codebooks of NumCentroids centroids each.
	codebooks [][][]float32

	// rotation is the learned OPQ rotation matrix, nil for plain PQ.
	rotation [][]float32
}

// Train learns codebooks (and, when params.UseOPQ is set, a rotation) from
// the given vectors. Sub-quantizer codebooks are trained in parallel.
func Train(ctx context.Context, vectors [][]float32, params index.PQBuildParams, rng *rand.Rand) (*ProductQuantizer, error) {
	if len(vectors) == 0 {
		return nil, ErrNoTrainingData
	}
	if params.NumBits < 1 || params.NumBits > 8 {
		return nil, ErrInvalidNumBits
	}

	dimension := len(vectors[0])
	if params.NumSubVectors <= 0 || dimension%params.NumSubVectors != 0 {
		return nil, &ErrDimensionNotDivisible{Dimension: dimension, NumSubVectors: params.NumSubVectors}
	}

	pq := &ProductQuantizer{
		params:    params,
		dimension: dimension,
		subDim:    dimension / params.NumSubVectors,
	}

	if !params.UseOPQ {
		codebooks, err := trainCodebooks(ctx, vectors, params, pq.subDim, rng)
		if err != nil {
			return nil, err
		}
		pq.codebooks = codebooks
		return pq, nil
	}

	if err := pq.trainOptimized(ctx, vectors, rng); err != nil {
		return nil, err
	}
	return pq, nil
}

// New wraps previously trained codebooks (and optional rotation), e.g. when
// loading a persisted index.
func New(params index.PQBuildParams, dimension int, codebooks [][][]float32, rotation [][]float32) (*ProductQuantizer, error) {
	if len(codebooks) != params.NumSubVectors {
		return nil, fmt.Errorf("pq: expected %d codebooks, got %d", params.NumSubVectors, len(codebooks))
	}
	if params.NumSubVectors <= 0 || dimension%params.NumSubVectors != 0 {
		return nil, &ErrDimensionNotDivisible{Dimension: dimension, NumSubVectors: params.NumSubVectors}
	}
	return &ProductQuantizer{
		params:    params,
		dimension: dimension,
		subDim:    dimension / params.NumSubVectors,
		codebooks: codebooks,
		rotation:  rotation,
	}, nil
}

// trainCodebooks trains one codebook per sub-vector position, in parallel.
func trainCodebooks(ctx context.Context, vectors [][]float32, params index.PQBuildParams, subDim int, rng *rand.Rand) ([][][]float32, error) {
	codebooks := make([][][]float32, params.NumSubVectors)

	// Each sub-quantizer gets its own deterministic generator; rand.Rand is
	// not safe for concurrent use.
	seeds := make([]int64, params.NumSubVectors)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	g, gctx := errgroup.WithContext(ctx)
	for m := 0; m < params.NumSubVectors; m++ {
		g.Go(func() error {
			subvectors := make([][]float32, len(vectors))
			start := m * subDim
			for i, vec := range vectors {
				subvectors[i] = vec[start : start+subDim]
			}

			cb, err := kmeans.Run(gctx, subvectors, params.NumCentroids(), params.MaxIters, rand.New(rand.NewSource(seeds[m])))
			if err != nil {
				return err
			}
			codebooks[m] = cb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return codebooks, nil
}

// Params returns the configuration this quantizer was trained with.
func (pq *ProductQuantizer) Params() index.PQBuildParams {
	return pq.params
}

// Dimension returns the input vector dimension.
func (pq *ProductQuantizer) Dimension() int {
	return pq.dimension
}

// Codebooks returns the trained codebooks. The returned slices are shared;
// callers must not mutate them.
func (pq *ProductQuantizer) Codebooks() [][][]float32 {
	return pq.codebooks
}

// Rotation returns the learned OPQ rotation, or nil for plain PQ.
func (pq *ProductQuantizer) Rotation() [][]float32 {
	return pq.rotation
}

// CodeSize returns the compressed size of one vector in bytes.
func (pq *ProductQuantizer) CodeSize() int {
	return pq.params.NumSubVectors
}

// Encode quantizes a vector into its byte codes.
func (pq *ProductQuantizer) Encode(vec []float32) ([]byte, error) {
	if len(vec) != pq.dimension {
		return nil, fmt.Errorf("pq: vector dimension %d does not match trained dimension %d", len(vec), pq.dimension)
	}

	if pq.rotation != nil {
		vec = pq.rotate(vec)
	}

	codes := make([]byte, pq.params.NumSubVectors)
	for m := range codes {
		start := m * pq.subDim
		codes[m] = uint8(kmeans.NearestCentroid(vec[start:start+pq.subDim], pq.codebooks[m]))
	}
	return codes, nil
}

// Decode reconstructs an approximate vector from byte codes. For OPQ the
// inverse rotation is applied so the result lives in the original space.
func (pq *ProductQuantizer) Decode(codes []byte) ([]float32, error) {
	if len(codes) != pq.params.NumSubVectors {
		return nil, fmt.Errorf("pq: expected %d codes, got %d", pq.params.NumSubVectors, len(codes))
	}

	reconstructed := make([]float32, pq.dimension)
	for m, code := range codes {
		if int(code) >= len(pq.codebooks[m]) {
			return nil, fmt.Errorf("pq: code %d out of range for sub-quantizer %d", code, m)
		}
		copy(reconstructed[m*pq.subDim:(m+1)*pq.subDim], pq.codebooks[m][code])
	}

	if pq.rotation != nil {
		// The rotation is orthonormal, so its transpose is its inverse.
		reconstructed = pq.rotateInverse(reconstructed)
	}
	return reconstructed, nil
}

// DistanceTable precomputes the squared L2 distance from the query to every
// centroid of every sub-quantizer, enabling asymmetric distance computation
// in O(NumSubVectors) per code instead of decoding full vectors.
//
// The query must live in the same space as the encoded vectors (i.e. the
// residual space when codes were built from residuals).
type DistanceTable struct {
	numCentroids int
	table        []float32 // NumSubVectors * NumCentroids, row-major
}

// DistanceTable builds the ADC lookup table for the given query.
func (pq *ProductQuantizer) DistanceTable(query []float32) (*DistanceTable, error) {
	if len(query) != pq.dimension {
		return nil, fmt.Errorf("pq: query dimension %d does not match trained dimension %d", len(query), pq.dimension)
	}

	if pq.rotation != nil {
		query = pq.rotate(query)
	}

	k := pq.params.NumCentroids()
	dt := &DistanceTable{
		numCentroids: k,
		table:        make([]float32, pq.params.NumSubVectors*k),
	}
	for m := 0; m < pq.params.NumSubVectors; m++ {
		sub := query[m*pq.subDim : (m+1)*pq.subDim]
		row := dt.table[m*k : (m+1)*k]
		for c, centroid := range pq.codebooks[m] {
			row[c] = math32.SquaredL2(sub, centroid)
		}
	}
	return dt, nil
}

// Distance returns the approximate squared L2 distance for the given codes.
func (dt *DistanceTable) Distance(codes []byte) float32 {
	var d float32
	for m, code := range codes {
		d += dt.table[m*dt.numCentroids+int(code)]
	}
	return d
}

func (pq *ProductQuantizer) rotate(vec []float32) []float32 {
	return matVec(pq.rotation, vec)
}

func (pq *ProductQuantizer) rotateInverse(vec []float32) []float32 {
	out := make([]float32, len(vec))
	for j := range vec {
		for i := range vec {
			out[j] += pq.rotation[i][j] * vec[i]
		}
	}
	return out
}

func matVec(m [][]float32, vec []float32) []float32 {
	out := make([]float32, len(vec))
	for i, row := range m {
		out[i] = math32.Dot(row, vec)
	}
	return out
}
