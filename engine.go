package vecbuild

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/vecbuild/catalog"
	"github.com/hupe1980/vecbuild/distance"
	"github.com/hupe1980/vecbuild/index"
	"github.com/hupe1980/vecbuild/index/ivf"
	"github.com/hupe1980/vecbuild/index/pq"
)

// DefaultVectorColumn is the column an index covers when the builder does
// not name one.
const DefaultVectorColumn = "vector"

// Engine trains IVF-PQ indexes from resolved builder configuration.
type Engine struct {
	opts options
}

// NewEngine creates an engine. Without options it uses an in-process
// catalog, the default codec, zstd artifact compression and no logging.
func NewEngine(optFns ...Option) *Engine {
	return &Engine{
		opts: applyOptions(optFns),
	}
}

// CreateIndex resolves the builder's configuration, registers the index in
// the catalog honoring the replace flag, and trains the two-stage pipeline
// on the given vectors.
//
// Vectors are indexed by position: result ids are offsets into the input
// slice.
func (e *Engine) CreateIndex(ctx context.Context, builder IndexBuilder, vectors [][]float32) (*Index, error) {
	start := time.Now()

	idx, err := e.createIndex(ctx, builder, vectors)

	e.opts.metricsCollector.RecordTrain(len(vectors), time.Since(start), err)
	name := ""
	if idx != nil {
		name = idx.name
	}
	e.opts.logger.LogCreateIndex(ctx, name, len(vectors), err)

	return idx, translateError(err)
}

func (e *Engine) createIndex(ctx context.Context, builder IndexBuilder, vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}

	dimension := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != dimension {
			return nil, &ErrDimensionMismatch{Expected: dimension, Actual: len(vec), cause: fmt.Errorf("vector %d", i)}
		}
	}

	params := builder.Build()
	ivfParams, ok := params.IvfParams()
	if !ok {
		return nil, &ErrInvalidStageParams{Stage: "ivf", Reason: "missing from resolved pipeline"}
	}
	pqParams, ok := params.PQParams()
	if !ok {
		return nil, &ErrInvalidStageParams{Stage: "pq", Reason: "missing from resolved pipeline"}
	}

	column, ok := builder.Column()
	if !ok {
		column = DefaultVectorColumn
	}
	name, ok := builder.IndexName()
	if !ok {
		name = column + "_idx"
	}

	// Claim the name before spending time on training.
	entry := catalog.Entry{
		Name:           name,
		Column:         column,
		MetricType:     params.MetricType.String(),
		ArtifactPrefix: "indexes/" + name,
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.opts.catalog.Create(ctx, entry, builder.Replace()); err != nil {
		return nil, err
	}

	distFn, err := distance.Provider(params.MetricType)
	if err != nil {
		return nil, err
	}

	// Cosine works on the unit sphere; index normalized copies so that
	// squared L2 over codes ranks identically.
	indexed := vectors
	if params.MetricType == index.MetricTypeCosine {
		indexed = make([][]float32, len(vectors))
		for i, vec := range vectors {
			normalized, ok := distance.NormalizeL2Copy(vec)
			if !ok {
				// Zero vectors stay as-is; cosine distance to them is
				// pinned at the maximum anyway.
				normalized = vec
			}
			indexed[i] = normalized
		}
	}

	rng := e.newRand()

	sample := e.trainSample(indexed, rng)

	coarse, err := ivf.Train(ctx, sample, ivfParams, rng)
	if err != nil {
		return nil, err
	}
	e.opts.logger.LogTrainStage(ctx, "ivf", coarse.NumPartitions(), coarse.NumPartitions())

	assignment, err := coarse.Partition(ctx, indexed)
	if err != nil {
		return nil, err
	}

	// PQ codebooks are trained on residuals to the coarse centroids.
	residuals := make([][]float32, len(indexed))
	for i, vec := range indexed {
		residual := make([]float32, dimension)
		coarse.Residual(residual, vec, assignment.Partitions[i])
		residuals[i] = residual
	}

	quantizer, err := pq.Train(ctx, e.trainSample(residuals, rng), pqParams, rng)
	if err != nil {
		return nil, err
	}
	e.opts.logger.LogTrainStage(ctx, "pq", pqParams.NumSubVectors, pqParams.NumSubVectors)

	codes, err := e.encodeAll(ctx, quantizer, residuals)
	if err != nil {
		return nil, err
	}

	return &Index{
		name:      name,
		column:    column,
		params:    params,
		dimension: dimension,
		coarse:    coarse,
		quantizer: quantizer,
		codes:     codes,
		postings:  assignment.Postings,
		vectors:   indexed,
		distFn:    distFn,
		logger:    e.opts.logger,
		metrics:   e.opts.metricsCollector,
	}, nil
}

// encodeAll quantizes every residual, logging throttled progress.
func (e *Engine) encodeAll(ctx context.Context, quantizer *pq.ProductQuantizer, residuals [][]float32) ([][]byte, error) {
	limiter := rate.NewLimiter(rate.Every(time.Second), 1)

	codes := make([][]byte, len(residuals))
	for i, residual := range residuals {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if limiter.Allow() {
				e.opts.logger.LogTrainStage(ctx, "encode", i, len(residuals))
			}
		}

		code, err := quantizer.Encode(residual)
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

// trainSample caps the training set per WithMaxTrainVectors.
func (e *Engine) trainSample(vectors [][]float32, rng *rand.Rand) [][]float32 {
	maxVectors := e.opts.maxTrainVectors
	if maxVectors <= 0 || len(vectors) <= maxVectors {
		return vectors
	}

	sample := make([][]float32, maxVectors)
	for i, j := range rng.Perm(len(vectors))[:maxVectors] {
		sample[i] = vectors[j]
	}
	return sample
}

func (e *Engine) newRand() *rand.Rand {
	if e.opts.randomSeed != nil {
		return rand.New(rand.NewSource(*e.opts.randomSeed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Catalog exposes the engine's catalog for inspection and cleanup.
func (e *Engine) Catalog() catalog.Catalog {
	return e.opts.catalog
}

// Index is a trained IVF-PQ index over a fixed set of vectors.
// It is immutable after construction and safe for concurrent search.
type Index struct {
	name      string
	column    string
	params    *index.VectorIndexParams
	dimension int

	coarse    *ivf.CoarseQuantizer
	quantizer *pq.ProductQuantizer

	// codes holds the PQ codes of each vector's residual, by position.
	codes [][]byte

	// postings maps each partition to the vector positions assigned to it.
	postings []*roaring.Bitmap

	// vectors are retained for exact reranking. Cosine indexes store
	// normalized copies.
	vectors [][]float32

	distFn  distance.Func
	logger  *Logger
	metrics MetricsCollector
}

// Name returns the registered index name.
func (idx *Index) Name() string { return idx.name }

// Column returns the vector column the index covers.
func (idx *Index) Column() string { return idx.column }

// Params returns the resolved pipeline parameters the index was built from.
func (idx *Index) Params() *index.VectorIndexParams { return idx.params }

// Dimension returns the vector dimensionality.
func (idx *Index) Dimension() int { return idx.dimension }

// NumVectors returns the number of indexed vectors.
func (idx *Index) NumVectors() int { return len(idx.codes) }
