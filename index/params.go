package index

// Default values for the IVF partitioning stage.
const (
	// DefaultNumPartitions is the default number of coarse partitions.
	DefaultNumPartitions = 32
	// DefaultIvfMaxIters caps the k-means iterations when training partitions.
	DefaultIvfMaxIters = 50
)

// Default values for the PQ compression stage.
const (
	// DefaultNumSubVectors is the default number of sub-vectors per vector.
	DefaultNumSubVectors = 16
	// DefaultNumBits is the default code width; 8 bits gives 256 centroids
	// per sub-quantizer and one byte per code.
	DefaultNumBits = 8
	// DefaultPQMaxIters caps the k-means iterations when training codebooks.
	DefaultPQMaxIters = 50
	// DefaultMaxOpqIters caps the alternating optimization rounds when OPQ
	// is enabled.
	DefaultMaxOpqIters = 50
)

// IvfBuildParams configures the inverted-file partitioning stage.
type IvfBuildParams struct {
	// NumPartitions is the number of coarse clusters the dataset is
	// partitioned into. Rule of thumb: sqrt(n) for n vectors.
	NumPartitions int `json:"num_partitions"`

	// MaxIters caps the number of k-means iterations used to train the
	// partition centroids.
	MaxIters int `json:"max_iters"`
}

// DefaultIvfBuildParams returns the default IVF stage configuration.
func DefaultIvfBuildParams() IvfBuildParams {
	return IvfBuildParams{
		NumPartitions: DefaultNumPartitions,
		MaxIters:      DefaultIvfMaxIters,
	}
}

// NewIvfBuildParams returns the default IVF configuration with the given
// partition count.
func NewIvfBuildParams(numPartitions int) IvfBuildParams {
	p := DefaultIvfBuildParams()
	p.NumPartitions = numPartitions
	return p
}

// PQBuildParams configures the product-quantization compression stage.
type PQBuildParams struct {
	// NumSubVectors is the number of sub-vectors each vector is split into
	// (M in PQ literature). Must divide the vector dimension evenly.
	NumSubVectors int `json:"num_sub_vectors"`

	// NumBits is the width of a single PQ code. The codebook per
	// sub-quantizer has 2^NumBits centroids.
	NumBits int `json:"num_bits"`

	// UseOPQ enables Optimized Product Quantization: a learned rotation is
	// applied before quantization to reduce reconstruction error.
	UseOPQ bool `json:"use_opq"`

	// MetricType is the distance metric trained against. After resolution
	// this is the single source of truth for the pipeline's metric.
	MetricType MetricType `json:"metric_type"`

	// MaxIters caps the k-means iterations per sub-quantizer codebook.
	MaxIters int `json:"max_iters"`

	// MaxOpqIters caps the OPQ alternating optimization rounds. Ignored
	// unless UseOPQ is set.
	MaxOpqIters int `json:"max_opq_iters"`
}

// DefaultPQBuildParams returns the default PQ stage configuration.
func DefaultPQBuildParams() PQBuildParams {
	return PQBuildParams{
		NumSubVectors: DefaultNumSubVectors,
		NumBits:       DefaultNumBits,
		UseOPQ:        false,
		MetricType:    MetricTypeL2,
		MaxIters:      DefaultPQMaxIters,
		MaxOpqIters:   DefaultMaxOpqIters,
	}
}

// NumCentroids returns the codebook size per sub-quantizer (2^NumBits).
func (p PQBuildParams) NumCentroids() int {
	return 1 << p.NumBits
}
