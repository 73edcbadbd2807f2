package index

// StageKind tags a pipeline stage by the kind of work it performs.
type StageKind int

const (
	// StageKindIvf is the inverted-file partitioning stage.
	StageKindIvf StageKind = iota
	// StageKindPQ is the product-quantization compression stage.
	StageKindPQ
)

// String returns a string representation of the StageKind.
func (sk StageKind) String() string {
	switch sk {
	case StageKindIvf:
		return "Ivf"
	case StageKindPQ:
		return "PQ"
	default:
		return "Unknown"
	}
}

// StageParams is the sum type over per-stage configuration records.
//
// Exactly two records implement it: IvfBuildParams and PQBuildParams.
// Consumers dispatch on StageKind (or type-switch) rather than on a class
// hierarchy, keeping pipeline interpretation exhaustive.
type StageParams interface {
	// StageKind returns the stage tag for this record.
	StageKind() StageKind
}

// StageKind returns StageKindIvf.
func (IvfBuildParams) StageKind() StageKind { return StageKindIvf }

// StageKind returns StageKindPQ.
func (PQBuildParams) StageKind() StageKind { return StageKindPQ }

// VectorIndexParams is the fully-resolved, immutable description of an index
// build pipeline. Builders emit it; the construction engine consumes it.
//
// Stages are ordered: partitioning always precedes compression. The value is
// a snapshot - mutating the builder after Build does not affect previously
// returned params.
type VectorIndexParams struct {
	// MetricType is the effective distance metric for the whole pipeline.
	MetricType MetricType

	// Stages holds the per-stage configuration records in execution order.
	Stages []StageParams
}

// NewIvfPqParams assembles a two-stage IVF -> PQ pipeline with the given
// metric and stage records.
func NewIvfPqParams(metricType MetricType, ivf IvfBuildParams, pq PQBuildParams) *VectorIndexParams {
	return &VectorIndexParams{
		MetricType: metricType,
		Stages:     []StageParams{ivf, pq},
	}
}

// IvfParams returns the IVF stage record, if present.
func (p *VectorIndexParams) IvfParams() (IvfBuildParams, bool) {
	for _, stage := range p.Stages {
		if ivf, ok := stage.(IvfBuildParams); ok {
			return ivf, true
		}
	}
	return IvfBuildParams{}, false
}

// PQParams returns the PQ stage record, if present.
func (p *VectorIndexParams) PQParams() (PQBuildParams, bool) {
	for _, stage := range p.Stages {
		if pq, ok := stage.(PQBuildParams); ok {
			return pq, true
		}
	}
	return PQBuildParams{}, false
}
