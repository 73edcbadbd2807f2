// This file implements the fluent builder API for assembling index
// configuration. The builder is mutable - each setter updates the receiver
// and returns it, so calls chain on a single instance.
package vecbuild

import (
	"github.com/hupe1980/vecbuild/index"
)

// IndexBuilder is the contract between index configuration and the
// construction engine. Implementations expose an advisory target column,
// an advisory index name, a replace flag and a resolver that produces the
// concrete pipeline parameters.
//
// Build must be a pure function of the builder's current field values:
// it does not mutate state and may be called repeatedly.
type IndexBuilder interface {
	// Column returns the target vector column, if one was set.
	Column() (string, bool)

	// IndexName returns the requested index name, if one was set.
	IndexName() (string, bool)

	// Replace reports whether an existing index with the same name
	// should be overwritten.
	Replace() bool

	// Build resolves the configuration into concrete pipeline parameters.
	Build() *index.VectorIndexParams
}

// IvfPqBuilder configures a two-stage IVF-PQ index.
//
// All stage parameters are optional; fields left unset resolve to their
// defaults when Build is called, not when the builder is created.
//
// Example:
//
//	params := vecbuild.NewIvfPqBuilder().
//	    SetColumn("embeddings").
//	    SetIndexName("embeddings_idx").
//	    SetIvfParams(index.NewIvfBuildParams(256)).
//	    Build()
type IvfPqBuilder struct {
	column     *string
	indexName  *string
	metricType *index.MetricType
	ivfParams  *index.IvfBuildParams
	pqParams   *index.PQBuildParams
	replace    bool
}

var _ IndexBuilder = (*IvfPqBuilder)(nil)

// NewIvfPqBuilder creates a builder with no stage parameters set and
// replace enabled.
func NewIvfPqBuilder() *IvfPqBuilder {
	return &IvfPqBuilder{
		replace: true,
	}
}

// SetColumn sets the vector column the index covers.
func (b *IvfPqBuilder) SetColumn(column string) *IvfPqBuilder {
	b.column = &column
	return b
}

// SetIndexName sets the name the index is registered under.
func (b *IvfPqBuilder) SetIndexName(name string) *IvfPqBuilder {
	b.indexName = &name
	return b
}

// SetMetricType records a metric preference on the builder.
//
// Note: the resolved pipeline takes its metric from the PQ stage parameters,
// so this value is readable via MetricType but does not influence Build.
// Set the metric on PQBuildParams to change the pipeline metric.
func (b *IvfPqBuilder) SetMetricType(metricType index.MetricType) *IvfPqBuilder {
	b.metricType = &metricType
	return b
}

// SetIvfParams replaces the IVF stage parameters wholesale.
func (b *IvfPqBuilder) SetIvfParams(params index.IvfBuildParams) *IvfPqBuilder {
	b.ivfParams = &params
	return b
}

// SetPQParams replaces the PQ stage parameters wholesale.
func (b *IvfPqBuilder) SetPQParams(params index.PQBuildParams) *IvfPqBuilder {
	b.pqParams = &params
	return b
}

// SetReplace sets whether an existing index with the same name is
// overwritten. Default: true.
func (b *IvfPqBuilder) SetReplace(replace bool) *IvfPqBuilder {
	b.replace = replace
	return b
}

// Column returns the target column, if set.
func (b *IvfPqBuilder) Column() (string, bool) {
	if b.column == nil {
		return "", false
	}
	return *b.column, true
}

// IndexName returns the requested index name, if set.
func (b *IvfPqBuilder) IndexName() (string, bool) {
	if b.indexName == nil {
		return "", false
	}
	return *b.indexName, true
}

// MetricType returns the metric preference recorded on the builder, if set.
func (b *IvfPqBuilder) MetricType() (index.MetricType, bool) {
	if b.metricType == nil {
		return 0, false
	}
	return *b.metricType, true
}

// Replace reports whether an existing index should be overwritten.
func (b *IvfPqBuilder) Replace() bool {
	return b.replace
}

// Build resolves the configuration into pipeline parameters, substituting
// defaults for stages that were never set. The builder is not mutated and
// Build may be called again after further setter calls.
func (b *IvfPqBuilder) Build() *index.VectorIndexParams {
	ivf := index.DefaultIvfBuildParams()
	if b.ivfParams != nil {
		ivf = *b.ivfParams
	}

	pq := index.DefaultPQBuildParams()
	if b.pqParams != nil {
		pq = *b.pqParams
	}

	// The pipeline metric comes from the PQ stage record.
	return index.NewIvfPqParams(pq.MetricType, ivf, pq)
}
