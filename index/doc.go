// Package index defines the parameter records that describe a vector index
// build pipeline.
//
// A pipeline is an ordered sequence of stages. Each stage carries its own
// configuration record: IvfBuildParams for the inverted-file partitioning
// stage and PQBuildParams for the product-quantization compression stage.
// The records are plain values with late-bound defaults; they perform no
// validation of their own. Consumers (the construction engine) validate the
// resolved pipeline against the dataset they are asked to index.
package index
