// Package vecbuild assembles and constructs two-stage IVF-PQ vector indexes.
//
// The entry point is a fluent builder that resolves index configuration and an
// engine that trains the index from it.
//
// # Quick Start
//
// Configure and build an index:
//
//	params := vecbuild.NewIvfPqBuilder().
//	    SetColumn("embeddings").
//	    SetIvfParams(index.NewIvfBuildParams(256)).
//	    Build()
//
//	engine := vecbuild.NewEngine()
//	idx, _ := engine.CreateIndex(ctx, vecbuild.NewIvfPqBuilder().SetColumn("embeddings"), vectors)
//
// Unset builder fields resolve to defaults at Build time: 32 IVF partitions,
// 16 PQ sub-vectors with 8-bit codes, L2 metric, OPQ disabled.
//
// # Search
//
// A trained index is queried through a fluent search builder:
//
//	results, _ := idx.Search(query).
//	    NProbes(32).
//	    Limit(5).
//	    Execute(ctx)
//
// # Persistence
//
// Indexes are saved to and loaded from a blobstore.Store (memory, local
// filesystem, S3 or MinIO) as self-describing artifacts with selectable
// block compression.
package vecbuild
