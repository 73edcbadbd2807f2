package vecbuild

import (
	"container/heap"
	"context"
	"sort"
	"time"

	"github.com/hupe1980/vecbuild/distance"
	"github.com/hupe1980/vecbuild/index"
)

const (
	// DefaultNProbes is the number of partitions probed per search.
	DefaultNProbes = 20

	// DefaultLimit is the number of results returned per search.
	DefaultLimit = 10
)

// SearchResult is one search hit. ID is the vector's position in the
// indexed dataset; Distance is in the index metric (smaller is closer).
type SearchResult struct {
	ID       uint32
	Distance float32
}

// SearchBuilder is a fluent query configurator. Obtain one via Index.Search,
// chain setters and call Execute.
type SearchBuilder struct {
	idx          *Index
	query        []float32
	metricType   index.MetricType
	nprobes      int
	limit        int
	refineFactor int
	filter       func(id uint32) bool
}

// Search starts a query for the nearest neighbors of the given vector.
// Defaults: the index metric, 20 probes, 10 results, no reranking.
func (idx *Index) Search(query []float32) *SearchBuilder {
	return &SearchBuilder{
		idx:        idx,
		query:      query,
		metricType: idx.params.MetricType,
		nprobes:    DefaultNProbes,
		limit:      DefaultLimit,
	}
}

// Metric overrides the distance metric used for exact reranking.
// The coarse probe and code scan always use the index metric the codes
// were trained under.
func (s *SearchBuilder) Metric(metricType index.MetricType) *SearchBuilder {
	s.metricType = metricType
	return s
}

// NProbes sets how many partitions are probed. More probes improve recall
// at the cost of latency. Default: 20.
func (s *SearchBuilder) NProbes(n int) *SearchBuilder {
	s.nprobes = n
	return s
}

// Limit sets the number of results. Default: 10.
func (s *SearchBuilder) Limit(n int) *SearchBuilder {
	s.limit = n
	return s
}

// RefineFactor enables exact reranking: limit*factor candidates are scored
// against the stored vectors and the best limit kept. Unset by default.
func (s *SearchBuilder) RefineFactor(factor int) *SearchBuilder {
	s.refineFactor = factor
	return s
}

// Filter restricts results to ids the predicate accepts.
func (s *SearchBuilder) Filter(fn func(id uint32) bool) *SearchBuilder {
	s.filter = fn
	return s
}

// Execute runs the query.
func (s *SearchBuilder) Execute(ctx context.Context) ([]SearchResult, error) {
	start := time.Now()

	results, err := s.execute(ctx)

	s.idx.metrics.RecordSearch(s.limit, time.Since(start), err)
	s.idx.logger.LogSearch(ctx, s.limit, len(results), err)

	return results, translateError(err)
}

func (s *SearchBuilder) execute(ctx context.Context) ([]SearchResult, error) {
	if s.limit <= 0 {
		return nil, ErrInvalidK
	}
	if len(s.query) != s.idx.dimension {
		return nil, &ErrDimensionMismatch{Expected: s.idx.dimension, Actual: len(s.query)}
	}

	query := s.query
	if s.idx.params.MetricType == index.MetricTypeCosine {
		if normalized, ok := distance.NormalizeL2Copy(query); ok {
			query = normalized
		}
	}

	candidates := s.limit
	if s.refineFactor > 1 {
		candidates = s.limit * s.refineFactor
	}

	nprobes := s.nprobes
	if nprobes <= 0 {
		nprobes = DefaultNProbes
	}

	top := make(resultHeap, 0, candidates+1)
	residual := make([]float32, s.idx.dimension)

	for _, partition := range s.idx.coarse.NearestPartitions(query, nprobes) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		posting := s.idx.postings[partition]
		if posting.IsEmpty() {
			continue
		}

		// Asymmetric distance: one table per probed partition, then a
		// lookup per code byte.
		s.idx.coarse.Residual(residual, query, partition)
		table, err := s.idx.quantizer.DistanceTable(residual)
		if err != nil {
			return nil, err
		}

		it := posting.Iterator()
		for it.HasNext() {
			id := it.Next()
			if s.filter != nil && !s.filter(id) {
				continue
			}

			dist := table.Distance(s.idx.codes[id])
			if len(top) < candidates {
				heap.Push(&top, SearchResult{ID: id, Distance: dist})
			} else if dist < top[0].Distance {
				top[0] = SearchResult{ID: id, Distance: dist}
				heap.Fix(&top, 0)
			}
		}
	}

	results := []SearchResult(top)
	if s.refineFactor > 1 {
		if err := s.rerank(results); err != nil {
			return nil, err
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > s.limit {
		results = results[:s.limit]
	}
	return results, nil
}

// rerank rescores candidates against the stored vectors with the exact
// metric, replacing the approximate distances in place.
func (s *SearchBuilder) rerank(candidates []SearchResult) error {
	distFn := s.idx.distFn
	if s.metricType != s.idx.params.MetricType {
		fn, err := distance.Provider(s.metricType)
		if err != nil {
			return err
		}
		distFn = fn
	}

	for i := range candidates {
		candidates[i].Distance = distFn(s.query, s.idx.vectors[candidates[i].ID])
	}
	return nil
}

// resultHeap is a max-heap on distance so the worst candidate is evictable
// in O(log n).
type resultHeap []SearchResult

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].Distance > h[j].Distance }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)         { *h = append(*h, x.(SearchResult)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
