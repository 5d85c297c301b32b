package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWConfig tunes the approximate graph.
type HNSWConfig struct {
	M        int
	EfSearch int
}

// DefaultHNSWConfig returns M=16, EfSearch=64.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 64}
}

// HNSWIndex is an approximate inner-product index using coder/hnsw with
// cosine distance over normalized vectors. Node keys are positions.
// Zero vectors have no direction, so they stay out of the graph and always
// score 0.
type HNSWIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	vectors [][]float32
	zero    []int
	dims    int
	closed  bool
}

// NewHNSWIndex builds the graph from vectors; vectors[i] becomes position i.
func NewHNSWIndex(dims int, vectors [][]float32, cfg HNSWConfig) (*HNSWIndex, error) {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	idx := &HNSWIndex{graph: graph, dims: dims, vectors: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d: %w", i, DimensionMismatchError(dims, len(v)))
		}
		idx.vectors[i] = Normalize(v)
		if isZero(idx.vectors[i]) {
			idx.zero = append(idx.zero, i)
			continue
		}
		graph.Add(hnsw.MakeNode(uint64(i), idx.vectors[i]))
	}

	return idx, nil
}

// Search implements VectorIndex. The graph picks the neighbours; scores are
// the inner product of the normalized vectors, as in FlatIndex.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, errClosed("vector")
	}
	if len(query) != h.dims {
		return nil, DimensionMismatchError(h.dims, len(query))
	}
	if k <= 0 || len(h.vectors) == 0 {
		return []VectorResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := Normalize(query)
	if isZero(q) {
		// every document scores 0; keep the first k positions
		n := min(k, len(h.vectors))
		results := make([]VectorResult, n)
		for i := range results {
			results[i] = VectorResult{Position: i}
		}
		return results, nil
	}

	results := make([]VectorResult, 0, k+len(h.zero))
	if h.graph.Len() > 0 {
		for _, node := range h.graph.Search(q, k) {
			pos := int(node.Key)
			results = append(results, VectorResult{Position: pos, Score: Dot(q, h.vectors[pos])})
		}
	}
	for _, pos := range h.zero {
		results = append(results, VectorResult{Position: pos})
	}
	sortVectorResults(results)

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dimensions implements VectorIndex.
func (h *HNSWIndex) Dimensions() int {
	return h.dims
}

// Len implements VectorIndex.
func (h *HNSWIndex) Len() int {
	return len(h.vectors)
}

// Backend implements VectorIndex.
func (h *HNSWIndex) Backend() string {
	return string(VectorBackendHNSW)
}

// Close implements VectorIndex.
func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.vectors = nil
	return nil
}

var _ VectorIndex = (*HNSWIndex)(nil)
