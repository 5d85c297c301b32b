package store

import (
	"context"
	"fmt"
	"sync"
)

// FlatIndex is an exact inner-product index over L2-normalized vectors.
// Search is a linear scan, which is fast enough for corpora of a few
// thousand scenes.
type FlatIndex struct {
	mu      sync.RWMutex
	dims    int
	vectors [][]float32
	closed  bool
}

// NewFlatIndex copies and normalizes vectors; vectors[i] becomes position i.
func NewFlatIndex(dims int, vectors [][]float32) (*FlatIndex, error) {
	idx := &FlatIndex{dims: dims, vectors: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d: %w", i, DimensionMismatchError(dims, len(v)))
		}
		idx.vectors[i] = Normalize(v)
	}
	return idx, nil
}

// Search implements VectorIndex.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, errClosed("vector")
	}
	if len(query) != f.dims {
		return nil, DimensionMismatchError(f.dims, len(query))
	}
	if k <= 0 || len(f.vectors) == 0 {
		return []VectorResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := Normalize(query)
	results := make([]VectorResult, len(f.vectors))
	for i, v := range f.vectors {
		results[i] = VectorResult{Position: i, Score: Dot(q, v)}
	}
	sortVectorResults(results)

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Dimensions implements VectorIndex.
func (f *FlatIndex) Dimensions() int {
	return f.dims
}

// Len implements VectorIndex.
func (f *FlatIndex) Len() int {
	return len(f.vectors)
}

// Backend implements VectorIndex.
func (f *FlatIndex) Backend() string {
	return string(VectorBackendFlat)
}

// Close implements VectorIndex.
func (f *FlatIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.vectors = nil
	return nil
}

var _ VectorIndex = (*FlatIndex)(nil)
