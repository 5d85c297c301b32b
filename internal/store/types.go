// Package store provides the lexical (BM25) and vector indexes over a scene corpus.
//
// Both index kinds address documents by their integer position in the scene
// store. Indexes are built once and are read-only afterwards, so concurrent
// queries need no coordination beyond what each backend does internally.
package store

import (
	"context"
	"fmt"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// LexicalIndex scores a query against every indexed document.
type LexicalIndex interface {
	// Scores returns one score per document position. Documents that share
	// no token with the query score zero.
	Scores(ctx context.Context, query string) ([]float64, error)

	// Len returns the number of indexed documents.
	Len() int

	// Backend names the implementation ("okapi", "bleve", "sqlite").
	Backend() string

	Close() error
}

// VectorIndex answers nearest-neighbor queries by inner product.
type VectorIndex interface {
	// Search returns at most k hits ordered by score desc, then position asc.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// Dimensions returns the vector dimension of the index.
	Dimensions() int

	Len() int

	// Backend names the implementation ("flat", "hnsw").
	Backend() string

	Close() error
}

// LexicalResult is a document position with its BM25 score.
type LexicalResult struct {
	Position int
	Score    float64
}

// VectorResult is a document position with its inner-product score.
type VectorResult struct {
	Position int
	Score    float32
}

// BM25Config holds BM25Okapi parameters.
type BM25Config struct {
	K1 float64
	B  float64
	// Epsilon floors negative idf values at Epsilon * average idf.
	Epsilon float64
}

// DefaultBM25Config returns k1=1.5, b=0.75, epsilon=0.25.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:      1.5,
		B:       0.75,
		Epsilon: 0.25,
	}
}

// DimensionMismatchError reports a query vector of the wrong size.
func DimensionMismatchError(expected, got int) *errors.Error {
	return errors.New(errors.ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: index has %d dimensions, query has %d", expected, got), nil).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got)).
		WithSuggestion("the query embedder must be the model the index was built with")
}

// errClosed is returned by operations on a closed index.
func errClosed(kind string) error {
	return errors.New(errors.ErrCodeSearchFailed, kind+" index is closed", nil)
}
