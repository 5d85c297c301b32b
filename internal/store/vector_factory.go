package store

import "fmt"

// VectorBackend selects a VectorIndex implementation.
type VectorBackend string

const (
	// VectorBackendFlat is the exact linear-scan index (default).
	VectorBackendFlat VectorBackend = "flat"
	// VectorBackendHNSW is the approximate coder/hnsw graph.
	VectorBackendHNSW VectorBackend = "hnsw"
)

// ValidVectorBackends lists the accepted backend names.
func ValidVectorBackends() []VectorBackend {
	return []VectorBackend{VectorBackendFlat, VectorBackendHNSW}
}

// NewVectorIndex builds a vector index with the given backend.
func NewVectorIndex(backend VectorBackend, dims int, vectors [][]float32, cfg HNSWConfig) (VectorIndex, error) {
	switch backend {
	case VectorBackendFlat, "":
		return NewFlatIndex(dims, vectors)
	case VectorBackendHNSW:
		return NewHNSWIndex(dims, vectors, cfg)
	default:
		return nil, fmt.Errorf("unknown vector backend: %q (valid: flat, hnsw)", backend)
	}
}
