package store

import (
	"context"
	"fmt"
)

// LexicalBackend selects a LexicalIndex implementation.
type LexicalBackend string

const (
	// LexicalBackendOkapi is the in-memory BM25Okapi index (default).
	LexicalBackendOkapi LexicalBackend = "okapi"
	// LexicalBackendBleve uses bleve's bm25 scoring model.
	LexicalBackendBleve LexicalBackend = "bleve"
	// LexicalBackendSQLite uses SQLite FTS5.
	LexicalBackendSQLite LexicalBackend = "sqlite"
)

// ValidLexicalBackends lists the accepted backend names.
func ValidLexicalBackends() []LexicalBackend {
	return []LexicalBackend{LexicalBackendOkapi, LexicalBackendBleve, LexicalBackendSQLite}
}

// NewLexicalIndex builds a lexical index over docs with the given backend.
// path is ignored by the okapi backend.
func NewLexicalIndex(ctx context.Context, backend LexicalBackend, path string, docs []string, config BM25Config) (LexicalIndex, error) {
	switch backend {
	case LexicalBackendOkapi, "":
		return NewOkapiIndex(docs, config), nil
	case LexicalBackendBleve:
		return NewBleveIndex(ctx, path, docs)
	case LexicalBackendSQLite:
		return NewSQLiteIndex(ctx, path, docs)
	default:
		return nil, fmt.Errorf("unknown lexical backend: %q (valid: okapi, bleve, sqlite)", backend)
	}
}
