package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
)

// SceneAnalyzerName is the bleve analyzer used for scene documents. It splits
// on whitespace only, matching Tokenize.
const SceneAnalyzerName = "scene_whitespace"

// BleveIndex is a LexicalIndex backed by bleve's BM25 scoring model.
// Document IDs are decimal positions.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	size   int
	closed bool
}

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveIndex indexes docs. An empty path keeps the index in memory;
// otherwise any index already at path is removed and rebuilt.
func NewBleveIndex(ctx context.Context, path string, docs []string) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to clear stale index at %s: %w", path, err)
		}
		idx, err = bleve.New(path, indexMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	b := &BleveIndex{index: idx, path: path, size: len(docs)}
	if err := b.indexAll(ctx, docs); err != nil {
		_ = idx.Close()
		return nil, err
	}

	slog.Debug("bleve_index_built",
		slog.String("path", path),
		slog.Int("documents", len(docs)))

	return b, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(SceneAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []string{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = SceneAnalyzerName
	indexMapping.ScoringModel = "bm25"

	return indexMapping, nil
}

func (b *BleveIndex) indexAll(ctx context.Context, docs []string) error {
	batch := b.index.NewBatch()
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(strconv.Itoa(i), bleveDocument{Content: doc}); err != nil {
			return fmt.Errorf("failed to index document %d: %w", i, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Scores implements LexicalIndex.
func (b *BleveIndex) Scores(ctx context.Context, query string) ([]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errClosed("lexical")
	}

	scores := make([]float64, b.size)
	if strings.TrimSpace(query) == "" || b.size == 0 {
		return scores, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = b.size

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	for _, hit := range result.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil || pos < 0 || pos >= b.size {
			continue
		}
		scores[pos] = hit.Score
	}
	return scores, nil
}

// Len implements LexicalIndex.
func (b *BleveIndex) Len() int {
	return b.size
}

// Backend implements LexicalIndex.
func (b *BleveIndex) Backend() string {
	return string(LexicalBackendBleve)
}

// Close implements LexicalIndex.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

var _ LexicalIndex = (*BleveIndex)(nil)
