// Package index builds the lexical and vector indexes over a scene store.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/store"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

// Config selects index backends.
type Config struct {
	LexicalBackend store.LexicalBackend
	// LexicalPath is where bleve/sqlite keep their files; empty keeps them in memory.
	LexicalPath string
	BM25        store.BM25Config

	VectorBackend store.VectorBackend
	HNSW          store.HNSWConfig

	// BatchSize is the number of summaries per embedding call.
	BatchSize int

	// Renderer receives progress; nil discards it.
	Renderer ui.Renderer
}

// DefaultConfig returns in-memory okapi + flat indexes.
func DefaultConfig() Config {
	return Config{
		LexicalBackend: store.LexicalBackendOkapi,
		BM25:           store.DefaultBM25Config(),
		VectorBackend:  store.VectorBackendFlat,
		HNSW:           store.DefaultHNSWConfig(),
		BatchSize:      embed.DefaultBatchSize,
	}
}

// BuildStats records how long each part of the build took.
type BuildStats struct {
	Scenes  int
	Lexical time.Duration
	Embed   time.Duration
	Vector  time.Duration
	Total   time.Duration
	Model   string
	Dims    int
}

// Indexes holds both indexes over one scene store. Position i in either
// index is scene i of the store.
type Indexes struct {
	Lexical store.LexicalIndex
	Vector  store.VectorIndex
	Stats   BuildStats

	lock      *FileLock
	closeOnce sync.Once
}

// Close releases both indexes.
func (ix *Indexes) Close() error {
	var err error
	ix.closeOnce.Do(func() {
		lexErr := ix.Lexical.Close()
		vecErr := ix.Vector.Close()
		if lexErr != nil {
			err = lexErr
		} else {
			err = vecErr
		}
		if ix.lock != nil {
			if unlockErr := ix.lock.Unlock(); unlockErr != nil && err == nil {
				err = unlockErr
			}
		}
	})
	return err
}

// Build indexes scenes: BM25 over Scene.LexicalText and vectors over the
// summary embeddings. The lexical build and the embedding run concurrently.
func Build(ctx context.Context, scenes *scene.Store, embedder embed.Embedder, cfg Config) (*Indexes, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = embed.DefaultBatchSize
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = ui.Discard{}
	}

	var lock *FileLock
	if cfg.LexicalPath != "" && cfg.LexicalBackend != store.LexicalBackendOkapi {
		l, err := acquireIndexLock(cfg.LexicalPath)
		if err != nil {
			return nil, err
		}
		lock = l
	}
	release := func() {
		if lock != nil {
			_ = lock.Unlock()
		}
	}

	start := time.Now()
	stats := BuildStats{
		Scenes: scenes.Len(),
		Model:  embedder.ModelName(),
		Dims:   embedder.Dimensions(),
	}

	var (
		lexical store.LexicalIndex
		vectors [][]float32
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := time.Now()
		renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLexical, Message: string(cfg.LexicalBackend)})

		idx, err := store.NewLexicalIndex(gctx, cfg.LexicalBackend, cfg.LexicalPath, scenes.LexicalDocuments(), cfg.BM25)
		if err != nil {
			return errors.New(errors.ErrCodeIndexFailed, "failed to build lexical index", err).
				WithDetail("backend", string(cfg.LexicalBackend))
		}
		lexical = idx
		stats.Lexical = time.Since(t)
		return nil
	})

	g.Go(func() error {
		t := time.Now()
		vecs, err := embedSummaries(gctx, scenes.Summaries(), embedder, cfg.BatchSize, renderer)
		if err != nil {
			return err
		}
		vectors = vecs
		stats.Embed = time.Since(t)
		return nil
	})

	if err := g.Wait(); err != nil {
		if lexical != nil {
			_ = lexical.Close()
		}
		release()
		return nil, err
	}

	t := time.Now()
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageVector, Message: string(cfg.VectorBackend)})
	vector, err := store.NewVectorIndex(cfg.VectorBackend, embedder.Dimensions(), vectors, cfg.HNSW)
	if err != nil {
		_ = lexical.Close()
		release()
		return nil, errors.New(errors.ErrCodeIndexFailed, "failed to build vector index", err).
			WithDetail("backend", string(cfg.VectorBackend))
	}
	stats.Vector = time.Since(t)
	stats.Total = time.Since(start)

	slog.Info("indexes_built",
		slog.Int("scenes", stats.Scenes),
		slog.String("lexical_backend", lexical.Backend()),
		slog.String("vector_backend", vector.Backend()),
		slog.String("model", stats.Model),
		slog.Int("dimensions", stats.Dims),
		slog.Duration("lexical", stats.Lexical),
		slog.Duration("embed", stats.Embed),
		slog.Duration("vector", stats.Vector),
		slog.Duration("total", stats.Total))

	renderer.Complete(ui.CompletionStats{
		Scenes:   stats.Scenes,
		Duration: stats.Total,
		Stages:   ui.StageTimings{Lexical: stats.Lexical, Embed: stats.Embed, Vector: stats.Vector},
		Embedder: ui.EmbedderInfo{
			Backend:    string(embed.GetInfo(ctx, embedder).Provider),
			Model:      stats.Model,
			Dimensions: stats.Dims,
		},
	})

	return &Indexes{Lexical: lexical, Vector: vector, Stats: stats, lock: lock}, nil
}

// embedSummaries embeds texts in batches, reporting progress after each.
func embedSummaries(ctx context.Context, texts []string, embedder embed.Embedder, batchSize int, renderer ui.Renderer) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: 0, Total: len(texts)})

	for batchStart := 0; batchStart < len(texts); batchStart += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("embedding interrupted at %d/%d scenes: %w", batchStart, len(texts), err)
		}

		batchEnd := min(batchStart+batchSize, len(texts))
		batch, err := embedder.EmbedBatch(ctx, texts[batchStart:batchEnd])
		if err != nil {
			// A structured embedder error keeps its code so callers can
			// tell an unreachable server from a broken index.
			return nil, errors.Wrap(errors.ErrCodeIndexFailed, err).
				WithDetail("summaries", fmt.Sprintf("%d-%d", batchStart, batchEnd))
		}
		if len(batch) != batchEnd-batchStart {
			return nil, errors.New(errors.ErrCodeIndexFailed,
				fmt.Sprintf("embedder returned %d vectors for %d summaries", len(batch), batchEnd-batchStart), nil)
		}
		vectors = append(vectors, batch...)

		slog.Debug("summaries_embedded",
			slog.Int("done", batchEnd),
			slog.Int("total", len(texts)))
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageEmbedding,
			Current: batchEnd,
			Total:   len(texts),
			Message: embedder.ModelName(),
		})
	}

	return vectors, nil
}
