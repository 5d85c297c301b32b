package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/YauheniMa/witcher-bot/internal/config"
	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/extract"
	"github.com/YauheniMa/witcher-bot/internal/index"
	"github.com/YauheniMa/witcher-bot/internal/metrics"
	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/search"
	"github.com/YauheniMa/witcher-bot/internal/store"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

// runtime is a loaded corpus with its indexes and search engine.
type runtime struct {
	cfg       *config.Config
	scenes    *scene.Store
	embedder  embed.Embedder
	indexes   *index.Indexes
	extractor *extract.Extractor
	engine    *search.Engine
	slot      int
}

// openEngine loads the corpus, builds both indexes and wires the engine.
// m may be nil.
func openEngine(ctx context.Context, cfg *config.Config, renderer ui.Renderer, m *metrics.Metrics) (*runtime, error) {
	return openEngineSlot(ctx, cfg, renderer, m, 0)
}

// openEngineSlot is openEngine with the on-disk lexical index in the given
// slot. A reload builds into the slot the running engine does not hold.
func openEngineSlot(ctx context.Context, cfg *config.Config, renderer ui.Renderer, m *metrics.Metrics, slot int) (*runtime, error) {
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageLoading, Message: cfg.Corpus.Path})
	scenes, err := scene.LoadJSONL(cfg.Corpus.Path, scene.LoadOptions{AllowEmpty: cfg.Corpus.AllowEmpty})
	if err != nil {
		return nil, err
	}

	embedder, err := embed.NewEmbedder(ctx, embedOptions(cfg))
	if err != nil {
		return nil, err
	}

	indexes, err := index.Build(ctx, scenes, embedder, indexConfigSlot(cfg, renderer, slot))
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	extractor := newExtractor(cfg, scenes)
	engine, err := search.New(scenes, indexes, embedder, extractor, searchConfig(cfg), search.WithMetrics(m))
	if err != nil {
		_ = indexes.Close()
		_ = embedder.Close()
		return nil, err
	}

	m.ObserveBuild(scenes.Len(), map[string]time.Duration{
		"lexical": indexes.Stats.Lexical,
		"embed":   indexes.Stats.Embed,
		"vector":  indexes.Stats.Vector,
		"total":   indexes.Stats.Total,
	})
	slog.Info("engine_ready",
		slog.String("corpus", cfg.Corpus.Path),
		slog.Int("scenes", scenes.Len()),
		slog.String("recognizer", extractor.RecognizerName()))

	return &runtime{
		cfg:       cfg,
		scenes:    scenes,
		embedder:  embedder,
		indexes:   indexes,
		extractor: extractor,
		engine:    engine,
		slot:      slot,
	}, nil
}

// Close releases the indexes and the embedder.
func (r *runtime) Close() error {
	idxErr := r.indexes.Close()
	embErr := r.embedder.Close()
	if idxErr != nil {
		return idxErr
	}
	return embErr
}

func embedOptions(cfg *config.Config) embed.Options {
	return embed.Options{
		Provider:      embed.ParseProvider(cfg.Embeddings.Provider),
		Model:         cfg.Embeddings.Model,
		Host:          cfg.Embeddings.OllamaHost,
		BatchSize:     cfg.Embeddings.BatchSize,
		Timeout:       cfg.EmbeddingsTimeout(),
		MaxRetries:    cfg.Embeddings.MaxRetries,
		CacheSize:     cfg.Embeddings.CacheSize,
		QueryPrefix:   cfg.Embeddings.QueryPrefix,
		PassagePrefix: cfg.Embeddings.PassagePrefix,
	}
}

func indexConfig(cfg *config.Config, renderer ui.Renderer) index.Config {
	return indexConfigSlot(cfg, renderer, 0)
}

func indexConfigSlot(cfg *config.Config, renderer ui.Renderer, slot int) index.Config {
	ic := index.Config{
		LexicalBackend: store.LexicalBackend(cfg.Lexical.Backend),
		BM25: store.BM25Config{
			K1:      cfg.Lexical.K1,
			B:       cfg.Lexical.B,
			Epsilon: cfg.Lexical.Epsilon,
		},
		VectorBackend: store.VectorBackend(cfg.Semantic.Backend),
		HNSW: store.HNSWConfig{
			M:        cfg.Semantic.HNSWM,
			EfSearch: cfg.Semantic.HNSWEfSearch,
		},
		BatchSize: cfg.Embeddings.BatchSize,
		Renderer:  renderer,
	}
	if dir := cfg.Lexical.IndexDir; dir != "" {
		name := "scenes"
		if slot%2 == 1 {
			name = "scenes-1"
		}
		switch ic.LexicalBackend {
		case store.LexicalBackendBleve:
			ic.LexicalPath = filepath.Join(dir, name+".bleve")
		case store.LexicalBackendSQLite:
			ic.LexicalPath = filepath.Join(dir, name+".db")
		}
	}
	return ic
}

func searchConfig(cfg *config.Config) search.Config {
	return search.Config{
		TopKLexical:      cfg.Search.TopKLexical,
		TopKSemantic:     cfg.Search.TopKSemantic,
		MinSemanticScore: float32(cfg.Search.MinSemanticScore),
		SimilarityWeight: cfg.Search.SimilarityWeight,
		RRFConstant:      cfg.Search.RRFConstant,
		Weights: search.Weights{
			Lexical:  cfg.Search.LexicalWeight,
			Semantic: cfg.Search.SemanticWeight,
		},
	}
}

// newExtractor builds the configured recognizer. The gazetteer is always
// derived from the corpus vocabulary; the LLM recognizer uses it to map
// names back to their canonical spelling.
func newExtractor(cfg *config.Config, scenes *scene.Store) *extract.Extractor {
	gazetteer := extract.NewGazetteerFromStore(scenes)
	host := cfg.Extraction.LLMHost
	if host == "" {
		host = cfg.Embeddings.OllamaHost
	}
	llm := func() *extract.LLMRecognizer {
		return extract.NewLLMRecognizer(extract.LLMConfig{
			Host:      host,
			Model:     cfg.Extraction.LLMModel,
			Timeout:   cfg.ExtractionTimeout(),
			Gazetteer: gazetteer,
		})
	}

	var recognizer extract.Recognizer
	switch cfg.Extraction.Recognizer {
	case "none":
	case "llm":
		recognizer = llm()
	case "chain":
		recognizer = extract.Chain{gazetteer, llm()}
	default:
		recognizer = gazetteer
	}

	return extract.New(recognizer, nil, extract.WithTimeout(cfg.ExtractionTimeout()))
}
