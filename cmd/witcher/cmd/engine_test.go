package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/internal/config"
	"github.com/YauheniMa/witcher-bot/internal/metrics"
	"github.com/YauheniMa/witcher-bot/internal/scene/scenetest"
	"github.com/YauheniMa/witcher-bot/internal/search"
	"github.com/YauheniMa/witcher-bot/internal/store"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

func TestOpenEngine_RecordsBuildMetrics(t *testing.T) {
	// Given: a static-embedding config over the test corpus
	dir := testEnv(t)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	// When: opening the engine and searching
	rt, err := openEngine(context.Background(), cfg, ui.Discard{}, m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	_, err = rt.engine.SmartSearch(context.Background(), "свадьба в Цинтре", search.Options{})
	require.NoError(t, err)

	// Then: corpus size and request counts are exported
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CorpusScenes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.StatusOK)))
}

func TestIndexConfig_MapsBackendsAndPaths(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Lexical.Backend = "sqlite"
	cfg.Lexical.IndexDir = "/var/lib/witcher"
	cfg.Semantic.Backend = "hnsw"
	cfg.Semantic.HNSWM = 8

	ic := indexConfig(cfg, ui.Discard{})

	assert.Equal(t, store.LexicalBackendSQLite, ic.LexicalBackend)
	assert.Equal(t, filepath.Join("/var/lib/witcher", "scenes.db"), ic.LexicalPath)
	assert.Equal(t, store.VectorBackendHNSW, ic.VectorBackend)
	assert.Equal(t, 8, ic.HNSW.M)
	assert.Equal(t, 1.5, ic.BM25.K1)

	cfg.Lexical.Backend = "okapi"
	assert.Empty(t, indexConfig(cfg, ui.Discard{}).LexicalPath)
}

func TestSearchConfig_MapsRankingParameters(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Search.SimilarityWeight = 0.5
	cfg.Search.MinSemanticScore = 0.2

	sc := searchConfig(cfg)

	assert.Equal(t, 30, sc.TopKLexical)
	assert.InDelta(t, 0.2, sc.MinSemanticScore, 1e-6)
	assert.Equal(t, 0.5, sc.SimilarityWeight)
	assert.Equal(t, search.DefaultWeights(), sc.Weights)
}

func TestEmbedOptions_ParsesTimeout(t *testing.T) {
	cfg := config.NewConfig()

	opts := embedOptions(cfg)

	assert.Equal(t, 60*time.Second, opts.Timeout)
	assert.Equal(t, "bge-m3", opts.Model)
	assert.Equal(t, 1000, opts.CacheSize)
}

func TestNewExtractor_SelectsRecognizer(t *testing.T) {
	scenes := scenetest.Witcher(t)
	tests := []struct {
		recognizer string
		want       string
	}{
		{"gazetteer", "gazetteer"},
		{"none", "none"},
		{"llm", "llm:qwen3:0.6b"},
		{"chain", "gazetteer+llm:qwen3:0.6b"},
	}
	for _, tt := range tests {
		t.Run(tt.recognizer, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.Extraction.Recognizer = tt.recognizer

			assert.Equal(t, tt.want, newExtractor(cfg, scenes).RecognizerName())
		})
	}
}
