package index

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/scene/scenetest"
	"github.com/YauheniMa/witcher-bot/internal/store"
	"github.com/YauheniMa/witcher-bot/internal/ui"
)

func TestBuild_PositionsAlignAcrossIndexes(t *testing.T) {
	// Given
	scenes := scenetest.Witcher(t)
	embedder := embed.NewStaticEmbedder()

	// When
	ix, err := Build(context.Background(), scenes, embedder, DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	// Then: both indexes cover every scene
	assert.Equal(t, scenes.Len(), ix.Lexical.Len())
	assert.Equal(t, scenes.Len(), ix.Vector.Len())
	assert.Equal(t, embed.StaticDimensions, ix.Vector.Dimensions())

	// And: a summary embedded as a query finds its own scene first
	q, err := embedder.Embed(context.Background(), scenes.At(3).Summary)
	require.NoError(t, err)
	hits, err := ix.Vector.Search(context.Background(), q, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 3, hits[0].Position)

	// And: a token from beats scores the right lexical position
	scores, err := ix.Lexical.Scores(context.Background(), "crowd")
	require.NoError(t, err)
	assert.Greater(t, scores[3], 0.0)
}

func TestBuild_AllBackendCombinations(t *testing.T) {
	scenes := scenetest.Witcher(t)
	dir := t.TempDir()

	for _, lex := range store.ValidLexicalBackends() {
		for _, vec := range store.ValidVectorBackends() {
			t.Run(fmt.Sprintf("%s+%s", lex, vec), func(t *testing.T) {
				cfg := DefaultConfig()
				cfg.LexicalBackend = lex
				cfg.VectorBackend = vec
				if lex != store.LexicalBackendOkapi {
					cfg.LexicalPath = filepath.Join(dir, string(lex)+"-"+string(vec))
				}

				ix, err := Build(context.Background(), scenes, embed.NewStaticEmbedder(), cfg)
				require.NoError(t, err)
				defer func() { _ = ix.Close() }()

				assert.Equal(t, string(lex), ix.Lexical.Backend())
				assert.Equal(t, string(vec), ix.Vector.Backend())
			})
		}
	}
}

func TestBuild_ReportsProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.BatchSize = 3
	cfg.Renderer = ui.NewPlainRenderer(ui.Config{Output: buf, NoColor: true})

	ix, err := Build(context.Background(), scenetest.Witcher(t), embed.NewStaticEmbedder(), cfg)
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	out := buf.String()
	assert.Contains(t, out, "[EMBED] 3/4")
	assert.Contains(t, out, "[EMBED] 4/4")
	assert.Contains(t, out, "Ready: 4 scenes indexed")
	assert.Equal(t, 4, ix.Stats.Scenes)
	assert.Equal(t, "static", ix.Stats.Model)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	empty := scenetest.Build(t, []*scene.Scene{})

	ix, err := Build(context.Background(), empty, embed.NewStaticEmbedder(), DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	assert.Equal(t, 0, ix.Lexical.Len())
	assert.Equal(t, 0, ix.Vector.Len())
}

func TestBuild_EmbeddingFailureIsIndexError(t *testing.T) {
	broken := embed.NewStaticEmbedder()
	require.NoError(t, broken.Close())

	_, err := Build(context.Background(), scenetest.Witcher(t), broken, DefaultConfig())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexFailed, errors.GetCode(err))
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.SeverityFatal, e.Severity)
	assert.Equal(t, "0-4", e.Details["summaries"])
}

// unreachableEmbedder fails every batch like an Ollama server that is down.
type unreachableEmbedder struct {
	embed.Embedder
}

func (unreachableEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.NetworkError("ollama is unreachable", fmt.Errorf("connection refused"))
}

func TestBuild_UnreachableEmbedderStaysRetryable(t *testing.T) {
	// Given: an embedder whose server is down
	embedder := unreachableEmbedder{embed.NewStaticEmbedder()}

	// When
	_, err := Build(context.Background(), scenetest.Witcher(t), embedder, DefaultConfig())

	// Then: the network code survives so a reload can try again
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkUnavailable, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VectorBackend = "faiss"

	_, err := Build(context.Background(), scenetest.Witcher(t), embed.NewStaticEmbedder(), cfg)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeIndexFailed, errors.GetCode(err))
}

func TestIndexes_CloseIsIdempotent(t *testing.T) {
	ix, err := Build(context.Background(), scenetest.Witcher(t), embed.NewStaticEmbedder(), DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())
}
