package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_RepeatedQueryHitsCache(t *testing.T) {
	// Given
	inner := &recordingEmbedder{}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// When: the same query is embedded twice
	first, err := cached.Embed(ctx, "где казнили")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "где казнили")
	require.NoError(t, err)

	// Then: the inner embedder ran once
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_BatchSendsOnlyMisses(t *testing.T) {
	inner := &recordingEmbedder{}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []float32{3, 1}, results[2])
	assert.Equal(t, []string{"a", "bb", "ccc"}, inner.seen)

	// all hits: no further inner call
	_, err = cached.EmbedBatch(ctx, []string{"ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.batchCalls.Load())
}

func TestCachedEmbedder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := &recordingEmbedder{}
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c", "a"} {
		_, err := cached.Embed(ctx, q)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(4), inner.embedCalls.Load())
	assert.Equal(t, 2, cached.Len())
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := &recordingEmbedder{}
	cached := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 2, cached.Dimensions())
	assert.Equal(t, "recording", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())
}

func TestPrefixedEmbedder(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewPrefixedEmbedder(inner, "query: ", "passage: ")
	ctx := context.Background()

	_, err := e.Embed(ctx, "казнь")
	require.NoError(t, err)
	_, err = e.EmbedBatch(ctx, []string{"пир"})
	require.NoError(t, err)

	assert.Equal(t, []string{"query: казнь", "passage: пир"}, inner.seen)
}

func TestNewPrefixedEmbedder_NoPrefixesReturnsInner(t *testing.T) {
	inner := &recordingEmbedder{}
	assert.Same(t, Embedder(inner), NewPrefixedEmbedder(inner, "", ""))
}
