package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/internal/store"
)

func lexicalResults(positions []int, scores []float64) []store.LexicalResult {
	results := make([]store.LexicalResult, len(positions))
	for i, pos := range positions {
		score := 1.0
		if i < len(scores) {
			score = scores[i]
		}
		results[i] = store.LexicalResult{Position: pos, Score: score}
	}
	return results
}

func semanticResults(positions []int, scores []float32) []store.VectorResult {
	results := make([]store.VectorResult, len(positions))
	for i, pos := range positions {
		score := float32(0.9)
		if i < len(scores) {
			score = scores[i]
		}
		results[i] = store.VectorResult{Position: pos, Score: score}
	}
	return results
}

func byPosition(results []*FusedResult) map[int]*FusedResult {
	m := make(map[int]*FusedResult, len(results))
	for _, r := range results {
		m[r.Position] = r
	}
	return m
}

func TestRRFFusion_Basic(t *testing.T) {
	// Given: lexical [0, 1, 2] and semantic [2, 0, 3]
	lexical := lexicalResults([]int{0, 1, 2}, []float64{2.5, 2.0, 1.5})
	semantic := semanticResults([]int{2, 0, 3}, []float32{0.95, 0.90, 0.85})

	// When
	results := NewRRFFusion().Fuse(lexical, semantic, DefaultWeights())

	// Then: every position appears once, best normalized to 1
	require.Len(t, results, 4)
	assert.Equal(t, 0, results[0].Position)
	assert.InDelta(t, 1.0, results[0].RRFScore, 1e-9)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].RRFScore, results[i-1].RRFScore)
	}
}

func TestRRFFusion_PositionInOneListOnly(t *testing.T) {
	lexical := lexicalResults([]int{0, 1}, []float64{2.0, 1.5})
	semantic := semanticResults([]int{0, 3}, []float32{0.9, 0.8})

	results := byPosition(NewRRFFusion().Fuse(lexical, semantic, DefaultWeights()))

	require.Len(t, results, 3)
	assert.True(t, results[0].InBothLists)
	assert.Equal(t, 1, results[0].LexicalRank)
	assert.Equal(t, 1, results[0].SemanticRank)

	assert.False(t, results[1].InBothLists)
	assert.Equal(t, 2, results[1].LexicalRank)
	assert.Equal(t, 0, results[1].SemanticRank)

	assert.Equal(t, 0, results[3].LexicalRank)
	assert.Equal(t, 2, results[3].SemanticRank)
	assert.Equal(t, float32(0.8), results[3].SemanticScore)

	for _, r := range results {
		assert.Greater(t, r.RRFScore, 0.0)
	}
}

func TestRRFFusion_TieBreaking_PositionAscending(t *testing.T) {
	// Given: two positions with identical ranks in mirrored lists and equal scores
	lexical := lexicalResults([]int{7, 2}, []float64{2.0, 2.0})
	semantic := semanticResults([]int{2, 7}, []float32{0.9, 0.9})

	// When
	results := NewRRFFusion().Fuse(lexical, semantic, DefaultWeights())

	// Then: the lower position wins the tie
	require.Len(t, results, 2)
	assert.Equal(t, results[0].RRFScore, results[1].RRFScore)
	assert.Equal(t, 2, results[0].Position)
}

func TestRRFFusion_TieBreaking_PreferHigherLexicalScore(t *testing.T) {
	lexical := lexicalResults([]int{4, 1}, []float64{5.0, 5.0})
	semantic := semanticResults([]int{1, 4}, nil)
	lexical[0].Score = 6.0

	results := NewRRFFusion().Fuse(lexical, semantic, DefaultWeights())

	require.Len(t, results, 2)
	assert.Equal(t, 4, results[0].Position)
}

func TestRRFFusion_EmptyInputs(t *testing.T) {
	fusion := NewRRFFusion()

	empty := fusion.Fuse(nil, nil, DefaultWeights())
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	onlyLexical := fusion.Fuse(lexicalResults([]int{3}, nil), nil, DefaultWeights())
	require.Len(t, onlyLexical, 1)
	assert.InDelta(t, 1.0, onlyLexical[0].RRFScore, 1e-9)
}

func TestRRFFusion_WeightSensitivity(t *testing.T) {
	lexical := lexicalResults([]int{0}, nil)
	semantic := semanticResults([]int{1}, nil)
	fusion := NewRRFFusion()

	lexHeavy := fusion.Fuse(lexical, semantic, Weights{Lexical: 0.9, Semantic: 0.1})
	semHeavy := fusion.Fuse(lexical, semantic, Weights{Lexical: 0.1, Semantic: 0.9})

	assert.Equal(t, 0, lexHeavy[0].Position)
	assert.Equal(t, 1, semHeavy[0].Position)
}

func TestRRFFusion_Deterministic(t *testing.T) {
	lexical := lexicalResults([]int{5, 3, 9, 1}, []float64{4, 3, 2, 1})
	semantic := semanticResults([]int{1, 9, 6}, []float32{0.9, 0.8, 0.7})
	fusion := NewRRFFusion()

	first := fusion.Fuse(lexical, semantic, DefaultWeights())
	for range 10 {
		again := fusion.Fuse(lexical, semantic, DefaultWeights())
		require.Len(t, again, len(first))
		for i := range first {
			assert.Equal(t, first[i].Position, again[i].Position)
			assert.Equal(t, first[i].RRFScore, again[i].RRFScore)
		}
	}
}

func TestNewRRFFusionWithK(t *testing.T) {
	assert.Equal(t, 10, NewRRFFusionWithK(10).K)
	assert.Equal(t, DefaultRRFConstant, NewRRFFusionWithK(0).K)
	assert.Equal(t, DefaultRRFConstant, NewRRFFusionWithK(-5).K)
}
