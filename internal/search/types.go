// Package search implements smart_search: hybrid candidate retrieval over
// the lexical and vector indexes, reranked by entity and event overlap.
package search

import (
	"time"

	"github.com/YauheniMa/witcher-bot/internal/extract"
	"github.com/YauheniMa/witcher-bot/internal/scene"
)

// Default retrieval breadth.
const (
	DefaultTopKLexical  = 30
	DefaultTopKSemantic = 30

	// NoSemanticThreshold keeps every semantic hit (cosine is never below -1).
	NoSemanticThreshold = float32(-1)
)

// Config holds engine-wide ranking parameters.
type Config struct {
	TopKLexical  int
	TopKSemantic int

	// MinSemanticScore drops semantic hits below this cosine similarity.
	MinSemanticScore float32

	// SimilarityWeight scales the fused similarity added to the entity
	// score. Zero ranks by entity overlap alone.
	SimilarityWeight float64

	// RRFConstant is the RRF smoothing constant k.
	RRFConstant int

	// Weights balance the lexical and semantic ranks inside the fused
	// similarity.
	Weights Weights
}

// DefaultConfig returns the entity-only ranking configuration.
func DefaultConfig() Config {
	return Config{
		TopKLexical:      DefaultTopKLexical,
		TopKSemantic:     DefaultTopKSemantic,
		MinSemanticScore: NoSemanticThreshold,
		SimilarityWeight: 0,
		RRFConstant:      DefaultRRFConstant,
		Weights:          DefaultWeights(),
	}
}

// Weights configures the relative importance of lexical vs semantic ranks.
type Weights struct {
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
}

// DefaultWeights weighs both retrieval passes equally.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.5, Semantic: 0.5}
}

// Options configures one smart_search request. Zero values take the
// engine's configured defaults.
type Options struct {
	TopKLexical  int
	TopKSemantic int

	// MustHaveCharacters keeps only candidates featuring at least one of
	// these characters.
	MustHaveCharacters []string

	// Limit truncates the ranking when positive.
	Limit int

	// Explain attaches ExplainData to the response.
	Explain bool
}

// Overlap lists the query signals a scene matched.
type Overlap struct {
	Characters []string `json:"characters"`
	Locations  []string `json:"locations"`
	Events     []string `json:"events"`
}

// Hit is one ranked scene.
type Hit struct {
	Scene    *scene.Scene `json:"-"`
	Position int          `json:"position"`

	// Score is EntityScore plus the weighted similarity.
	Score       float64 `json:"score"`
	EntityScore int     `json:"entity_score"`
	// Similarity is the normalized RRF score of the candidate (0-1).
	Similarity float64 `json:"similarity"`

	LexicalScore  float64 `json:"lexical_score"`
	LexicalRank   int     `json:"lexical_rank,omitempty"` // 1-indexed, 0 if absent
	SemanticScore float32 `json:"semantic_score"`
	SemanticRank  int     `json:"semantic_rank,omitempty"` // 1-indexed, 0 if absent

	Overlap Overlap `json:"overlap"`
}

// Counts sizes the stages of one request.
type Counts struct {
	Lexical    int `json:"lexical"`
	Semantic   int `json:"semantic"`
	Candidates int `json:"candidates"`
	// Filtered is the number of candidates dropped by MustHaveCharacters.
	Filtered int `json:"filtered"`
}

// ExplainData describes how a ranking was produced.
type ExplainData struct {
	TopKLexical      int     `json:"topk_lexical"`
	TopKSemantic     int     `json:"topk_semantic"`
	MinSemanticScore float32 `json:"min_semantic_score"`
	SimilarityWeight float64 `json:"similarity_weight"`
	RRFConstant      int     `json:"rrf_constant"`
	Weights          Weights `json:"weights"`
	LexicalBackend   string  `json:"lexical_backend"`
	VectorBackend    string  `json:"vector_backend"`
	Recognizer       string  `json:"recognizer"`
	ExtractionError  string  `json:"extraction_error,omitempty"`
}

// Response is the result of SmartSearch.
type Response struct {
	RequestID string          `json:"request_id"`
	Query     string          `json:"query"`
	Hits      []*Hit          `json:"hits"`
	Signals   extract.Signals `json:"signals"`
	Outcome   extract.Outcome `json:"outcome"`
	Counts    Counts          `json:"counts"`
	Elapsed   time.Duration   `json:"elapsed"`
	Explain   *ExplainData    `json:"explain,omitempty"`
}

// Scenes returns the ranked scenes.
func (r *Response) Scenes() []*scene.Scene {
	out := make([]*scene.Scene, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Scene
	}
	return out
}
