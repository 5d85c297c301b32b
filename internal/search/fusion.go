package search

import (
	"sort"

	"github.com/YauheniMa/witcher-bot/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// FusedResult is the RRF score of one scene position.
type FusedResult struct {
	Position      int
	RRFScore      float64 // normalized 0-1
	LexicalScore  float64
	LexicalRank   int // 1-indexed, 0 if absent
	SemanticScore float32
	SemanticRank  int // 1-indexed, 0 if absent
	InBothLists   bool
}

// RRFFusion combines the lexical and semantic candidate lists with
// Reciprocal Rank Fusion:
//
//	RRF(d) = Σ weight_i / (k + rank_i)
type RRFFusion struct {
	K int
}

// NewRRFFusion creates a fusion with k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a fusion with a custom k. k <= 0 means 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse scores every position appearing in either list. A position missing
// from one list gets that list's contribution at
// missing_rank = max(len(lexical), len(semantic)) + 1.
//
// Results are sorted by RRFScore desc, then InBothLists, then
// LexicalScore desc, then Position asc.
func (f *RRFFusion) Fuse(lexical []store.LexicalResult, semantic []store.VectorResult, weights Weights) []*FusedResult {
	if len(lexical) == 0 && len(semantic) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[int]*FusedResult, len(lexical)+len(semantic))

	for rank, r := range lexical {
		result := f.getOrCreate(scores, r.Position)
		result.LexicalScore = r.Score
		result.LexicalRank = rank + 1
		result.RRFScore += weights.Lexical / float64(f.K+rank+1)
	}

	for rank, r := range semantic {
		result := f.getOrCreate(scores, r.Position)
		result.SemanticScore = r.Score
		result.SemanticRank = rank + 1
		result.RRFScore += weights.Semantic / float64(f.K+rank+1)
		if result.LexicalRank > 0 {
			result.InBothLists = true
		}
	}

	missingRank := max(len(lexical), len(semantic)) + 1
	for _, r := range scores {
		if r.LexicalRank == 0 {
			r.RRFScore += weights.Lexical / float64(f.K+missingRank)
		}
		if r.SemanticRank == 0 {
			r.RRFScore += weights.Semantic / float64(f.K+missingRank)
		}
	}

	results := make([]*FusedResult, 0, len(scores))
	for _, r := range scores {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})

	f.normalize(results)
	return results
}

func (f *RRFFusion) getOrCreate(m map[int]*FusedResult, pos int) *FusedResult {
	if r, ok := m[pos]; ok {
		return r
	}
	r := &FusedResult{Position: pos}
	m[pos] = r
	return r
}

func (f *RRFFusion) compare(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.LexicalScore != b.LexicalScore {
		return a.LexicalScore > b.LexicalScore
	}
	return a.Position < b.Position
}

// normalize scales scores so the best result is 1.0.
func (f *RRFFusion) normalize(results []*FusedResult) {
	if len(results) == 0 {
		return
	}
	maxScore := results[0].RRFScore
	if maxScore == 0 {
		return
	}
	for _, r := range results {
		r.RRFScore /= maxScore
	}
}
