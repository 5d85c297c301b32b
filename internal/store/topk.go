package store

import "sort"

// TopLexical returns the k highest-scoring positions with a score above zero,
// ordered by score desc and position asc.
func TopLexical(scores []float64, k int) []LexicalResult {
	if k <= 0 {
		return []LexicalResult{}
	}

	results := make([]LexicalResult, 0, len(scores))
	for pos, score := range scores {
		if score > 0 {
			results = append(results, LexicalResult{Position: pos, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// sortVectorResults orders hits by score desc, position asc.
func sortVectorResults(results []VectorResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})
}
