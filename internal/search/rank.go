package search

import (
	"sort"

	"github.com/YauheniMa/witcher-bot/internal/extract"
	"github.com/YauheniMa/witcher-bot/internal/scene"
)

// EventWeight is the weight of one matched event tag relative to a matched
// character or location.
const EventWeight = 2

// EntityScore is |chars∩| + |locs∩| + 2×|events∩| of s against the query
// signals, with the matched names.
func EntityScore(s *scene.Scene, signals extract.Signals) (int, Overlap) {
	overlap := Overlap{
		Characters: intersect(signals.Characters, s.HasCharacter),
		Locations:  intersect(signals.Locations, s.HasLocation),
		Events:     intersect(signals.Events, s.HasEventTag),
	}
	score := len(overlap.Characters) + len(overlap.Locations) + EventWeight*len(overlap.Events)
	return score, overlap
}

func intersect(values []string, has func(string) bool) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if has(v) {
			out = append(out, v)
		}
	}
	return out
}

// sortHits orders hits by Score desc. The sort is stable, so hits built in
// ascending position order keep that order on ties.
func sortHits(hits []*Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

// hasAnyCharacter reports whether s features any of names. An empty list
// matches every scene.
func hasAnyCharacter(s *scene.Scene, names []string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if s.HasCharacter(n) {
			return true
		}
	}
	return false
}
