// Package scene holds the annotated scene records the search core retrieves.
//
// A Store is built once from the corpus and never mutated afterwards. The
// position of a scene inside the Store is the row id used by both the lexical
// and the vector index, so indexes must be built from the same Store.
package scene

import (
	"strings"
)

// Scene is one retrievable unit of the corpus.
type Scene struct {
	ID         string   `json:"scene_id"`
	Text       string   `json:"text"`
	Summary    string   `json:"summary_50w"`
	Beats      []string `json:"beats"`
	EventTags  []string `json:"event_tags"`
	Characters []string `json:"extra_characters"`
	Locations  []string `json:"extra_locations"`
	// Events are free-text event descriptions produced by the annotator.
	Events []string `json:"extra_events,omitempty"`

	characterSet map[string]struct{}
	locationSet  map[string]struct{}
	eventTagSet  map[string]struct{}
}

// LexicalText is the document indexed by the lexical index:
// summary, beats and event tags joined by single spaces.
func (s *Scene) LexicalText() string {
	parts := make([]string, 0, 3)
	parts = append(parts, s.Summary)
	parts = append(parts, strings.Join(s.Beats, " "))
	parts = append(parts, strings.Join(s.EventTags, " "))
	return strings.Join(parts, " ")
}

// HasCharacter reports whether name is listed in extra_characters.
func (s *Scene) HasCharacter(name string) bool {
	_, ok := s.characterSet[name]
	return ok
}

// HasLocation reports whether name is listed in extra_locations, either as
// a whole entry or as one level of a "Region > City > Place" hierarchy.
func (s *Scene) HasLocation(name string) bool {
	_, ok := s.locationSet[name]
	return ok
}

// HasEventTag reports whether slug is listed in event_tags.
func (s *Scene) HasEventTag(slug string) bool {
	_, ok := s.eventTagSet[slug]
	return ok
}

// normalize replaces missing collections with empty ones and builds lookup sets.
func (s *Scene) normalize() {
	if s.Beats == nil {
		s.Beats = []string{}
	}
	if s.EventTags == nil {
		s.EventTags = []string{}
	}
	if s.Characters == nil {
		s.Characters = []string{}
	}
	if s.Locations == nil {
		s.Locations = []string{}
	}
	if s.Events == nil {
		s.Events = []string{}
	}
	s.characterSet = toSet(s.Characters)
	s.locationSet = toSet(s.Locations)
	for _, loc := range s.Locations {
		for _, part := range LocationParts(loc) {
			s.locationSet[part] = struct{}{}
		}
	}
	s.eventTagSet = toSet(s.EventTags)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// LocationParts splits a "Region > City > Place" hierarchy into its trimmed,
// non-empty levels. A plain name yields itself.
func LocationParts(loc string) []string {
	raw := strings.Split(loc, ">")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Snippet returns the first maxWords whitespace-separated words of text.
func Snippet(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ")
}
