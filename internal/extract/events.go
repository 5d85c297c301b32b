package extract

import (
	"sort"
	"strings"
)

// DefaultEventSynonyms maps query phrases to event slugs.
var DefaultEventSynonyms = map[string]string{
	"снятие проклятия": "lifting_curse",
	"бой со стрыгой":   "fight_striga",
	"проклятие стрыги": "striga_curse",
	"свадьба":          "wedding_celebration",
	"дорога":           "journey",
	"прибытие":         "arrival",
	"битва":            "battle",
	"разговор":         "dialogue",
	"казнь":            "execution",
	"пир":              "feast",
}

type eventPhrase struct {
	phrase string
	slug   string
}

// EventTable matches event phrases as case-insensitive substrings of a query.
type EventTable struct {
	phrases []eventPhrase
}

// NewEventTable builds a table from phrase→slug pairs. Phrases are
// lowercased and kept in sorted order.
func NewEventTable(synonyms map[string]string) *EventTable {
	t := &EventTable{phrases: make([]eventPhrase, 0, len(synonyms))}
	for phrase, slug := range synonyms {
		t.phrases = append(t.phrases, eventPhrase{phrase: strings.ToLower(phrase), slug: slug})
	}
	sort.Slice(t.phrases, func(i, j int) bool { return t.phrases[i].phrase < t.phrases[j].phrase })
	return t
}

// DefaultEventTable returns the table over DefaultEventSynonyms.
func DefaultEventTable() *EventTable {
	return NewEventTable(DefaultEventSynonyms)
}

// Match returns the sorted distinct slugs whose phrase occurs in query.
// Matching is by substring, so "пир" also fires inside "пирог".
func (t *EventTable) Match(query string) []string {
	q := strings.ToLower(query)

	seen := make(map[string]struct{})
	for _, p := range t.phrases {
		if strings.Contains(q, p.phrase) {
			seen[p.slug] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Len returns the number of phrases.
func (t *EventTable) Len() int {
	return len(t.phrases)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
