package extract

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/YauheniMa/witcher-bot/internal/scene"
)

type gazetteerEntry struct {
	canonical string
	typ       SpanType
}

// Gazetteer recognizes names from a fixed vocabulary. Names and query words
// are compared by their normalized keys, longest match first.
type Gazetteer struct {
	entries map[string]gazetteerEntry
	maxLen  int
}

var _ Recognizer = (*Gazetteer)(nil)

// NewGazetteer builds a gazetteer from character and location names.
// Location hierarchies ("Темерия > Вызима") contribute every level.
// When two names share a key the first one registered wins, characters
// before locations.
func NewGazetteer(characters, locations []string) *Gazetteer {
	g := &Gazetteer{entries: make(map[string]gazetteerEntry)}
	for _, name := range characters {
		g.add(name, TypePerson)
	}
	for _, loc := range locations {
		for _, part := range scene.LocationParts(loc) {
			g.add(part, TypeLocation)
		}
	}
	return g
}

// NewGazetteerFromStore builds a gazetteer over the corpus vocabulary.
func NewGazetteerFromStore(s *scene.Store) *Gazetteer {
	return NewGazetteer(s.Characters(), s.Locations())
}

func (g *Gazetteer) add(name string, typ SpanType) {
	name = strings.TrimSpace(name)
	key := NormalizePhrase(name)
	if utf8.RuneCountInString(key) < 2 {
		return
	}

	if existing, ok := g.entries[key]; ok {
		if existing.canonical != name {
			slog.Debug("gazetteer_key_collision",
				slog.String("key", key),
				slog.String("kept", existing.canonical),
				slog.String("dropped", name))
		}
		return
	}

	g.entries[key] = gazetteerEntry{canonical: name, typ: typ}
	if n := len(strings.Fields(key)); n > g.maxLen {
		g.maxLen = n
	}
}

// Name implements Recognizer.
func (g *Gazetteer) Name() string {
	return "gazetteer"
}

// Len returns the number of distinct keys.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

// Recognize implements Recognizer. Matches do not overlap.
func (g *Gazetteer) Recognize(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := Words(text)
	spans := make([]Span, 0)

	for i := 0; i < len(words); {
		matched := 0
		for n := min(g.maxLen, len(words)-i); n >= 1; n-- {
			entry, ok := g.lookup(words[i : i+n])
			if !ok {
				continue
			}
			surface := make([]string, n)
			for j := range surface {
				surface[j] = words[i+j].Text
			}
			spans = append(spans, Span{
				Text:   strings.Join(surface, " "),
				Normal: entry.canonical,
				Type:   entry.typ,
			})
			matched = n
			break
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}

	return spans, nil
}

func (g *Gazetteer) lookup(words []Word) (gazetteerEntry, bool) {
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = w.Key
	}
	entry, ok := g.entries[strings.Join(keys, " ")]
	return entry, ok
}

// Canonical maps a free-form name to its corpus spelling. It returns the
// name's type as registered.
func (g *Gazetteer) Canonical(name string) (string, SpanType, bool) {
	entry, ok := g.entries[NormalizePhrase(name)]
	if !ok {
		return "", "", false
	}
	return entry.canonical, entry.typ, true
}
