package scene

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// maxLineSize bounds a single corpus record. Scenes carry full chapter text.
const maxLineSize = 16 * 1024 * 1024

// Store is an immutable ordered collection of scenes.
type Store struct {
	scenes []*Scene
	byID   map[string]int
}

// Stats summarizes the vocabulary of a Store.
type Stats struct {
	Scenes     int `json:"scenes"`
	Characters int `json:"characters"`
	Locations  int `json:"locations"`
	EventTags  int `json:"event_tags"`
}

// LoadOptions controls corpus loading.
type LoadOptions struct {
	// AllowEmpty accepts a corpus with zero scenes.
	AllowEmpty bool
}

// NewStore validates scenes and wraps them in a Store.
// Scene order is preserved and becomes the index position.
func NewStore(scenes []*Scene, opts LoadOptions) (*Store, error) {
	if len(scenes) == 0 && !opts.AllowEmpty {
		return nil, errors.CorpusError(errors.ErrCodeCorpusEmpty, "corpus contains no scenes", nil)
	}

	s := &Store{
		scenes: make([]*Scene, len(scenes)),
		byID:   make(map[string]int, len(scenes)),
	}
	for i, sc := range scenes {
		if sc == nil || sc.ID == "" {
			return nil, errors.CorpusError(errors.ErrCodeCorpusMalformed,
				fmt.Sprintf("scene at position %d has no scene_id", i), nil).
				WithDetail("position", strconv.Itoa(i))
		}
		if prev, dup := s.byID[sc.ID]; dup {
			return nil, errors.CorpusError(errors.ErrCodeDuplicateScene,
				fmt.Sprintf("duplicate scene_id %q at positions %d and %d", sc.ID, prev, i), nil).
				WithDetail("scene_id", sc.ID)
		}
		sc.normalize()
		s.scenes[i] = sc
		s.byID[sc.ID] = i
	}

	return s, nil
}

// LoadJSONL reads a corpus with one JSON scene per line.
// Blank lines are skipped. Any malformed line fails the whole load.
func LoadJSONL(path string, opts LoadOptions) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.CorpusError(errors.ErrCodeCorpusNotFound,
				fmt.Sprintf("corpus file not found: %s", path), err).
				WithDetail("path", path)
		}
		return nil, errors.CorpusError(errors.ErrCodeCorpusNotFound,
			fmt.Sprintf("cannot open corpus file: %s", path), err).
			WithDetail("path", path)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var scenes []*Scene
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var sc Scene
		if err := json.Unmarshal([]byte(line), &sc); err != nil {
			return nil, errors.CorpusError(errors.ErrCodeCorpusMalformed,
				fmt.Sprintf("malformed scene record at %s:%d", path, lineNo), err).
				WithDetail("line", strconv.Itoa(lineNo))
		}
		if sc.ID == "" {
			return nil, errors.CorpusError(errors.ErrCodeCorpusMalformed,
				fmt.Sprintf("scene record at %s:%d has no scene_id", path, lineNo), nil).
				WithDetail("line", strconv.Itoa(lineNo))
		}
		scenes = append(scenes, &sc)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.CorpusError(errors.ErrCodeCorpusMalformed,
			fmt.Sprintf("failed reading corpus after line %d", lineNo), err)
	}

	store, err := NewStore(scenes, opts)
	if err != nil {
		return nil, err
	}

	slog.Info("corpus_loaded",
		slog.String("path", path),
		slog.Int("scenes", store.Len()))
	return store, nil
}

// Len returns the number of scenes.
func (s *Store) Len() int {
	return len(s.scenes)
}

// At returns the scene at position pos, or nil when out of range.
func (s *Store) At(pos int) *Scene {
	if pos < 0 || pos >= len(s.scenes) {
		return nil
	}
	return s.scenes[pos]
}

// ByID returns the scene with the given scene_id and its position.
func (s *Store) ByID(id string) (*Scene, int, bool) {
	pos, ok := s.byID[id]
	if !ok {
		return nil, -1, false
	}
	return s.scenes[pos], pos, true
}

// All returns the scenes in store order. The slice must not be modified.
func (s *Store) All() []*Scene {
	return s.scenes
}

// LexicalDocuments returns LexicalText for every scene in store order.
func (s *Store) LexicalDocuments() []string {
	docs := make([]string, len(s.scenes))
	for i, sc := range s.scenes {
		docs[i] = sc.LexicalText()
	}
	return docs
}

// Summaries returns summary_50w for every scene in store order.
func (s *Store) Summaries() []string {
	out := make([]string, len(s.scenes))
	for i, sc := range s.scenes {
		out[i] = sc.Summary
	}
	return out
}

// Characters returns the sorted distinct character names of the corpus.
func (s *Store) Characters() []string {
	return s.vocabulary(func(sc *Scene) []string { return sc.Characters })
}

// Locations returns the sorted distinct location names of the corpus.
func (s *Store) Locations() []string {
	return s.vocabulary(func(sc *Scene) []string { return sc.Locations })
}

// EventTags returns the sorted distinct event slugs of the corpus.
func (s *Store) EventTags() []string {
	return s.vocabulary(func(sc *Scene) []string { return sc.EventTags })
}

// Stats returns vocabulary counts.
func (s *Store) Stats() Stats {
	return Stats{
		Scenes:     s.Len(),
		Characters: len(s.Characters()),
		Locations:  len(s.Locations()),
		EventTags:  len(s.EventTags()),
	}
}

func (s *Store) vocabulary(field func(*Scene) []string) []string {
	seen := make(map[string]struct{})
	for _, sc := range s.scenes {
		for _, v := range field(sc) {
			if v != "" {
				seen[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
