//go:build ignore

// Package main generates a synthetic scene corpus for benchmarking.
// Usage: go run scripts/generate-scene-corpus.go -scenes 5000 -output testdata/bench/scenes.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numScenes = flag.Int("scenes", 1000, "Number of scenes to generate")
	output    = flag.String("output", "testdata/bench/scenes.jsonl", "Output JSONL file")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	characters = []string{"Геральт", "Йеннифер", "Цири", "Лютик", "Трисс", "Весемир", "Фольтест", "Эмгыр", "Золтан", "Регис", "Кагыр", "Мильва"}
	locations  = []string{"Вызима", "Цинтра", "Каэр Морхен", "Новиград", "Оксенфурт", "Ривия", "Брокилон", "Венгерберг", "Туссент", "Нильфгаард"}
	events     = []string{"battle", "feast", "journey", "dialogue", "execution", "wedding_celebration", "fight_striga", "council", "escape", "ambush", "funeral", "duel"}
	beats      = []string{"night", "crowd", "travel", "celebration", "battle", "rain", "silence", "chase"}
	verbs      = []string{"ждал", "спорил", "смеялся", "молчал", "сражался", "пил", "уходил", "слушал"}
	places     = []string{"у костра", "в таверне", "на площади", "в склепе", "у ворот", "на тракте", "в зале", "у реки"}
)

type scene struct {
	ID         string   `json:"scene_id"`
	Text       string   `json:"text"`
	Summary    string   `json:"summary_50w"`
	Beats      []string `json:"beats"`
	EventTags  []string `json:"event_tags"`
	Characters []string `json:"extra_characters"`
	Locations  []string `json:"extra_locations"`
}

func main() {
	flag.Parse()
	rand.Seed(*seed)

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", *output, err)
		os.Exit(1)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	fmt.Printf("Generating %d scenes in %s...\n", *numScenes, *output)
	for i := 0; i < *numScenes; i++ {
		if err := enc.Encode(generateScene(i)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write scene %d: %v\n", i, err)
			os.Exit(1)
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d scenes successfully.\n", *numScenes)
}

func generateScene(index int) scene {
	chars := pick(characters, 1+rand.Intn(3))
	locs := pick(locations, 1)
	tags := pick(events, 1+rand.Intn(2))

	var text strings.Builder
	for s := 0; s < 3+rand.Intn(5); s++ {
		fmt.Fprintf(&text, "%s %s %s в %s. ", randomWord(chars), randomWord(verbs), randomWord(places), locs[0])
	}

	return scene{
		ID:         fmt.Sprintf("scene-%05d", index),
		Text:       strings.TrimSpace(text.String()),
		Summary:    fmt.Sprintf("%s: %s в %s", strings.Join(chars, " и "), strings.ReplaceAll(tags[0], "_", " "), locs[0]),
		Beats:      pick(beats, 1+rand.Intn(2)),
		EventTags:  tags,
		Characters: chars,
		Locations:  locs,
	}
}

func randomWord(pool []string) string {
	return pool[rand.Intn(len(pool))]
}

// pick returns n distinct entries of pool.
func pick(pool []string, n int) []string {
	perm := rand.Perm(len(pool))
	out := make([]string, n)
	for i := range out {
		out[i] = pool[perm[i]]
	}
	return out
}
