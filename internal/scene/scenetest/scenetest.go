// Package scenetest builds small scene stores for tests in other packages.
package scenetest

import (
	"testing"

	"github.com/YauheniMa/witcher-bot/internal/scene"
)

// Witcher returns a four-scene store covering characters, locations and events.
//
//	0 wedding   Геральт, Йеннифер  @ Цинтра  wedding_celebration, feast
//	1 striga    Геральт, Фольтест  @ Вызима  fight_striga, battle
//	2 road      Геральт, Лютик     @ Ривия   journey, dialogue
//	3 execution Фольтест           @ Вызима  execution
func Witcher(t testing.TB) *scene.Store {
	t.Helper()
	return Build(t, []*scene.Scene{
		{
			ID:         "wedding",
			Text:       "Пир в Цинтре гремел. Геральт стоял у стены, Йеннифер смеялась.",
			Summary:    "свадьба в Цинтре и пир при дворе королевы",
			Beats:      []string{"celebration"},
			EventTags:  []string{"wedding_celebration", "feast"},
			Characters: []string{"Геральт", "Йеннифер"},
			Locations:  []string{"Цинтра"},
		},
		{
			ID:         "striga",
			Text:       "В склепе под Вызимой ведьмак ждал полуночи.",
			Summary:    "Геральт дерётся со стрыгой в склепе под Вызимой",
			Beats:      []string{"battle", "night"},
			EventTags:  []string{"fight_striga", "battle"},
			Characters: []string{"Геральт", "Фольтест"},
			Locations:  []string{"Вызима"},
		},
		{
			ID:         "road",
			Text:       "Дорога на Ривию вилась между холмов. Лютик пел.",
			Summary:    "Геральт и Лютик в дороге на Ривию разговаривают",
			Beats:      []string{"travel"},
			EventTags:  []string{"journey", "dialogue"},
			Characters: []string{"Геральт", "Лютик"},
			Locations:  []string{"Ривия"},
		},
		{
			ID:         "execution",
			Text:       "На площади Вызимы готовили виселицу.",
			Summary:    "казнь на площади Вызимы по приказу короля",
			Beats:      []string{"crowd"},
			EventTags:  []string{"execution"},
			Characters: []string{"Фольтест"},
			Locations:  []string{"Вызима"},
		},
	})
}

// Build wraps scenes in a Store, failing the test on validation errors.
func Build(t testing.TB, scenes []*scene.Scene) *scene.Store {
	t.Helper()
	store, err := scene.NewStore(scenes, scene.LoadOptions{AllowEmpty: true})
	if err != nil {
		t.Fatalf("build scene store: %v", err)
	}
	return store
}
