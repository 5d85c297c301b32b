package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const witcherCorpus = `{"scene_id":"wedding","text":"Пир в Цинтре гремел. Геральт стоял у стены, Йеннифер смеялась.","summary_50w":"свадьба в Цинтре и пир при дворе королевы","beats":["celebration"],"event_tags":["wedding_celebration","feast"],"extra_characters":["Геральт","Йеннифер"],"extra_locations":["Цинтра"]}
{"scene_id":"striga","text":"В склепе под Вызимой ведьмак ждал полуночи.","summary_50w":"Геральт дерётся со стрыгой в склепе под Вызимой","beats":["battle","night"],"event_tags":["fight_striga","battle"],"extra_characters":["Геральт","Фольтест"],"extra_locations":["Вызима"]}

{"scene_id":"road","text":"Дорога на Ривию вилась между холмов. Лютик пел.","summary_50w":"Геральт и Лютик в дороге на Ривию разговаривают","beats":["travel"],"event_tags":["journey","dialogue"],"extra_characters":["Геральт","Лютик"],"extra_locations":["Ривия"]}
{"scene_id":"execution","text":"На площади Вызимы готовили виселицу.","summary_50w":"казнь на площади Вызимы по приказу короля","beats":["crowd"],"event_tags":["execution"],"extra_characters":["Фольтест"],"extra_locations":["Вызима"]}
`

// testEnv isolates user config and logs under a temp home and writes the
// four-scene corpus to dir/scenes.jsonl. Embeddings are static so no
// model server is needed.
func testEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("WITCHER_EMBEDDINGS_PROVIDER", "static")
	t.Setenv("WITCHER_CORPUS_PATH", "")
	t.Setenv("WITCHER_RECOGNIZER", "")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenes.jsonl"), []byte(witcherCorpus), 0o644))
	return dir
}

// runCmd executes the root command and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}
