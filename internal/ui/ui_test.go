package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_StringAndIcon(t *testing.T) {
	assert.Equal(t, "Embedding", StageEmbedding.String())
	assert.Equal(t, "BM25", StageLexical.Icon())
	assert.Equal(t, "Unknown", Stage(99).String())
	assert.Equal(t, "???", Stage(99).Icon())
}

func TestPlainRenderer_UpdateProgress_Format(t *testing.T) {
	// Given
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf, NoColor: true})

	// When
	r.UpdateProgress(ProgressEvent{Stage: StageEmbedding, Current: 32, Total: 120, Message: "bge-m3"})
	r.UpdateProgress(ProgressEvent{Stage: StageLoading, Message: "scenes.jsonl"})
	r.UpdateProgress(ProgressEvent{Stage: StageVector})

	// Then: the empty event prints nothing
	assert.Equal(t, "[EMBED] 32/120 - bge-m3\n[LOAD] scenes.jsonl\n", buf.String())
}

func TestPlainRenderer_NoColorHasNoANSI(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf, NoColor: true})

	r.UpdateProgress(ProgressEvent{Stage: StageLexical, Current: 1, Total: 2})
	r.Complete(CompletionStats{
		Scenes:   2,
		Duration: 1500 * time.Millisecond,
		Stages:   StageTimings{Embed: time.Second},
		Embedder: EmbedderInfo{Backend: "static", Model: "static", Dimensions: 256},
	})

	out := buf.String()
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Ready: 2 scenes indexed in 1.5s")
	assert.Contains(t, out, "2 scenes @ 2.0/sec")
	assert.Contains(t, out, "static (static, 256 dims)")
}

func TestNewRenderer_NonTTYIsPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(Config{Output: buf})

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
	assert.False(t, IsTTY(buf))
	assert.False(t, IsTTY(nil))
}

func TestStatusRenderer(t *testing.T) {
	info := StatusInfo{
		CorpusPath:     "data/scenes.jsonl",
		Scenes:         4,
		Characters:     3,
		LexicalBackend: "okapi",
		VectorBackend:  "flat",
		Dimensions:     256,
		EmbedderType:   "static",
		EmbedderStatus: "ready",
		Recognizer:     "gazetteer",
	}

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, NewStatusRenderer(buf, true).Render(info))

		out := buf.String()
		assert.Contains(t, out, "Corpus: data/scenes.jsonl")
		assert.Contains(t, out, "Scenes:      4")
		assert.Contains(t, out, "flat (256 dims)")
		assert.Contains(t, out, "Status:    ready")
		assert.NotContains(t, out, "Model:")
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		require.NoError(t, NewStatusRenderer(buf, true).RenderJSON(info))

		var decoded StatusInfo
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, info, decoded)
	})
}

func TestGetStyles(t *testing.T) {
	plain := GetStyles(true)
	assert.Equal(t, "x", plain.Header.Render("x"))

	colored := GetStyles(false)
	assert.True(t, colored.Header.GetBold())
}
