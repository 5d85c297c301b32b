package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusInfo describes the loaded corpus and its indexes.
type StatusInfo struct {
	CorpusPath string `json:"corpus_path"`
	Scenes     int    `json:"scenes"`
	Characters int    `json:"characters"`
	Locations  int    `json:"locations"`
	EventTags  int    `json:"event_tags"`

	LexicalBackend string `json:"lexical_backend"`
	VectorBackend  string `json:"vector_backend"`
	Dimensions     int    `json:"dimensions"`

	EmbedderType   string `json:"embedder_type"`
	EmbedderStatus string `json:"embedder_status"` // "ready", "offline"
	EmbedderModel  string `json:"embedder_model,omitempty"`

	Recognizer string `json:"recognizer"`
	BuildMS    int64  `json:"build_ms"`
	// HeapInUse is the formatted heap size after the build.
	HeapInUse string `json:"heap_in_use,omitempty"`
}

// StatusRenderer displays corpus and index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Corpus: "+info.CorpusPath))

	_, _ = fmt.Fprintf(r.out, "  Scenes:      %d\n", info.Scenes)
	_, _ = fmt.Fprintf(r.out, "  Characters:  %d\n", info.Characters)
	_, _ = fmt.Fprintf(r.out, "  Locations:   %d\n", info.Locations)
	_, _ = fmt.Fprintf(r.out, "  Event tags:  %d\n", info.EventTags)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Indexes:")
	_, _ = fmt.Fprintf(r.out, "    Lexical:   %s\n", info.LexicalBackend)
	_, _ = fmt.Fprintf(r.out, "    Vector:    %s (%d dims)\n", info.VectorBackend, info.Dimensions)
	_, _ = fmt.Fprintf(r.out, "    Built in:  %d ms\n", info.BuildMS)
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Type:      %s\n", info.EmbedderType)
	_, _ = fmt.Fprintf(r.out, "    Status:    %s\n", r.renderStatus(info.EmbedderStatus))
	if info.EmbedderModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:     %s\n", info.EmbedderModel)
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Recognizer:  %s\n", info.Recognizer)
	if info.HeapInUse != "" {
		_, _ = fmt.Fprintf(r.out, "  Heap in use: %s\n", info.HeapInUse)
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}
