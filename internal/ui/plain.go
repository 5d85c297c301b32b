package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per progress event. Stage tags are styled
// unless NoColor is set.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
}

// NewPlainRenderer creates a line-oriented renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &PlainRenderer{
		out:    out,
		styles: GetStyles(cfg.NoColor),
	}
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tag := r.styles.Stage.Render("[" + event.Stage.Icon() + "]")
	switch {
	case event.Total > 0 && event.Message != "":
		_, _ = fmt.Fprintf(r.out, "%s %d/%d - %s\n", tag, event.Current, event.Total, event.Message)
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "%s %d/%d\n", tag, event.Current, event.Total)
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "%s %s\n", tag, event.Message)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "%s %d scenes indexed in %s\n",
		r.styles.Success.Render("Ready:"), stats.Scenes, stats.Duration.Round(time.Millisecond))

	if stats.Stages.Embed > 0 && stats.Scenes > 0 {
		perSec := float64(stats.Scenes) / stats.Stages.Embed.Seconds()
		_, _ = fmt.Fprintf(r.out, "  %s %s (%d scenes @ %.1f/sec)\n",
			r.styles.Label.Render("Embed:"), stats.Stages.Embed.Round(time.Millisecond), stats.Scenes, perSec)
	}
	if stats.Embedder.Backend != "" {
		_, _ = fmt.Fprintf(r.out, "  %s %s (%s, %d dims)\n",
			r.styles.Label.Render("Embedder:"), stats.Embedder.Backend, stats.Embedder.Model, stats.Embedder.Dimensions)
	}
}
