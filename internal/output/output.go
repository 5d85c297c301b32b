// Package output formats CLI messages and smart_search rankings for the
// terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// SearchResults prints a ranking, one block per scene, with text
// truncated to snippetWords words.
func (w *Writer) SearchResults(resp *search.Response, snippetWords int) {
	if len(resp.Hits) == 0 {
		w.Warningf("No scenes found for %q", resp.Query)
		return
	}

	w.Statusf("🔍", "%d scene(s) for %q (extraction: %s)", len(resp.Hits), resp.Query, resp.Outcome)
	if s := signalsLine(resp); s != "" {
		w.Status("", s)
	}
	w.Newline()

	for i, h := range resp.Hits {
		_, _ = fmt.Fprintf(w.out, "%2d. %s  score=%.2f entity=%d similarity=%.3f\n",
			i+1, h.Scene.ID, h.Score, h.EntityScore, h.Similarity)
		if o := overlapLine(h.Overlap); o != "" {
			_, _ = fmt.Fprintf(w.out, "    matched: %s\n", o)
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n\n", scene.Snippet(h.Scene.Text, snippetWords))
	}
}

// Explain prints the parameters a ranking was produced with.
func (w *Writer) Explain(resp *search.Response) {
	x := resp.Explain
	if x == nil {
		return
	}
	_, _ = fmt.Fprintln(w.out, "Explain:")
	_, _ = fmt.Fprintf(w.out, "  lexical:    %s top %d -> %d hits\n", x.LexicalBackend, x.TopKLexical, resp.Counts.Lexical)
	_, _ = fmt.Fprintf(w.out, "  semantic:   %s top %d (min %.2f) -> %d hits\n",
		x.VectorBackend, x.TopKSemantic, x.MinSemanticScore, resp.Counts.Semantic)
	_, _ = fmt.Fprintf(w.out, "  candidates: %d (%d dropped by character filter)\n", resp.Counts.Candidates, resp.Counts.Filtered)
	_, _ = fmt.Fprintf(w.out, "  fusion:     rrf k=%d weights %.2f/%.2f, similarity weight %.2f\n",
		x.RRFConstant, x.Weights.Lexical, x.Weights.Semantic, x.SimilarityWeight)
	_, _ = fmt.Fprintf(w.out, "  recognizer: %s\n", x.Recognizer)
	if x.ExtractionError != "" {
		_, _ = fmt.Fprintf(w.out, "  extraction error: %s\n", x.ExtractionError)
	}
}

func signalsLine(resp *search.Response) string {
	var parts []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, label+": "+strings.Join(values, ", "))
		}
	}
	add("characters", resp.Signals.Characters)
	add("locations", resp.Signals.Locations)
	add("events", resp.Signals.Events)
	return strings.Join(parts, " | ")
}

func overlapLine(o search.Overlap) string {
	var parts []string
	parts = append(parts, o.Characters...)
	parts = append(parts, o.Locations...)
	for _, e := range o.Events {
		parts = append(parts, "#"+e)
	}
	return strings.Join(parts, ", ")
}
