// Package ui renders index build progress and corpus status on the terminal.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a startup build stage.
type Stage int

const (
	// StageLoading reads the scene corpus.
	StageLoading Stage = iota
	// StageLexical builds the BM25 index.
	StageLexical
	// StageEmbedding embeds scene summaries.
	StageEmbedding
	// StageVector builds the vector index.
	StageVector
	// StageComplete indicates the engine is ready.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "Loading"
	case StageLexical:
		return "Lexical"
	case StageEmbedding:
		return "Embedding"
	case StageVector:
		return "Vector"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain output.
func (s Stage) Icon() string {
	switch s {
	case StageLoading:
		return "LOAD"
	case StageLexical:
		return "BM25"
	case StageEmbedding:
		return "EMBED"
	case StageVector:
		return "VECTOR"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent is a progress update.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int
	Message string
}

// StageTimings tracks the duration of each build stage.
type StageTimings struct {
	Lexical time.Duration
	Embed   time.Duration
	Vector  time.Duration
}

// CompletionStats summarizes a finished build.
type CompletionStats struct {
	Scenes   int
	Duration time.Duration
	Stages   StageTimings
	Embedder EmbedderInfo
}

// EmbedderInfo names the embedder used for the vector index.
type EmbedderInfo struct {
	Backend    string
	Model      string
	Dimensions int
}

// Renderer displays build progress.
type Renderer interface {
	UpdateProgress(event ProgressEvent)
	Complete(stats CompletionStats)
}

// Config configures a renderer.
type Config struct {
	Output  io.Writer
	NoColor bool
}

// NewRenderer returns a live TUI for terminals and a plain line renderer
// for pipes, CI and NO_COLOR.
func NewRenderer(cfg Config) Renderer {
	if cfg.NoColor || !IsTTY(cfg.Output) || DetectCI() || DetectNoColor() {
		cfg.NoColor = true
		return NewPlainRenderer(cfg)
	}
	if r, err := NewTUIRenderer(cfg); err == nil {
		return r
	}
	return NewPlainRenderer(cfg)
}

// Discard is a Renderer that drops everything.
type Discard struct{}

// UpdateProgress implements Renderer.
func (Discard) UpdateProgress(ProgressEvent) {}

// Complete implements Renderer.
func (Discard) Complete(CompletionStats) {}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
