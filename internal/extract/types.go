package extract

import "context"

// SpanType classifies a recognized span.
type SpanType string

const (
	// TypePerson is a character name.
	TypePerson SpanType = "PER"
	// TypeLocation is a place name.
	TypeLocation SpanType = "LOC"
	// TypeOther is any other named entity.
	TypeOther SpanType = "OTHER"
)

// Span is a named entity found in a text.
type Span struct {
	// Text is the surface form as it appears in the text.
	Text string `json:"text"`
	// Normal is the canonical form; empty means Text.
	Normal string   `json:"normal"`
	Type   SpanType `json:"type"`
}

func (s Span) normal() string {
	if s.Normal != "" {
		return s.Normal
	}
	return s.Text
}

// Recognizer finds named entities in text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
	Name() string
}

// Outcome describes how extraction went.
type Outcome string

const (
	// OutcomeFound means at least one signal was extracted.
	OutcomeFound Outcome = "found"
	// OutcomeEmpty means extraction ran cleanly but found nothing.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means the recognizer failed; only events were matched.
	OutcomeFailed Outcome = "failed"
)

// Signals are the deduplicated, sorted entity sets of a query. Slices are
// never nil.
type Signals struct {
	Characters []string `json:"characters"`
	Locations  []string `json:"locations"`
	Events     []string `json:"events"`
	Other      []string `json:"other"`
}

// Empty reports whether no signal was extracted.
func (s Signals) Empty() bool {
	return len(s.Characters) == 0 && len(s.Locations) == 0 && len(s.Events) == 0 && len(s.Other) == 0
}

// Result is the outcome of Extract.
type Result struct {
	Signals
	Outcome Outcome `json:"outcome"`
	// Err is the recognizer failure when Outcome is OutcomeFailed.
	Err error `json:"-"`
}
