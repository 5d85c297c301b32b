package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// Extractor combines a Recognizer with the event table.
type Extractor struct {
	recognizer Recognizer
	events     *EventTable
	timeout    time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout bounds each recognizer call.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// New creates an Extractor. A nil recognizer extracts events only; a nil
// table uses DefaultEventTable.
func New(recognizer Recognizer, events *EventTable, opts ...Option) *Extractor {
	if events == nil {
		events = DefaultEventTable()
	}
	e := &Extractor{recognizer: recognizer, events: events}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecognizerName names the configured recognizer, or "none".
func (e *Extractor) RecognizerName() string {
	if e.recognizer == nil {
		return "none"
	}
	return e.recognizer.Name()
}

// Extract returns the signals of query. It never fails: a recognizer error
// or panic yields OutcomeFailed with empty entity sets, and events are
// still matched.
func (e *Extractor) Extract(ctx context.Context, query string) Result {
	res := Result{Signals: Signals{
		Characters: []string{},
		Locations:  []string{},
		Events:     e.events.Match(query),
		Other:      []string{},
	}}

	if e.recognizer != nil {
		spans, err := e.recognize(ctx, query)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = errors.New(errors.ErrCodeExtractionFailed, "entity recognition failed", err).
				WithDetail("recognizer", e.recognizer.Name())
			slog.LogAttrs(ctx, slog.LevelWarn, "extraction_failed", errors.LogAttrs(res.Err)...)
			return res
		}
		res.Characters, res.Locations, res.Other = partition(spans)
	}

	if res.Signals.Empty() {
		res.Outcome = OutcomeEmpty
	} else {
		res.Outcome = OutcomeFound
	}
	return res
}

func (e *Extractor) recognize(ctx context.Context, query string) (spans []Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			spans = nil
			err = fmt.Errorf("recognizer panic: %v", r)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.recognizer.Recognize(ctx, query)
}

// partition splits spans by type into sorted, deduplicated canonical names.
func partition(spans []Span) (characters, locations, other []string) {
	sets := map[SpanType]map[string]struct{}{
		TypePerson:   {},
		TypeLocation: {},
		TypeOther:    {},
	}
	for _, s := range spans {
		name := s.normal()
		if name == "" {
			continue
		}
		set, ok := sets[s.Type]
		if !ok {
			set = sets[TypeOther]
		}
		set[name] = struct{}{}
	}
	return sortedKeys(sets[TypePerson]), sortedKeys(sets[TypeLocation]), sortedKeys(sets[TypeOther])
}

// Chain runs recognizers in order and merges their spans. Any failure
// fails the whole chain.
type Chain []Recognizer

var _ Recognizer = Chain(nil)

// Recognize implements Recognizer.
func (c Chain) Recognize(ctx context.Context, text string) ([]Span, error) {
	var all []Span
	for _, r := range c {
		spans, err := r.Recognize(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Name(), err)
		}
		all = append(all, spans...)
	}
	return all, nil
}

// Name implements Recognizer.
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, r := range c {
		names[i] = r.Name()
	}
	sort.Strings(names)
	name := ""
	for i, n := range names {
		if i > 0 {
			name += "+"
		}
		name += n
	}
	return name
}
