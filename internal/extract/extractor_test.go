package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	witchererrors "github.com/YauheniMa/witcher-bot/internal/errors"
)

type fakeRecognizer struct {
	spans []Span
	err   error
	panic bool
	wait  bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, _ string) ([]Span, error) {
	if f.panic {
		panic("model exploded")
	}
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.spans, f.err
}

func (f *fakeRecognizer) Name() string { return "fake" }

func witcherGazetteer() *Gazetteer {
	return NewGazetteer(
		[]string{"Геральт", "Йеннифер", "Фольтест", "Лютик"},
		[]string{"Цинтра", "Вызима", "Ривия"},
	)
}

func TestExtractor_Found(t *testing.T) {
	// Given
	x := New(witcherGazetteer(), nil)

	// When
	res := x.Extract(context.Background(), "свадьба Геральта и Йеннифер в Цинтре")

	// Then
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"Геральт", "Йеннифер"}, res.Characters)
	assert.Equal(t, []string{"Цинтра"}, res.Locations)
	assert.Equal(t, []string{"wedding_celebration"}, res.Events)
	assert.Equal(t, []string{}, res.Other)
}

func TestExtractor_UnusualInputNeverFails(t *testing.T) {
	x := New(witcherGazetteer(), nil)

	tests := []struct {
		name    string
		query   string
		outcome Outcome
		events  []string
	}{
		{name: "empty", query: "", outcome: OutcomeEmpty, events: []string{}},
		{name: "punctuation only", query: "?!…", outcome: OutcomeEmpty, events: []string{}},
		{name: "invalid utf-8", query: "\xff\xfe", outcome: OutcomeEmpty, events: []string{}},
		{name: "very long", query: strings.Repeat("битва ", 20000), outcome: OutcomeFound, events: []string{"battle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When
			res := x.Extract(context.Background(), tt.query)

			// Then: sets are never nil and the call never reports failure
			assert.NotEqual(t, OutcomeFailed, res.Outcome)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.NoError(t, res.Err)
			assert.NotNil(t, res.Characters)
			assert.NotNil(t, res.Locations)
			assert.NotNil(t, res.Other)
			assert.Equal(t, tt.events, res.Events)
			assert.Empty(t, res.Characters)
			assert.Empty(t, res.Locations)
		})
	}
}

func TestExtractor_DeduplicatesAndSorts(t *testing.T) {
	x := New(&fakeRecognizer{spans: []Span{
		{Text: "Фольтеста", Normal: "Фольтест", Type: TypePerson},
		{Text: "Геральт", Type: TypePerson},
		{Text: "Фольтест", Type: TypePerson},
		{Text: "Нильфгаард", Type: TypeOther},
		{Text: "", Type: TypeLocation},
		{Text: "Каэр Морхен", Type: "MISC"},
	}}, nil)

	res := x.Extract(context.Background(), "запрос")

	assert.Equal(t, []string{"Геральт", "Фольтест"}, res.Characters)
	assert.Equal(t, []string{}, res.Locations)
	assert.Equal(t, []string{"Каэр Морхен", "Нильфгаард"}, res.Other)
	assert.Equal(t, OutcomeFound, res.Outcome)
}

func TestExtractor_Empty(t *testing.T) {
	x := New(witcherGazetteer(), nil)

	res := x.Extract(context.Background(), "что было дальше")

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.NotNil(t, res.Characters)
	assert.NotNil(t, res.Locations)
	assert.NotNil(t, res.Events)
	assert.NotNil(t, res.Other)
	assert.True(t, res.Signals.Empty())
}

func TestExtractor_RecognizerErrorKeepsEvents(t *testing.T) {
	// Given: a recognizer that always fails
	x := New(&fakeRecognizer{err: errors.New("ner offline")}, nil)

	// When
	res := x.Extract(context.Background(), "казнь Фольтеста")

	// Then: failed outcome, entities empty, events still matched
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Error(t, res.Err)
	assert.Equal(t, witchererrors.ErrCodeExtractionFailed, witchererrors.GetCode(res.Err))
	assert.Empty(t, res.Characters)
	assert.NotNil(t, res.Characters)
	assert.Equal(t, []string{"execution"}, res.Events)
}

func TestExtractor_RecognizerPanicIsContained(t *testing.T) {
	x := New(&fakeRecognizer{panic: true}, nil)

	var res Result
	require.NotPanics(t, func() {
		res = x.Extract(context.Background(), "битва")
	})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Err.Error(), "model exploded")
	assert.Equal(t, []string{"battle"}, res.Events)
}

func TestExtractor_Timeout(t *testing.T) {
	x := New(&fakeRecognizer{wait: true}, nil, WithTimeout(10*time.Millisecond))

	res := x.Extract(context.Background(), "Геральт")

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestExtractor_NilRecognizerMatchesEventsOnly(t *testing.T) {
	x := New(nil, nil)

	res := x.Extract(context.Background(), "пир у Геральта")

	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Empty(t, res.Characters)
	assert.Equal(t, []string{"feast"}, res.Events)
	assert.Equal(t, "none", x.RecognizerName())
}

func TestChain_MergesSpans(t *testing.T) {
	chain := Chain{
		witcherGazetteer(),
		&fakeRecognizer{spans: []Span{{Text: "Нильфгаард", Type: TypeOther}}},
	}
	x := New(chain, nil)

	res := x.Extract(context.Background(), "Лютик и Нильфгаард")

	assert.Equal(t, []string{"Лютик"}, res.Characters)
	assert.Equal(t, []string{"Нильфгаард"}, res.Other)
	assert.Equal(t, "fake+gazetteer", chain.Name())
}

func TestChain_MemberFailureFailsChain(t *testing.T) {
	chain := Chain{witcherGazetteer(), &fakeRecognizer{err: errors.New("boom")}}

	spans, err := chain.Recognize(context.Background(), "Геральт")

	assert.Nil(t, spans)
	assert.ErrorContains(t, err, "fake: boom")
}
