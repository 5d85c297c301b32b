package search

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/extract"
	"github.com/YauheniMa/witcher-bot/internal/index"
	"github.com/YauheniMa/witcher-bot/internal/metrics"
	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/scene/scenetest"
	"github.com/YauheniMa/witcher-bot/internal/store"
)

type fixture struct {
	scenes   *scene.Store
	indexes  *index.Indexes
	embedder embed.Embedder
}

func newFixture(t *testing.T, scenes *scene.Store) *fixture {
	t.Helper()
	embedder := embed.NewStaticEmbedder()
	ix, err := index.Build(context.Background(), scenes, embedder, index.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return &fixture{scenes: scenes, indexes: ix, embedder: embedder}
}

func (f *fixture) engine(t *testing.T, cfg Config, recognizer extract.Recognizer, opts ...EngineOption) *Engine {
	t.Helper()
	if recognizer == nil {
		recognizer = extract.NewGazetteerFromStore(f.scenes)
	}
	e, err := New(f.scenes, f.indexes, f.embedder, extract.New(recognizer, nil), cfg, opts...)
	require.NoError(t, err)
	return e
}

func ids(scenes []*scene.Scene) []string {
	out := make([]string, len(scenes))
	for i, s := range scenes {
		out[i] = s.ID
	}
	return out
}

func TestSmartSearch_EventOutweighsExtraCharacter(t *testing.T) {
	// Given: A has the battle and Геральт, B has Геральт and Йеннифер
	scenes := scenetest.Build(t, []*scene.Scene{
		{
			ID:         "B",
			Summary:    "Геральт и Йеннифер говорят у камина",
			Characters: []string{"Геральт", "Йеннифер"},
		},
		{
			ID:         "A",
			Summary:    "Геральт в битве у моста",
			EventTags:  []string{"battle"},
			Characters: []string{"Геральт"},
		},
	})
	e := newFixture(t, scenes).engine(t, DefaultConfig(), nil)

	// When
	resp, err := e.SmartSearch(context.Background(), "битва Геральта", Options{})

	// Then: A = 1 + 2 = 3, B = 1
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids(resp.Scenes()))
	assert.Equal(t, 3.0, resp.Hits[0].Score)
	assert.Equal(t, 1.0, resp.Hits[1].Score)
	assert.Equal(t, []string{"Геральт"}, resp.Signals.Characters)
	assert.Equal(t, []string{"battle"}, resp.Signals.Events)
	assert.Equal(t, extract.OutcomeFound, resp.Outcome)
	assert.NotEmpty(t, resp.RequestID)
}

func TestSmartSearch_EmptySummaryIsCandidateOnEveryVectorBackend(t *testing.T) {
	// Given: B has no summary, so its embedding is the zero vector
	scenes := scenetest.Build(t, []*scene.Scene{
		{ID: "A", Summary: "Геральт в битве у моста", EventTags: []string{"battle"}, Characters: []string{"Геральт"}},
		{ID: "B", Characters: []string{"Геральт", "Йеннифер"}},
		{ID: "C", Summary: "Лютик поёт в таверне"},
	})

	for _, backend := range store.ValidVectorBackends() {
		t.Run(string(backend), func(t *testing.T) {
			embedder := embed.NewStaticEmbedder()
			cfg := index.DefaultConfig()
			cfg.VectorBackend = backend
			ix, err := index.Build(context.Background(), scenes, embedder, cfg)
			require.NoError(t, err)
			defer func() { _ = ix.Close() }()
			e, err := New(scenes, ix, embedder, extract.New(extract.NewGazetteerFromStore(scenes), nil), DefaultConfig())
			require.NoError(t, err)

			// When
			resp, err := e.SmartSearch(context.Background(), "битва Геральта", Options{})
			require.NoError(t, err)
			empty, err := e.SmartSearch(context.Background(), "", Options{})
			require.NoError(t, err)

			// Then: B keeps its character score and the empty query still
			// sees every scene through the semantic pass
			assert.Equal(t, []string{"A", "B", "C"}, ids(resp.Scenes()))
			assert.Equal(t, 1.0, resp.Hits[1].Score)
			assert.Equal(t, 3, empty.Counts.Candidates)
		})
	}
}

func TestSmartSearch_WitcherCorpusOrdering(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)

	resp, err := e.SmartSearch(context.Background(), "битва Геральта под Вызимой", Options{})

	// striga = Геральт + Вызима + 2×battle = 4; wedding, road and execution
	// score 1 each and keep their position order
	require.NoError(t, err)
	assert.Equal(t, []string{"striga", "wedding", "road", "execution"}, ids(resp.Scenes()))
	assert.Equal(t, 4, resp.Hits[0].EntityScore)
	assert.Equal(t, []string{"Вызима"}, resp.Hits[0].Overlap.Locations)
	assert.Equal(t, []string{"battle"}, resp.Hits[0].Overlap.Events)
	assert.Equal(t, 4, resp.Counts.Candidates)
}

func TestSmartSearch_ResultsComeFromCandidateUnion(t *testing.T) {
	// Given: narrow retrieval
	f := newFixture(t, scenetest.Witcher(t))
	e := f.engine(t, DefaultConfig(), nil)
	opts := Options{TopKLexical: 1, TopKSemantic: 1}
	ctx := context.Background()

	// When
	candidates, err := e.Candidates(ctx, "казнь на площади", opts)
	require.NoError(t, err)
	resp, err := e.SmartSearch(ctx, "казнь на площади", opts)
	require.NoError(t, err)

	// Then
	assert.LessOrEqual(t, len(resp.Hits), 2)
	assert.Len(t, resp.Hits, len(candidates))
	assert.ElementsMatch(t, ids(candidates), ids(resp.Scenes()))
	assert.Contains(t, ids(candidates), "execution")
}

func TestSmartSearch_Idempotent(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)
	ctx := context.Background()

	first, err := e.SmartSearch(ctx, "свадьба Йеннифер в Цинтре", Options{})
	require.NoError(t, err)
	second, err := e.SmartSearch(ctx, "свадьба Йеннифер в Цинтре", Options{})
	require.NoError(t, err)

	assert.Equal(t, ids(first.Scenes()), ids(second.Scenes()))
	assert.Equal(t, first.Signals, second.Signals)
	assert.NotEqual(t, first.RequestID, second.RequestID)
	assert.Equal(t, "wedding", first.Hits[0].Scene.ID)
}

func TestSmartSearch_EmptyCorpus(t *testing.T) {
	// Given: no scenes at all
	e := newFixture(t, scenetest.Build(t, nil)).engine(t, DefaultConfig(), nil)

	// When
	resp, err := e.SmartSearch(context.Background(), "свадьба Геральта", Options{})

	// Then: empty ranking, events still extracted
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.NotNil(t, resp.Hits)
	assert.Equal(t, []string{}, resp.Signals.Characters)
	assert.Equal(t, []string{"wedding_celebration"}, resp.Signals.Events)
}

func TestSmartSearch_NothingAboveThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSemanticScore = 1.5
	e := newFixture(t, scenetest.Witcher(t)).engine(t, cfg, nil)

	resp, err := e.SmartSearch(context.Background(), "абракадабра", Options{})

	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
	assert.True(t, resp.Signals.Empty())
	assert.Equal(t, extract.OutcomeEmpty, resp.Outcome)
}

func TestSmartSearch_EmptyQuery(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)

	resp, err := e.SmartSearch(context.Background(), "", Options{})

	require.NoError(t, err)
	assert.Equal(t, 0, resp.Counts.Lexical)
	assert.True(t, resp.Signals.Empty())
}

func TestSmartSearch_MustHaveCharacters(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)

	resp, err := e.SmartSearch(context.Background(), "Геральт", Options{MustHaveCharacters: []string{"Лютик"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"road"}, ids(resp.Scenes()))
	assert.Equal(t, 3, resp.Counts.Filtered)
}

func TestSmartSearch_Limit(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)

	resp, err := e.SmartSearch(context.Background(), "бой со стрыгой", Options{Limit: 2})

	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, "striga", resp.Hits[0].Scene.ID)
	assert.Equal(t, 4, resp.Counts.Candidates)
}

func TestSmartSearch_SimilarityWeightBreaksTies(t *testing.T) {
	// Given: no entity overlap anywhere; only the second scene matches lexically
	scenes := scenetest.Build(t, []*scene.Scene{
		{ID: "first", Summary: "тихий вечер"},
		{ID: "second", Summary: "ярмарка"},
		{ID: "third", Summary: "дождь"},
	})
	f := newFixture(t, scenes)

	// When: similarity is ignored
	plain, err := f.engine(t, DefaultConfig(), nil).SmartSearch(context.Background(), "ярмарка", Options{})
	require.NoError(t, err)

	// And: similarity contributes
	cfg := DefaultConfig()
	cfg.SimilarityWeight = 1
	weighted, err := f.engine(t, cfg, nil).SmartSearch(context.Background(), "ярмарка", Options{})
	require.NoError(t, err)

	// Then
	assert.Equal(t, []string{"first", "second", "third"}, ids(plain.Scenes()))
	assert.Equal(t, "second", weighted.Hits[0].Scene.ID)
	assert.InDelta(t, 1.0, weighted.Hits[0].Score, 1e-9)
	assert.Equal(t, 1, weighted.Hits[0].LexicalRank)
}

type failingRecognizer struct{}

func (failingRecognizer) Recognize(context.Context, string) ([]extract.Span, error) {
	return nil, stderrors.New("ner down")
}

func (failingRecognizer) Name() string { return "failing" }

func TestSmartSearch_ExtractionFailureDegrades(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), failingRecognizer{})

	resp, err := e.SmartSearch(context.Background(), "казнь Фольтеста", Options{Explain: true})

	require.NoError(t, err)
	assert.Equal(t, extract.OutcomeFailed, resp.Outcome)
	assert.Empty(t, resp.Signals.Characters)
	assert.Equal(t, []string{"execution"}, resp.Signals.Events)
	assert.Equal(t, "execution", resp.Hits[0].Scene.ID)
	require.NotNil(t, resp.Explain)
	assert.Contains(t, resp.Explain.ExtractionError, "ner down")
	assert.Equal(t, "failing", resp.Explain.Recognizer)
}

type brokenLexical struct{ n int }

func (b brokenLexical) Scores(context.Context, string) ([]float64, error) {
	return nil, stderrors.New("segment corrupted")
}
func (b brokenLexical) Len() int        { return b.n }
func (b brokenLexical) Backend() string { return "broken" }
func (b brokenLexical) Close() error    { return nil }

func TestSmartSearch_LexicalFailureIsFatal(t *testing.T) {
	// Given
	f := newFixture(t, scenetest.Witcher(t))
	broken := &index.Indexes{Lexical: brokenLexical{n: f.scenes.Len()}, Vector: f.indexes.Vector}
	m := metrics.New()
	e, err := New(f.scenes, broken, f.embedder, extract.New(nil, nil), DefaultConfig(), WithMetrics(m))
	require.NoError(t, err)

	// When
	resp, err := e.SmartSearch(context.Background(), "Геральт", Options{})

	// Then
	assert.Nil(t, resp)
	assert.Equal(t, errors.ErrCodeSearchFailed, errors.GetCode(err))
	assert.ErrorContains(t, err, "segment corrupted")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.StatusError)))
}

type shortEmbedder struct{ embed.Embedder }

func (s shortEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func TestSmartSearch_DimensionMismatchKeepsCode(t *testing.T) {
	f := newFixture(t, scenetest.Witcher(t))
	e, err := New(f.scenes, f.indexes, shortEmbedder{f.embedder}, extract.New(nil, nil), DefaultConfig())
	require.NoError(t, err)

	_, err = e.SmartSearch(context.Background(), "Геральт", Options{})

	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestSmartSearch_CanceledContext(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.SmartSearch(ctx, "Геральт", Options{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSmartSearch_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil, WithMetrics(m))

	_, err := e.SmartSearch(context.Background(), "Лютик", Options{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionOutcomes.WithLabelValues("found")))
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t, scenetest.Witcher(t))
	x := extract.New(nil, nil)

	_, err := New(nil, f.indexes, f.embedder, x, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = New(f.scenes, nil, f.embedder, x, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = New(f.scenes, f.indexes, nil, x, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = New(f.scenes, f.indexes, f.embedder, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	// indexes from another corpus
	other := newFixture(t, scenetest.Build(t, []*scene.Scene{{ID: "solo"}}))
	_, err = New(f.scenes, other.indexes, f.embedder, x, DefaultConfig())
	assert.Equal(t, errors.ErrCodeIndexFailed, errors.GetCode(err))
}

func TestNew_AppliesConfigDefaults(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, Config{}, nil)

	cfg := e.Config()
	assert.Equal(t, DefaultTopKLexical, cfg.TopKLexical)
	assert.Equal(t, DefaultTopKSemantic, cfg.TopKSemantic)
	assert.Equal(t, DefaultRRFConstant, cfg.RRFConstant)
	assert.Equal(t, DefaultWeights(), cfg.Weights)
}

func TestSmartSearch_RejectsNegativeLimits(t *testing.T) {
	e := newFixture(t, scenetest.Witcher(t)).engine(t, DefaultConfig(), nil)

	tests := []struct {
		name string
		opts Options
	}{
		{name: "lexical top-k", opts: Options{TopKLexical: -1}},
		{name: "semantic top-k", opts: Options{TopKSemantic: -3}},
		{name: "limit", opts: Options{Limit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When
			resp, err := e.SmartSearch(context.Background(), "Геральт", tt.opts)
			_, candErr := e.Candidates(context.Background(), "Геральт", tt.opts)

			// Then: both entry points report invalid input
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
			assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(candErr))
		})
	}
}
