package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/YauheniMa/witcher-bot/internal/embed"
	"github.com/YauheniMa/witcher-bot/internal/errors"
	"github.com/YauheniMa/witcher-bot/internal/extract"
	"github.com/YauheniMa/witcher-bot/internal/index"
	"github.com/YauheniMa/witcher-bot/internal/metrics"
	"github.com/YauheniMa/witcher-bot/internal/scene"
	"github.com/YauheniMa/witcher-bot/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = stderrors.New("nil dependency")

// Engine answers smart_search requests. It is built once at startup and is
// safe for concurrent use: every dependency is read-only after build.
type Engine struct {
	scenes    *scene.Store
	lexical   store.LexicalIndex
	vector    store.VectorIndex
	embedder  embed.Embedder
	extractor *extract.Extractor
	config    Config
	fusion    *RRFFusion
	metrics   *metrics.Metrics
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetrics records every request on m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine over scenes and the indexes built from them.
func New(
	scenes *scene.Store,
	indexes *index.Indexes,
	embedder embed.Embedder,
	extractor *extract.Extractor,
	config Config,
	opts ...EngineOption,
) (*Engine, error) {
	if scenes == nil {
		return nil, fmt.Errorf("%w: scene store is required", ErrNilDependency)
	}
	if indexes == nil || indexes.Lexical == nil || indexes.Vector == nil {
		return nil, fmt.Errorf("%w: indexes are required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if extractor == nil {
		return nil, fmt.Errorf("%w: extractor is required", ErrNilDependency)
	}
	if indexes.Lexical.Len() != scenes.Len() || indexes.Vector.Len() != scenes.Len() {
		return nil, errors.New(errors.ErrCodeIndexFailed, "indexes were not built from this scene store", nil).
			WithDetail("scenes", fmt.Sprint(scenes.Len())).
			WithDetail("lexical", fmt.Sprint(indexes.Lexical.Len())).
			WithDetail("vector", fmt.Sprint(indexes.Vector.Len()))
	}
	if indexes.Vector.Dimensions() != embedder.Dimensions() {
		return nil, store.DimensionMismatchError(indexes.Vector.Dimensions(), embedder.Dimensions())
	}

	config = applyConfigDefaults(config)
	e := &Engine{
		scenes:    scenes,
		lexical:   indexes.Lexical,
		vector:    indexes.Vector,
		embedder:  embedder,
		extractor: extractor,
		config:    config,
		fusion:    NewRRFFusionWithK(config.RRFConstant),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func applyConfigDefaults(c Config) Config {
	if c.TopKLexical <= 0 {
		c.TopKLexical = DefaultTopKLexical
	}
	if c.TopKSemantic <= 0 {
		c.TopKSemantic = DefaultTopKSemantic
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = DefaultRRFConstant
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	return c
}

// prepare rejects negative limits and fills unset ones from the config.
func (e *Engine) prepare(opts Options) (Options, error) {
	if opts.TopKLexical < 0 || opts.TopKSemantic < 0 || opts.Limit < 0 {
		return opts, errors.ValidationError("top-k and limit must not be negative", nil).
			WithDetail("topk_lexical", strconv.Itoa(opts.TopKLexical)).
			WithDetail("topk_semantic", strconv.Itoa(opts.TopKSemantic)).
			WithDetail("limit", strconv.Itoa(opts.Limit))
	}
	if opts.TopKLexical == 0 {
		opts.TopKLexical = e.config.TopKLexical
	}
	if opts.TopKSemantic == 0 {
		opts.TopKSemantic = e.config.TopKSemantic
	}
	return opts, nil
}

// Scenes returns the scene store the engine searches.
func (e *Engine) Scenes() *scene.Store {
	return e.scenes
}

// Config returns the effective ranking configuration.
func (e *Engine) Config() Config {
	return e.config
}

// retrieval is the state shared by SmartSearch and Candidates.
type retrieval struct {
	extraction extract.Result
	lexical    []store.LexicalResult
	semantic   []store.VectorResult
	candidates []int // ascending
	filtered   int
}

// SmartSearch ranks the lexical and semantic candidates of query by how
// many of the query's characters, locations and events each scene shares.
//
// Index failures fail the request. Extraction failures never do: the
// response then carries OutcomeFailed and only event signals.
func (e *Engine) SmartSearch(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	opts, err := e.prepare(opts)
	if err != nil {
		return nil, e.searchFailed(ctx, requestID, start, err)
	}
	r, err := e.retrieve(ctx, query, opts)
	if err != nil {
		return nil, e.searchFailed(ctx, requestID, start, err)
	}

	hits := e.rank(r, opts)
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	resp := &Response{
		RequestID: requestID,
		Query:     query,
		Hits:      hits,
		Signals:   r.extraction.Signals,
		Outcome:   r.extraction.Outcome,
		Counts: Counts{
			Lexical:    len(r.lexical),
			Semantic:   len(r.semantic),
			Candidates: len(r.candidates),
			Filtered:   r.filtered,
		},
		Elapsed: time.Since(start),
	}
	if opts.Explain {
		resp.Explain = e.explain(opts, r.extraction)
	}

	e.metrics.ObserveSearch(resp.Elapsed, len(r.candidates), string(resp.Outcome), nil)
	slog.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Int("query_len", len([]rune(query))),
		slog.Int("lexical", resp.Counts.Lexical),
		slog.Int("semantic", resp.Counts.Semantic),
		slog.Int("candidates", resp.Counts.Candidates),
		slog.Int("hits", len(hits)),
		slog.String("outcome", string(resp.Outcome)),
		slog.Duration("elapsed", resp.Elapsed))

	return resp, nil
}

func (e *Engine) searchFailed(ctx context.Context, requestID string, start time.Time, err error) error {
	e.metrics.ObserveSearch(time.Since(start), 0, "", err)
	attrs := append([]slog.Attr{slog.String("request_id", requestID)}, errors.LogAttrs(err)...)
	slog.LogAttrs(ctx, slog.LevelWarn, "search_failed", attrs...)
	return err
}

// Candidates returns the unranked candidate union in ascending position
// order, after the MustHaveCharacters filter.
func (e *Engine) Candidates(ctx context.Context, query string, opts Options) ([]*scene.Scene, error) {
	opts, err := e.prepare(opts)
	if err != nil {
		return nil, err
	}
	r, err := e.retrieve(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*scene.Scene, len(r.candidates))
	for i, pos := range r.candidates {
		out[i] = e.scenes.At(pos)
	}
	return out, nil
}

// retrieve runs extraction and both index lookups concurrently and builds
// the candidate union.
func (e *Engine) retrieve(ctx context.Context, query string, opts Options) (*retrieval, error) {
	r := &retrieval{}
	var scores []float64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.extraction = e.extractor.Extract(gctx, query)
		return nil
	})

	g.Go(func() error {
		s, err := e.lexical.Scores(gctx, query)
		if err != nil {
			return searchError("lexical", e.lexical.Backend(), err)
		}
		scores = s
		return nil
	})

	g.Go(func() error {
		hits, err := e.semanticTopK(gctx, query, opts.TopKSemantic)
		if err != nil {
			return searchError("semantic", e.vector.Backend(), err)
		}
		r.semantic = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.lexical = store.TopLexical(scores, opts.TopKLexical)

	union := make(map[int]struct{}, len(r.lexical)+len(r.semantic))
	for _, l := range r.lexical {
		union[l.Position] = struct{}{}
	}
	for _, s := range r.semantic {
		union[s.Position] = struct{}{}
	}

	r.candidates = make([]int, 0, len(union))
	for pos := range union {
		if !hasAnyCharacter(e.scenes.At(pos), opts.MustHaveCharacters) {
			r.filtered++
			continue
		}
		r.candidates = append(r.candidates, pos)
	}
	sort.Ints(r.candidates)

	return r, nil
}

// semanticTopK embeds query and returns the hits at or above the
// configured minimum similarity.
func (e *Engine) semanticTopK(ctx context.Context, query string, k int) ([]store.VectorResult, error) {
	if e.vector.Len() == 0 {
		return []store.VectorResult{}, nil
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.vector.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= e.config.MinSemanticScore {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// rank scores every candidate and sorts them.
func (e *Engine) rank(r *retrieval, opts Options) []*Hit {
	fused := make(map[int]*FusedResult, len(r.candidates))
	for _, f := range e.fusion.Fuse(r.lexical, r.semantic, e.config.Weights) {
		fused[f.Position] = f
	}

	hits := make([]*Hit, 0, len(r.candidates))
	for _, pos := range r.candidates {
		s := e.scenes.At(pos)
		entity, overlap := EntityScore(s, r.extraction.Signals)

		hit := &Hit{
			Scene:       s,
			Position:    pos,
			EntityScore: entity,
			Overlap:     overlap,
		}
		if f, ok := fused[pos]; ok {
			hit.Similarity = f.RRFScore
			hit.LexicalScore = f.LexicalScore
			hit.LexicalRank = f.LexicalRank
			hit.SemanticScore = f.SemanticScore
			hit.SemanticRank = f.SemanticRank
		}
		hit.Score = float64(entity) + e.config.SimilarityWeight*hit.Similarity
		hits = append(hits, hit)
	}

	sortHits(hits)
	return hits
}

func (e *Engine) explain(opts Options, res extract.Result) *ExplainData {
	data := &ExplainData{
		TopKLexical:      opts.TopKLexical,
		TopKSemantic:     opts.TopKSemantic,
		MinSemanticScore: e.config.MinSemanticScore,
		SimilarityWeight: e.config.SimilarityWeight,
		RRFConstant:      e.config.RRFConstant,
		Weights:          e.config.Weights,
		LexicalBackend:   e.lexical.Backend(),
		VectorBackend:    e.vector.Backend(),
		Recognizer:       e.extractor.RecognizerName(),
	}
	if res.Err != nil {
		data.ExtractionError = res.Err.Error()
	}
	return data
}

// searchError wraps an index failure as ERR_503. Dimension mismatches and
// cancellation pass through unchanged.
func searchError(kind, backend string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.GetCode(err) == errors.ErrCodeDimensionMismatch {
		return err
	}
	return errors.New(errors.ErrCodeSearchFailed, kind+" search failed", err).
		WithDetail("backend", backend).
		WithSuggestion("check the " + kind + " index and the embedding provider, then restart")
}
