package embed

import "context"

// PrefixedEmbedder prepends instruction prefixes for asymmetric models such
// as the e5 family ("query: ", "passage: "). Embed is the query path and
// EmbedBatch is the passage path.
type PrefixedEmbedder struct {
	inner         Embedder
	queryPrefix   string
	passagePrefix string
}

var _ Embedder = (*PrefixedEmbedder)(nil)

// NewPrefixedEmbedder wraps inner. It returns inner unchanged when both
// prefixes are empty.
func NewPrefixedEmbedder(inner Embedder, queryPrefix, passagePrefix string) Embedder {
	if queryPrefix == "" && passagePrefix == "" {
		return inner
	}
	return &PrefixedEmbedder{inner: inner, queryPrefix: queryPrefix, passagePrefix: passagePrefix}
}

// Embed embeds a query.
func (p *PrefixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.inner.Embed(ctx, p.queryPrefix+text)
}

// EmbedBatch embeds passages.
func (p *PrefixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.passagePrefix == "" {
		return p.inner.EmbedBatch(ctx, texts)
	}
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = p.passagePrefix + t
	}
	return p.inner.EmbedBatch(ctx, prefixed)
}

func (p *PrefixedEmbedder) Dimensions() int                    { return p.inner.Dimensions() }
func (p *PrefixedEmbedder) ModelName() string                  { return p.inner.ModelName() }
func (p *PrefixedEmbedder) Available(ctx context.Context) bool { return p.inner.Available(ctx) }
func (p *PrefixedEmbedder) Close() error                       { return p.inner.Close() }
