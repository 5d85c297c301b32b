package store

import (
	"context"
	"math"
	"sync"
)

// OkapiIndex is an in-memory BM25Okapi index.
//
// idf(t) = ln(N - n(t) + 0.5) - ln(n(t) + 0.5). Terms whose idf comes out
// negative (present in more than half the corpus) get Epsilon * mean idf.
type OkapiIndex struct {
	config    BM25Config
	docFreqs  []map[string]int
	docLens   []float64
	avgDocLen float64
	idf       map[string]float64

	mu     sync.RWMutex
	closed bool
}

// NewOkapiIndex indexes docs in order; docs[i] becomes position i.
func NewOkapiIndex(docs []string, config BM25Config) *OkapiIndex {
	idx := &OkapiIndex{
		config:   config,
		docFreqs: make([]map[string]int, len(docs)),
		docLens:  make([]float64, len(docs)),
		idf:      make(map[string]float64),
	}

	nd := make(map[string]int)
	var total float64
	for i, doc := range docs {
		tokens := Tokenize(doc)
		freqs := TermFrequency(tokens)
		idx.docFreqs[i] = freqs
		idx.docLens[i] = float64(len(tokens))
		total += float64(len(tokens))
		for term := range freqs {
			nd[term]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = total / float64(len(docs))
	}

	idx.computeIDF(nd, len(docs))
	return idx
}

func (o *OkapiIndex) computeIDF(nd map[string]int, n int) {
	if len(nd) == 0 {
		return
	}

	var idfSum float64
	var negative []string
	for term, freq := range nd {
		idf := math.Log(float64(n)-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		o.idf[term] = idf
		idfSum += idf
		if idf < 0 {
			negative = append(negative, term)
		}
	}

	eps := o.config.Epsilon * (idfSum / float64(len(o.idf)))
	for _, term := range negative {
		o.idf[term] = eps
	}
}

// Scores implements LexicalIndex. Repeated query tokens count repeatedly.
func (o *OkapiIndex) Scores(ctx context.Context, query string) ([]float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return nil, errClosed("lexical")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := make([]float64, len(o.docFreqs))
	if o.avgDocLen == 0 {
		return scores, nil
	}

	k1, b := o.config.K1, o.config.B
	for _, term := range Tokenize(query) {
		idf, ok := o.idf[term]
		if !ok {
			continue
		}
		for i, freqs := range o.docFreqs {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			norm := tf + k1*(1-b+b*o.docLens[i]/o.avgDocLen)
			scores[i] += idf * (tf * (k1 + 1) / norm)
		}
	}

	return scores, nil
}

// IDF returns the (floored) idf of term and whether the term is indexed.
func (o *OkapiIndex) IDF(term string) (float64, bool) {
	v, ok := o.idf[term]
	return v, ok
}

// Len implements LexicalIndex.
func (o *OkapiIndex) Len() int {
	return len(o.docFreqs)
}

// Backend implements LexicalIndex.
func (o *OkapiIndex) Backend() string {
	return string(LexicalBackendOkapi)
}

// Close implements LexicalIndex.
func (o *OkapiIndex) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

var _ LexicalIndex = (*OkapiIndex)(nil)
