package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// fakeOllama serves /api/tags and /api/embed. failFirst makes the first n
// embed calls return 503.
type fakeOllama struct {
	models     []string
	dims       int
	failFirst  atomic.Int32
	embedCalls atomic.Int32
	lastInput  atomic.Value
}

func (f *fakeOllama) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		resp := OllamaModelListResponse{}
		for _, m := range f.models {
			resp.Models = append(resp.Models, OllamaModelInfo{Name: m})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		n := f.embedCalls.Add(1)
		if n <= f.failFirst.Load() {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}

		var req OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.lastInput.Store(req.Input)

		var texts []any
		switch in := req.Input.(type) {
		case string:
			texts = []any{in}
		case []any:
			texts = in
		}

		resp := OllamaEmbedResponse{Model: req.Model}
		for i := range texts {
			vec := make([]float64, f.dims)
			vec[i%f.dims] = 3
			resp.Embeddings = append(resp.Embeddings, vec)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestOllama(t *testing.T, f *fakeOllama, cfg OllamaConfig) *OllamaEmbedder {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	cfg.Host = srv.URL
	e, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	e.retry.InitialDelay = time.Millisecond
	e.retry.MaxDelay = 5 * time.Millisecond
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestOllamaEmbedder_ResolvesModelAndDimensions(t *testing.T) {
	// Given: the configured model is installed under a tag
	f := &fakeOllama{models: []string{"bge-m3:latest"}, dims: 4}

	// When
	e := newTestOllama(t, f, OllamaConfig{Model: "bge-m3"})

	// Then
	assert.Equal(t, "bge-m3:latest", e.ModelName())
	assert.Equal(t, 4, e.Dimensions())
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaEmbedder_FallsBackToInstalledModel(t *testing.T) {
	f := &fakeOllama{models: []string{"nomic-embed-text:v1.5"}, dims: 4}

	e := newTestOllama(t, f, OllamaConfig{Model: "bge-m3"})

	assert.Equal(t, "nomic-embed-text:v1.5", e.ModelName())
}

func TestOllamaEmbedder_NoModelIsNetworkError(t *testing.T) {
	f := &fakeOllama{models: []string{"llama3"}, dims: 4}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: srv.URL, Model: "bge-m3", FallbackModels: []string{},
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNetworkUnavailable, errors.GetCode(err))
}

func TestOllamaEmbedder_EmbedNormalizes(t *testing.T) {
	f := &fakeOllama{models: []string{"bge-m3"}, dims: 4}
	e := newTestOllama(t, f, OllamaConfig{Model: "bge-m3"})

	v, err := e.Embed(context.Background(), "казнь")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0, 0, 0}, v)
	assert.Equal(t, "казнь", f.lastInput.Load())
}

func TestOllamaEmbedder_EmbedBatchSplitsAndSkipsBlank(t *testing.T) {
	// Given: batch size 2 and one blank text
	f := &fakeOllama{models: []string{"bge-m3"}, dims: 8}
	var progress []int
	e := newTestOllama(t, f, OllamaConfig{
		Model:        "bge-m3",
		BatchSize:    2,
		ProgressFunc: func(done, total int) { progress = append(progress, done) },
	})
	f.embedCalls.Store(0)

	// When
	out, err := e.EmbedBatch(context.Background(), []string{"a", " ", "b", "c"})
	require.NoError(t, err)

	// Then: two requests for three non-blank texts, blank gets zeros
	require.Len(t, out, 4)
	assert.Equal(t, int32(2), f.embedCalls.Load())
	assert.Equal(t, make([]float32, 8), out[1])
	assert.Equal(t, []int{2, 3}, progress)
}

func TestOllamaEmbedder_RetriesTransientFailures(t *testing.T) {
	f := &fakeOllama{models: []string{"bge-m3"}, dims: 4}
	e := newTestOllama(t, f, OllamaConfig{Model: "bge-m3", MaxRetries: 3})

	f.embedCalls.Store(0)
	f.failFirst.Store(2)

	_, err := e.Embed(context.Background(), "пир")
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.embedCalls.Load())
}

func TestOllamaEmbedder_ExhaustedRetriesIsEmbeddingError(t *testing.T) {
	f := &fakeOllama{models: []string{"bge-m3"}, dims: 4}
	e := newTestOllama(t, f, OllamaConfig{Model: "bge-m3", MaxRetries: 1})

	f.embedCalls.Store(0)
	f.failFirst.Store(100)

	_, err := e.Embed(context.Background(), "пир")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, errors.GetCode(err))
	assert.Equal(t, int32(2), f.embedCalls.Load())
}

func TestOllamaEmbedder_ClientErrorIsNotRetried(t *testing.T) {
	mux := http.NewServeMux()
	var calls atomic.Int32
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: srv.URL, Model: "bge-m3", Dimensions: 4, SkipHealthCheck: true,
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "пир")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaEmbedder_EmptyTextSkipsRequest(t *testing.T) {
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host: "http://127.0.0.1:1", Dimensions: 3, SkipHealthCheck: true,
	})
	require.NoError(t, err)

	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestOllamaEmbedder_Closed(t *testing.T) {
	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Dimensions: 3, SkipHealthCheck: true})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "пир")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}
