package embed

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
)

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// recordingEmbedder counts calls and remembers the texts it saw.
type recordingEmbedder struct {
	embedCalls atomic.Int64
	batchCalls atomic.Int64

	mu   sync.Mutex
	seen []string
}

func (m *recordingEmbedder) record(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, texts...)
}

func (m *recordingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	m.record(text)
	return []float32{float32(len(text)), 1}, nil
}

func (m *recordingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	m.record(texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *recordingEmbedder) Dimensions() int                { return 2 }
func (m *recordingEmbedder) ModelName() string              { return "recording" }
func (m *recordingEmbedder) Available(context.Context) bool { return true }
func (m *recordingEmbedder) Close() error                   { return nil }
