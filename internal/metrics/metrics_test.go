package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSearch_CountsByStatus(t *testing.T) {
	// Given
	m := New()

	// When
	m.ObserveSearch(20*time.Millisecond, 7, "found", nil)
	m.ObserveSearch(5*time.Millisecond, 3, "failed", nil)
	m.ObserveSearch(time.Millisecond, 0, "", errors.New("index closed"))

	// Then
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionOutcomes.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionOutcomes.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ExtractionOutcomes))
}

func TestObserveBuild(t *testing.T) {
	m := New()

	m.ObserveBuild(42, map[string]time.Duration{
		"lexical": 2 * time.Second,
		"embed":   500 * time.Millisecond,
	})

	assert.Equal(t, 42.0, testutil.ToFloat64(m.CorpusScenes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IndexBuildDuration.WithLabelValues("lexical")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.IndexBuildDuration.WithLabelValues("embed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch(time.Second, 1, "found", nil)
		m.ObserveBuild(1, nil)
	})
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.ObserveSearch(time.Millisecond, 1, "empty", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "witcher_search_requests_total")
	assert.Contains(t, rec.Body.String(), `witcher_extraction_outcomes_total{outcome="empty"} 1`)
}
