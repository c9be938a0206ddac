package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace: "termforge",
		Subsystem: "test",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounter_ScrapesWithNamespace(t *testing.T) {
	c := newTestCollector(t)

	counter := c.RegisterCounter("documents_uploaded_total", "Documents uploaded", "content_type", "language")
	counter.WithLabelValues("application/pdf", "en").Inc()
	counter.WithLabelValues("application/pdf", "en").Add(2)

	out := scrape(t, c)
	assert.Contains(t, out, "termforge_test_documents_uploaded_total")
	assert.Contains(t, out, `content_type="application/pdf"`)
	assert.Contains(t, out, "} 3")
}

func TestRegisterGauge_SetAndDec(t *testing.T) {
	c := newTestCollector(t)

	gauge := c.RegisterGauge("extraction_active_workers", "Active workers")
	gauge.WithLabelValues().Set(5)
	gauge.WithLabelValues().Dec()

	out := scrape(t, c)
	assert.Contains(t, out, "termforge_test_extraction_active_workers 4")
}

func TestRegisterHistogram_ObservesBuckets(t *testing.T) {
	c := newTestCollector(t)

	hist := c.RegisterHistogram("extraction_duration_seconds", "Extraction duration", []float64{1, 5, 10}, "method")
	hist.WithLabelValues("statistical").Observe(3)

	out := scrape(t, c)
	assert.Contains(t, out, "termforge_test_extraction_duration_seconds_bucket")
	assert.Contains(t, out, `le="5"`)
	assert.Contains(t, out, "termforge_test_extraction_duration_seconds_count")
}

func TestRegistry_AcceptsExternalCollectors(t *testing.T) {
	c := newTestCollector(t)

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "annotator_models_loaded",
		Help: "Loaded annotation models",
	})
	c.Registry().MustRegister(gauge)
	gauge.Set(1)

	out := scrape(t, c)
	assert.Contains(t, out, "annotator_models_loaded 1")
}

func TestRegister_DuplicateReturnsSameCollector(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "Duplicate", "label")
	second := c.RegisterCounter("dup_total", "Duplicate", "label")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	out := scrape(t, c)
	assert.Contains(t, out, `termforge_test_dup_total{label="a"} 2`)
}

func TestRegister_Concurrent(t *testing.T) {
	c := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counter := c.RegisterCounter("concurrent_total", "Concurrent registration")
			counter.WithLabelValues().Inc()
		}()
	}
	wg.Wait()

	out := scrape(t, c)
	assert.Contains(t, out, "termforge_test_concurrent_total 10")
}

func TestTimer_ObservesElapsed(t *testing.T) {
	c := newTestCollector(t)
	hist := c.RegisterHistogram("timed_seconds", "Timed operation", nil)

	timer := NewTimer(hist.WithLabelValues())
	timer.ObserveDuration()

	out := scrape(t, c)
	assert.Contains(t, out, "termforge_test_timed_seconds_count 1")
}

func TestTimer_NilHistogramIsSafe(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, func() { timer.ObserveDuration() })
}
