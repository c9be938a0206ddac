package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	collector := newTestCollector(t)
	m := NewAppMetrics(collector)
	require.NotNil(t, m)
	return m, collector
}

func TestNewAppMetrics_RegistersAllFamilies(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	// Touch one metric per area so the scrape contains them.
	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/glossary", "200").Inc()
	m.DocumentsUploadedTotal.WithLabelValues("application/pdf", "en").Inc()
	m.ExtractionRunsTotal.WithLabelValues("statistical", "success").Inc()
	m.GlossaryEntriesTotal.WithLabelValues("en").Set(100)
	m.GraphNodesTotal.WithLabelValues("term").Set(10)
	m.SearchRequestsTotal.WithLabelValues("fulltext", "success").Inc()
	m.CacheHitsTotal.WithLabelValues("glossary").Inc()
	m.HealthCheckStatus.WithLabelValues("postgres").Set(1)

	out := scrape(t, collector)
	for _, name := range []string{
		"http_requests_total",
		"documents_uploaded_total",
		"extraction_runs_total",
		"glossary_entries_total",
		"graph_nodes_total",
		"search_requests_total",
		"cache_hits_total",
		"health_check_status",
	} {
		assert.Contains(t, out, "termforge_test_"+name)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/v1/documents", 201, 150*time.Millisecond, 2048, 256)

	out := scrape(t, collector)
	assert.Contains(t, out, `status_code="201"`)
	assert.Contains(t, out, "termforge_test_http_request_duration_seconds_count")
}

func TestRecordDocumentUpload(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	RecordDocumentUpload(m, "application/pdf", "en", 1048576)

	out := scrape(t, collector)
	assert.Contains(t, out, `termforge_test_documents_uploaded_total{content_type="application/pdf",language="en"} 1`)
	assert.Contains(t, out, "termforge_test_document_upload_size_bytes_sum")
}

func TestRecordExtractionRun(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	RecordExtractionRun(m, "statistical", true, 2*time.Second, 120, 30, 90)
	RecordExtractionRun(m, "statistical", false, time.Second, 0, 0, 0)

	out := scrape(t, collector)
	assert.Contains(t, out, `termforge_test_extraction_runs_total{method="statistical",status="success"} 1`)
	assert.Contains(t, out, `termforge_test_extraction_runs_total{method="statistical",status="failure"} 1`)
	assert.Contains(t, out, `termforge_test_candidates_extracted_total{method="statistical"} 120`)
	assert.Contains(t, out, `termforge_test_candidates_rejected_total{reason="validation"} 30`)
	assert.Contains(t, out, `termforge_test_terms_accepted_total{method="statistical"} 90`)
}

func TestRecordSearch(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	RecordSearch(m, "fulltext", nil, 40*time.Millisecond, 17)
	RecordSearch(m, "fulltext", errors.New("index unavailable"), 5*time.Millisecond, 0)

	out := scrape(t, collector)
	assert.Contains(t, out, `termforge_test_search_requests_total{kind="fulltext",status="success"} 1`)
	assert.Contains(t, out, `termforge_test_search_requests_total{kind="fulltext",status="failure"} 1`)
	// Failed searches do not skew the result-count distribution.
	assert.Contains(t, out, `termforge_test_search_result_count_count{kind="fulltext"} 1`)
}

func TestRecordDBQuery_ErrorIncrementsErrors(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	RecordDBQuery(m, "postgres", "select", 3*time.Millisecond, nil)
	RecordDBQuery(m, "postgres", "insert", 8*time.Millisecond, errors.New("deadlock"))

	out := scrape(t, collector)
	assert.Contains(t, out, `termforge_test_db_query_duration_seconds_count{db="postgres",operation="select"} 1`)
	assert.Contains(t, out, `termforge_test_errors_total{component="postgres",error_type="query_error",severity="error"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, collector := newTestAppMetrics(t)

	RecordCacheAccess(m, "glossary", true)
	RecordCacheAccess(m, "glossary", true)
	RecordCacheAccess(m, "glossary", false)

	out := scrape(t, collector)
	assert.Contains(t, out, `termforge_test_cache_hits_total{cache="glossary"} 2`)
	assert.Contains(t, out, `termforge_test_cache_misses_total{cache="glossary"} 1`)
}
