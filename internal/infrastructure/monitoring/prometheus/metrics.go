package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds every metric family the platform exports.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPRequestSize     HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Document ingestion
	DocumentsUploadedTotal  CounterVec
	DocumentUploadSize      HistogramVec
	DocumentProcessDuration HistogramVec
	DocumentsByStatus       GaugeVec

	// Extraction pipeline
	ExtractionRunsTotal         CounterVec
	ExtractionDuration          HistogramVec
	CandidatesExtractedTotal    CounterVec
	CandidatesRejectedTotal     CounterVec
	TermsAcceptedTotal          CounterVec
	EncodingRepairsTotal        CounterVec
	ExtractionQueueDepth        GaugeVec
	ExtractionActiveWorkers     GaugeVec
	ExtractionRetriesTotal      CounterVec

	// Glossary
	GlossaryEntriesTotal  GaugeVec
	GlossaryMergesTotal   CounterVec
	DefinitionsFoundTotal CounterVec

	// Relationship graph
	GraphNodesTotal    GaugeVec
	GraphEdgesTotal    GaugeVec
	GraphQueryDuration HistogramVec
	GraphBuildDuration HistogramVec

	// Search
	SearchRequestsTotal   CounterVec
	SearchDuration        HistogramVec
	SearchResultCount     HistogramVec
	IndexedDocumentsTotal GaugeVec

	// Infrastructure
	DBConnectionPoolSize   GaugeVec
	DBConnectionPoolActive GaugeVec
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessageQueueDepth      GaugeVec
	MessageProcessDuration HistogramVec

	// System health
	ServiceUptime     GaugeVec
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default bucket layouts.
var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultExtractionDurationBuckets = []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}
	DefaultSizeBuckets               = []float64{1024, 10240, 102400, 1048576, 10485760, 104857600}
	DefaultDBDurationBuckets         = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultResultCountBuckets        = []float64{0, 10, 50, 100, 500, 1000, 5000}
)

// NewAppMetrics registers every metric family against the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestSize = collector.RegisterHistogram("http_request_size_bytes", "HTTP request size", DefaultSizeBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")

	// Document ingestion
	m.DocumentsUploadedTotal = collector.RegisterCounter("documents_uploaded_total", "Documents uploaded", "content_type", "language")
	m.DocumentUploadSize = collector.RegisterHistogram("document_upload_size_bytes", "Uploaded document size", DefaultSizeBuckets, "content_type")
	m.DocumentProcessDuration = collector.RegisterHistogram("document_process_duration_seconds", "End-to-end document processing duration", DefaultExtractionDurationBuckets, "language")
	m.DocumentsByStatus = collector.RegisterGauge("documents_by_status", "Documents per lifecycle status", "status")

	// Extraction pipeline
	m.ExtractionRunsTotal = collector.RegisterCounter("extraction_runs_total", "Extraction pipeline runs", "method", "status")
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Extraction pipeline duration", DefaultExtractionDurationBuckets, "method")
	m.CandidatesExtractedTotal = collector.RegisterCounter("candidates_extracted_total", "Term candidates extracted", "method")
	m.CandidatesRejectedTotal = collector.RegisterCounter("candidates_rejected_total", "Term candidates rejected by validation", "reason")
	m.TermsAcceptedTotal = collector.RegisterCounter("terms_accepted_total", "Terms accepted into the glossary", "method")
	m.EncodingRepairsTotal = collector.RegisterCounter("encoding_repairs_total", "Text encoding repairs applied", "repair")
	m.ExtractionQueueDepth = collector.RegisterGauge("extraction_queue_depth", "Pending extraction jobs", "topic")
	m.ExtractionActiveWorkers = collector.RegisterGauge("extraction_active_workers", "Workers currently extracting")
	m.ExtractionRetriesTotal = collector.RegisterCounter("extraction_retries_total", "Extraction retries", "reason")

	// Glossary
	m.GlossaryEntriesTotal = collector.RegisterGauge("glossary_entries_total", "Glossary entries", "language")
	m.GlossaryMergesTotal = collector.RegisterCounter("glossary_merges_total", "Extractions merged into existing entries", "language")
	m.DefinitionsFoundTotal = collector.RegisterCounter("definitions_found_total", "Definitions synthesized", "source_pattern")

	// Relationship graph
	m.GraphNodesTotal = collector.RegisterGauge("graph_nodes_total", "Graph nodes", "node_type")
	m.GraphEdgesTotal = collector.RegisterGauge("graph_edges_total", "Graph edges", "edge_type")
	m.GraphQueryDuration = collector.RegisterHistogram("graph_query_duration_seconds", "Graph query duration", DefaultDBDurationBuckets, "query_type")
	m.GraphBuildDuration = collector.RegisterHistogram("graph_build_duration_seconds", "Graph upsert duration", DefaultExtractionDurationBuckets, "operation")

	// Search
	m.SearchRequestsTotal = collector.RegisterCounter("search_requests_total", "Glossary search requests", "kind", "status")
	m.SearchDuration = collector.RegisterHistogram("search_duration_seconds", "Search request duration", DefaultHTTPDurationBuckets, "kind")
	m.SearchResultCount = collector.RegisterHistogram("search_result_count", "Search result count", DefaultResultCountBuckets, "kind")
	m.IndexedDocumentsTotal = collector.RegisterGauge("indexed_documents_total", "Documents in the search index", "index")

	// Infrastructure
	m.DBConnectionPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "db")
	m.DBConnectionPoolActive = collector.RegisterGauge("db_pool_active", "Database active connections", "db")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "db", "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessageQueueDepth = collector.RegisterGauge("mq_depth", "Message queue consumer lag", "topic")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic", "event_type")

	// System health
	m.ServiceUptime = collector.RegisterGauge("service_uptime_seconds", "Service uptime", "service")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type", "severity")

	return m
}

// RecordHTTPRequest observes one completed HTTP request.
func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration, reqSize, respSize int64) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordDocumentUpload observes an accepted document upload.
func RecordDocumentUpload(metrics *AppMetrics, contentType, language string, sizeBytes int64) {
	metrics.DocumentsUploadedTotal.WithLabelValues(contentType, language).Inc()
	metrics.DocumentUploadSize.WithLabelValues(contentType).Observe(float64(sizeBytes))
}

// RecordExtractionRun observes one finished extraction pipeline run.
func RecordExtractionRun(metrics *AppMetrics, method string, success bool, duration time.Duration, extracted, rejected, accepted int) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.ExtractionRunsTotal.WithLabelValues(method, status).Inc()
	metrics.ExtractionDuration.WithLabelValues(method).Observe(duration.Seconds())
	metrics.CandidatesExtractedTotal.WithLabelValues(method).Add(float64(extracted))
	if rejected > 0 {
		metrics.CandidatesRejectedTotal.WithLabelValues("validation").Add(float64(rejected))
	}
	metrics.TermsAcceptedTotal.WithLabelValues(method).Add(float64(accepted))
}

// RecordSearch observes a search request.
func RecordSearch(metrics *AppMetrics, kind string, err error, duration time.Duration, resultCount int64) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.SearchRequestsTotal.WithLabelValues(kind, status).Inc()
	metrics.SearchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err == nil {
		metrics.SearchResultCount.WithLabelValues(kind).Observe(float64(resultCount))
	}
}

// RecordDBQuery observes a database query.
func RecordDBQuery(metrics *AppMetrics, db, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(db, operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(db, "query_error", "error").Inc()
	}
}

// RecordCacheAccess observes a cache lookup outcome.
func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordError increments the error counter for a component.
func RecordError(metrics *AppMetrics, component, errorType, severity string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType, severity).Inc()
}
