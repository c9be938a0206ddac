package common

import (
	"context"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Metric parameter types
// ---------------------------------------------------------------------------

// AnnotationMetricParams captures one Annotate call.
type AnnotationMetricParams struct {
	AnnotatorName string
	Language      string
	TextBytes     int
	TokenCount    int
	SentenceCount int
	DurationMs    float64
	Success       bool
	ErrorType     string
}

// BatchMetricParams captures one batch fan-out over documents or pages.
type BatchMetricParams struct {
	BatchName         string
	TotalItems        int
	SuccessItems      int
	FailedItems       int
	TimeoutItems      int
	CancelledItems    int
	TotalDurationMs   float64
	AvgItemDurationMs float64
	MaxConcurrency    int
}

// IntelligenceStats is an aggregate snapshot used by health and stats
// endpoints. Only the in-memory implementation fills every field; the
// prometheus implementation returns zero values because aggregation happens
// in the scrape backend.
type IntelligenceStats struct {
	TotalAnnotations      int64            `json:"total_annotations"`
	SuccessfulAnnotations int64            `json:"successful_annotations"`
	FailedAnnotations     int64            `json:"failed_annotations"`
	TotalTokens           int64            `json:"total_tokens"`
	TotalRejections       int64            `json:"total_rejections"`
	RejectionsByReason    map[string]int64 `json:"rejections_by_reason"`
	AvgAnnotationMs       float64          `json:"avg_annotation_ms"`
	P95AnnotationMs       float64          `json:"p95_annotation_ms"`
}

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// IntelligenceMetrics records pipeline observations. Implementations must be
// safe for concurrent use.
type IntelligenceMetrics interface {
	// RecordAnnotation records one Annotate call, successful or not.
	RecordAnnotation(ctx context.Context, params AnnotationMetricParams)

	// RecordStageDuration records the wall time of one pipeline stage
	// (normalize, extract, validate, aggregate, define, relate).
	RecordStageDuration(ctx context.Context, stage string, durationMs float64)

	// RecordRejection counts a candidate rejected by a validation rule.
	RecordRejection(ctx context.Context, reasonCode string)

	// RecordBatchProcessing records the outcome of a batch fan-out.
	RecordBatchProcessing(ctx context.Context, params BatchMetricParams)

	// RecordAnnotatorLoad records an annotator load attempt.
	RecordAnnotatorLoad(ctx context.Context, name, version string, durationMs float64, success bool)

	// GetAnnotationLatencyHistogram exposes annotation latency for percentile
	// queries.
	GetAnnotationLatencyHistogram() LatencyHistogram

	// GetCurrentStats returns an aggregate snapshot.
	GetCurrentStats() IntelligenceStats
}

// LatencyHistogram answers percentile queries over observed latencies.
type LatencyHistogram interface {
	Observe(durationMs float64)
	Percentile(p float64) float64
	Count() int64
	Sum() float64
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

type prometheusIntelligenceMetrics struct {
	annotationDuration *prometheus.HistogramVec
	annotationTotal    *prometheus.CounterVec
	annotationTokens   *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	rejectionTotal     *prometheus.CounterVec
	batchItems         *prometheus.CounterVec
	batchDuration      *prometheus.HistogramVec
	batchConcurrency   *prometheus.GaugeVec
	annotatorLoadTotal *prometheus.CounterVec
	annotatorLoadTime  *prometheus.HistogramVec

	latency *latencyHistogram
}

// NewPrometheusIntelligenceMetrics creates metrics registered on registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewPrometheusIntelligenceMetrics(registerer prometheus.Registerer) (IntelligenceMetrics, error) {
	m := &prometheusIntelligenceMetrics{
		annotationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termforge_intelligence_annotation_duration_ms",
				Help:    "Annotation latency in milliseconds.",
				Buckets: defaultLatencyBuckets,
			},
			[]string{"annotator", "language", "status"},
		),
		annotationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termforge_intelligence_annotation_total",
				Help: "Total Annotate calls.",
			},
			[]string{"annotator", "language", "status", "error_type"},
		),
		annotationTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termforge_intelligence_annotation_tokens_total",
				Help: "Total tokens produced by annotation.",
			},
			[]string{"annotator", "language"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termforge_intelligence_stage_duration_ms",
				Help:    "Pipeline stage latency in milliseconds.",
				Buckets: defaultLatencyBuckets,
			},
			[]string{"stage"},
		),
		rejectionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termforge_intelligence_candidate_rejections_total",
				Help: "Candidates rejected by validation, by reason code.",
			},
			[]string{"reason"},
		),
		batchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termforge_intelligence_batch_items_total",
				Help: "Batch items by outcome.",
			},
			[]string{"batch", "status"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termforge_intelligence_batch_duration_ms",
				Help:    "Whole-batch latency in milliseconds.",
				Buckets: defaultLatencyBuckets,
			},
			[]string{"batch"},
		),
		batchConcurrency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "termforge_intelligence_batch_max_concurrency",
				Help: "Configured max concurrency of the last batch run.",
			},
			[]string{"batch"},
		),
		annotatorLoadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termforge_intelligence_annotator_load_total",
				Help: "Annotator load attempts.",
			},
			[]string{"annotator", "version", "status"},
		),
		annotatorLoadTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termforge_intelligence_annotator_load_duration_ms",
				Help:    "Annotator load latency in milliseconds.",
				Buckets: defaultLatencyBuckets,
			},
			[]string{"annotator"},
		),
		latency: newLatencyHistogram(),
	}

	collectors := []prometheus.Collector{
		m.annotationDuration,
		m.annotationTotal,
		m.annotationTokens,
		m.stageDuration,
		m.rejectionTotal,
		m.batchItems,
		m.batchDuration,
		m.batchConcurrency,
		m.annotatorLoadTotal,
		m.annotatorLoadTime,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *prometheusIntelligenceMetrics) RecordAnnotation(_ context.Context, params AnnotationMetricParams) {
	status := statusLabel(params.Success)
	m.annotationDuration.WithLabelValues(params.AnnotatorName, params.Language, status).Observe(params.DurationMs)
	m.annotationTotal.WithLabelValues(params.AnnotatorName, params.Language, status, params.ErrorType).Inc()
	if params.Success {
		m.annotationTokens.WithLabelValues(params.AnnotatorName, params.Language).Add(float64(params.TokenCount))
	}
	m.latency.Observe(params.DurationMs)
}

func (m *prometheusIntelligenceMetrics) RecordStageDuration(_ context.Context, stage string, durationMs float64) {
	m.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

func (m *prometheusIntelligenceMetrics) RecordRejection(_ context.Context, reasonCode string) {
	m.rejectionTotal.WithLabelValues(reasonCode).Inc()
}

func (m *prometheusIntelligenceMetrics) RecordBatchProcessing(_ context.Context, params BatchMetricParams) {
	m.batchItems.WithLabelValues(params.BatchName, "success").Add(float64(params.SuccessItems))
	m.batchItems.WithLabelValues(params.BatchName, "failed").Add(float64(params.FailedItems))
	m.batchItems.WithLabelValues(params.BatchName, "timeout").Add(float64(params.TimeoutItems))
	m.batchItems.WithLabelValues(params.BatchName, "cancelled").Add(float64(params.CancelledItems))
	m.batchDuration.WithLabelValues(params.BatchName).Observe(params.TotalDurationMs)
	m.batchConcurrency.WithLabelValues(params.BatchName).Set(float64(params.MaxConcurrency))
}

func (m *prometheusIntelligenceMetrics) RecordAnnotatorLoad(_ context.Context, name, version string, durationMs float64, success bool) {
	m.annotatorLoadTotal.WithLabelValues(name, version, statusLabel(success)).Inc()
	m.annotatorLoadTime.WithLabelValues(name).Observe(durationMs)
}

func (m *prometheusIntelligenceMetrics) GetAnnotationLatencyHistogram() LatencyHistogram {
	return m.latency
}

func (m *prometheusIntelligenceMetrics) GetCurrentStats() IntelligenceStats {
	return IntelligenceStats{}
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopIntelligenceMetrics struct {
	latency *latencyHistogram
}

// NewNoopIntelligenceMetrics returns a metrics sink that discards everything
// except the latency histogram, which stays functional for tests.
func NewNoopIntelligenceMetrics() IntelligenceMetrics {
	return &noopIntelligenceMetrics{latency: newLatencyHistogram()}
}

func (m *noopIntelligenceMetrics) RecordAnnotation(_ context.Context, params AnnotationMetricParams) {
	m.latency.Observe(params.DurationMs)
}

func (m *noopIntelligenceMetrics) RecordStageDuration(context.Context, string, float64) {}

func (m *noopIntelligenceMetrics) RecordRejection(context.Context, string) {}

func (m *noopIntelligenceMetrics) RecordBatchProcessing(context.Context, BatchMetricParams) {}

func (m *noopIntelligenceMetrics) RecordAnnotatorLoad(context.Context, string, string, float64, bool) {
}

func (m *noopIntelligenceMetrics) GetAnnotationLatencyHistogram() LatencyHistogram {
	return m.latency
}

func (m *noopIntelligenceMetrics) GetCurrentStats() IntelligenceStats {
	return IntelligenceStats{}
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type inMemoryIntelligenceMetrics struct {
	mu sync.RWMutex

	totalAnnotations      int64
	successfulAnnotations int64
	failedAnnotations     int64
	totalTokens           int64
	totalRejections       int64
	rejectionsByReason    map[string]int64
	stageDurations        map[string][]float64
	batchRuns             []BatchMetricParams
	loadAttempts          int64
	loadFailures          int64

	latency *latencyHistogram
}

// NewInMemoryIntelligenceMetrics returns a metrics sink holding everything in
// process memory. Intended for tests and the CLI, where no scrape backend
// exists.
func NewInMemoryIntelligenceMetrics() IntelligenceMetrics {
	return &inMemoryIntelligenceMetrics{
		rejectionsByReason: make(map[string]int64),
		stageDurations:     make(map[string][]float64),
		latency:            newLatencyHistogram(),
	}
}

func (m *inMemoryIntelligenceMetrics) RecordAnnotation(_ context.Context, params AnnotationMetricParams) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalAnnotations++
	if params.Success {
		m.successfulAnnotations++
		m.totalTokens += int64(params.TokenCount)
	} else {
		m.failedAnnotations++
	}
	m.latency.Observe(params.DurationMs)
}

func (m *inMemoryIntelligenceMetrics) RecordStageDuration(_ context.Context, stage string, durationMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageDurations[stage] = append(m.stageDurations[stage], durationMs)
}

func (m *inMemoryIntelligenceMetrics) RecordRejection(_ context.Context, reasonCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRejections++
	m.rejectionsByReason[reasonCode]++
}

func (m *inMemoryIntelligenceMetrics) RecordBatchProcessing(_ context.Context, params BatchMetricParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchRuns = append(m.batchRuns, params)
}

func (m *inMemoryIntelligenceMetrics) RecordAnnotatorLoad(_ context.Context, _, _ string, _ float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadAttempts++
	if !success {
		m.loadFailures++
	}
}

func (m *inMemoryIntelligenceMetrics) GetAnnotationLatencyHistogram() LatencyHistogram {
	return m.latency
}

func (m *inMemoryIntelligenceMetrics) GetCurrentStats() IntelligenceStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := IntelligenceStats{
		TotalAnnotations:      m.totalAnnotations,
		SuccessfulAnnotations: m.successfulAnnotations,
		FailedAnnotations:     m.failedAnnotations,
		TotalTokens:           m.totalTokens,
		TotalRejections:       m.totalRejections,
		RejectionsByReason:    make(map[string]int64, len(m.rejectionsByReason)),
	}
	for reason, count := range m.rejectionsByReason {
		stats.RejectionsByReason[reason] = count
	}
	if n := m.latency.Count(); n > 0 {
		stats.AvgAnnotationMs = m.latency.Sum() / float64(n)
		stats.P95AnnotationMs = m.latency.Percentile(95)
	}
	return stats
}

// StageDurations returns recorded durations per stage. Test helper.
func (m *inMemoryIntelligenceMetrics) StageDurations(stage string) []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]float64, len(m.stageDurations[stage]))
	copy(out, m.stageDurations[stage])
	return out
}

// BatchRuns returns recorded batch outcomes. Test helper.
func (m *inMemoryIntelligenceMetrics) BatchRuns() []BatchMetricParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]BatchMetricParams, len(m.batchRuns))
	copy(out, m.batchRuns)
	return out
}

// LoadAttempts returns (attempts, failures). Test helper.
func (m *inMemoryIntelligenceMetrics) LoadAttempts() (int64, int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadAttempts, m.loadFailures
}

// ---------------------------------------------------------------------------
// Latency histogram
// ---------------------------------------------------------------------------

type latencyHistogram struct {
	mu     sync.RWMutex
	values []float64
	sorted bool
	sum    float64
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{values: make([]float64, 0, 1024)}
}

func (h *latencyHistogram) Observe(durationMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, durationMs)
	h.sum += durationMs
	h.sorted = false
}

// Percentile returns the p-th percentile (0 < p <= 100) using linear
// interpolation between closest ranks.
func (h *latencyHistogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.values)
	if n == 0 {
		return 0
	}
	if !h.sorted {
		sort.Float64s(h.values)
		h.sorted = true
	}
	if p <= 0 {
		return h.values[0]
	}
	if p >= 100 {
		return h.values[n-1]
	}

	rank := p / 100 * float64(n-1)
	lower := int(rank)
	frac := rank - float64(lower)
	if lower+1 >= n {
		return h.values[n-1]
	}
	return h.values[lower] + frac*(h.values[lower+1]-h.values[lower])
}

func (h *latencyHistogram) Count() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return int64(len(h.values))
}

func (h *latencyHistogram) Sum() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sum
}

// ---------------------------------------------------------------------------
// Compile-time checks
// ---------------------------------------------------------------------------

var (
	_ IntelligenceMetrics = (*prometheusIntelligenceMetrics)(nil)
	_ IntelligenceMetrics = (*noopIntelligenceMetrics)(nil)
	_ IntelligenceMetrics = (*inMemoryIntelligenceMetrics)(nil)
	_ LatencyHistogram    = (*latencyHistogram)(nil)
)
