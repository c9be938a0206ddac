package common

import (
	"context"
	stdliberrors "errors"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Sentinel errors and item status
// ---------------------------------------------------------------------------

var (
	// ErrShutdown is returned when Process is called after Shutdown.
	ErrShutdown = stdliberrors.New("batch processor is shut down")

	// ErrBackpressure is returned when pending items exceed the configured
	// threshold.
	ErrBackpressure = stdliberrors.New("batch processor is saturated")
)

// ItemStatus is the terminal state of one batch item.
type ItemStatus int

const (
	ItemStatusSuccess ItemStatus = iota
	ItemStatusFailed
	ItemStatusTimeout
	ItemStatusCancelled
)

func (s ItemStatus) String() string {
	switch s {
	case ItemStatusSuccess:
		return "success"
	case ItemStatusFailed:
		return "failed"
	case ItemStatusTimeout:
		return "timeout"
	case ItemStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Public types
// ---------------------------------------------------------------------------

// ProcessFunc handles a single item. It must be safe for concurrent calls.
type ProcessFunc[T any, R any] func(ctx context.Context, item T) (R, error)

// ItemResult is the outcome of one item, tagged with its input index.
type ItemResult[R any] struct {
	Index      int
	Result     R
	Error      error
	DurationMs float64
	Status     ItemStatus
}

// BatchResult aggregates a whole batch run. Results are ordered by input
// index regardless of completion order.
type BatchResult[R any] struct {
	Results         []ItemResult[R]
	TotalItems      int
	SuccessItems    int
	FailedItems     int
	TimeoutItems    int
	CancelledItems  int
	TotalDurationMs float64
}

// Succeeded reports whether every item completed successfully.
func (r *BatchResult[R]) Succeeded() bool {
	return r.SuccessItems == r.TotalItems
}

// BatchProcessor fans a slice of items out to fn under a concurrency limit.
// Used to annotate document pages and to run extraction over document sets.
type BatchProcessor[T any, R any] interface {
	// Process runs fn over items and blocks until all items reach a terminal
	// status or ctx is cancelled.
	Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error)

	// Shutdown stops accepting new batches and waits for in-flight items.
	Shutdown(ctx context.Context) error
}

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

// RetryPolicy controls per-item retries inside a batch.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Retryable decides whether an error is worth retrying. Nil means no
	// error is retried.
	Retryable func(error) bool
}

func (p *RetryPolicy) shouldRetry(attempt int, err error) bool {
	if p == nil || p.Retryable == nil || err == nil {
		return false
	}
	if attempt >= p.MaxRetries {
		return false
	}
	return p.Retryable(err)
}

// calculateBackoff returns the wait before the given retry attempt, with
// ±25% jitter so concurrent retries do not align.
func (p *RetryPolicy) calculateBackoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if max := float64(p.MaxBackoff); p.MaxBackoff > 0 && backoff > max {
		backoff = max
	}
	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(backoff * jitter)
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type batchConfig struct {
	maxConcurrency        int
	itemTimeout           time.Duration
	batchTimeout          time.Duration
	retryPolicy           *RetryPolicy
	backpressureThreshold int
	batchName             string
	metrics               IntelligenceMetrics
	logger                Logger
}

// BatchOption customizes a batch processor.
type BatchOption func(*batchConfig)

// WithMaxConcurrency caps simultaneously processing items. Defaults to
// runtime.NumCPU().
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithItemTimeout bounds each item, retries included per attempt.
func WithItemTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.itemTimeout = d
		}
	}
}

// WithBatchTimeout bounds the whole batch.
func WithBatchTimeout(d time.Duration) BatchOption {
	return func(c *batchConfig) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

// WithRetryPolicy retries transient failures with exponential backoff.
func WithRetryPolicy(maxRetries int, initialBackoff time.Duration, retryable func(error) bool) BatchOption {
	return func(c *batchConfig) {
		c.retryPolicy = &RetryPolicy{
			MaxRetries:     maxRetries,
			InitialBackoff: initialBackoff,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
			Retryable:      retryable,
		}
	}
}

// WithRetryPolicyFull installs a fully specified policy.
func WithRetryPolicyFull(policy RetryPolicy) BatchOption {
	return func(c *batchConfig) {
		c.retryPolicy = &policy
	}
}

// WithBackpressureThreshold rejects new batches once pending items exceed n.
func WithBackpressureThreshold(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.backpressureThreshold = n
		}
	}
}

// WithBatchName labels metrics emitted by this processor.
func WithBatchName(name string) BatchOption {
	return func(c *batchConfig) {
		if name != "" {
			c.batchName = name
		}
	}
}

// WithBatchMetrics attaches a metrics sink.
func WithBatchMetrics(m IntelligenceMetrics) BatchOption {
	return func(c *batchConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithBatchLogger attaches a logger.
func WithBatchLogger(l Logger) BatchOption {
	return func(c *batchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type batchProcessor[T any, R any] struct {
	config batchConfig

	pendingCount atomic.Int64
	shutdown     atomic.Bool
	shutdownOnce sync.Once
	activeWg     sync.WaitGroup
}

// NewBatchProcessor creates a processor with the given options applied over
// defaults.
func NewBatchProcessor[T any, R any](opts ...BatchOption) BatchProcessor[T, R] {
	config := batchConfig{
		maxConcurrency:        runtime.NumCPU(),
		itemTimeout:           60 * time.Second,
		backpressureThreshold: 10000,
		batchName:             "default",
		metrics:               NewNoopIntelligenceMetrics(),
		logger:                NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &batchProcessor[T, R]{config: config}
}

func (p *batchProcessor[T, R]) Process(ctx context.Context, items []T, fn ProcessFunc[T, R]) (*BatchResult[R], error) {
	if fn == nil {
		return nil, errors.InvalidParam("process function is nil")
	}
	if p.shutdown.Load() {
		return nil, ErrShutdown
	}
	if len(items) == 0 {
		return &BatchResult[R]{Results: []ItemResult[R]{}}, nil
	}

	pending := p.pendingCount.Add(int64(len(items)))
	if pending > int64(p.config.backpressureThreshold) {
		p.pendingCount.Add(-int64(len(items)))
		return nil, ErrBackpressure
	}
	defer p.pendingCount.Add(-int64(len(items)))

	if p.config.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.batchTimeout)
		defer cancel()
	}

	start := time.Now()
	semaphore := make(chan struct{}, p.config.maxConcurrency)
	resultCh := make(chan ItemResult[R], len(items))

	p.activeWg.Add(len(items))
	for i, item := range items {
		go func(index int, item T) {
			defer p.activeWg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				resultCh <- ItemResult[R]{
					Index:  index,
					Error:  ctx.Err(),
					Status: classifyCtxError(ctx.Err()),
				}
				return
			}

			resultCh <- p.processOneItem(ctx, index, item, fn)
		}(i, item)
	}

	results := make([]ItemResult[R], 0, len(items))
	for range items {
		results = append(results, <-resultCh)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	batchResult := buildBatchResult(results, msSince(start))
	p.config.metrics.RecordBatchProcessing(ctx, BatchMetricParams{
		BatchName:         p.config.batchName,
		TotalItems:        batchResult.TotalItems,
		SuccessItems:      batchResult.SuccessItems,
		FailedItems:       batchResult.FailedItems,
		TimeoutItems:      batchResult.TimeoutItems,
		CancelledItems:    batchResult.CancelledItems,
		TotalDurationMs:   batchResult.TotalDurationMs,
		AvgItemDurationMs: batchResult.TotalDurationMs / float64(batchResult.TotalItems),
		MaxConcurrency:    p.config.maxConcurrency,
	})

	if batchResult.FailedItems+batchResult.TimeoutItems > 0 {
		p.config.logger.Warn("batch completed with failures",
			"batch", p.config.batchName,
			"total", batchResult.TotalItems,
			"failed", batchResult.FailedItems,
			"timeout", batchResult.TimeoutItems,
		)
	}

	return batchResult, nil
}

func (p *batchProcessor[T, R]) processOneItem(ctx context.Context, index int, item T, fn ProcessFunc[T, R]) ItemResult[R] {
	start := time.Now()

	var (
		result R
		err    error
	)

	for attempt := 0; ; attempt++ {
		itemCtx := ctx
		var cancel context.CancelFunc
		if p.config.itemTimeout > 0 {
			itemCtx, cancel = context.WithTimeout(ctx, p.config.itemTimeout)
		}

		result, err = fn(itemCtx, item)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			return ItemResult[R]{
				Index:      index,
				Result:     result,
				DurationMs: msSince(start),
				Status:     ItemStatusSuccess,
			}
		}

		// The batch context ending is terminal; only per-item errors retry.
		if ctx.Err() != nil {
			break
		}
		if !p.config.retryPolicy.shouldRetry(attempt, err) {
			break
		}

		backoff := p.config.retryPolicy.calculateBackoff(attempt)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			err = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}

	return ItemResult[R]{
		Index:      index,
		Error:      err,
		DurationMs: msSince(start),
		Status:     classifyError(ctx, err),
	}
}

func (p *batchProcessor[T, R]) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdown.Store(true)
	})

	done := make(chan struct{})
	go func() {
		p.activeWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func buildBatchResult[R any](results []ItemResult[R], totalDurationMs float64) *BatchResult[R] {
	batchResult := &BatchResult[R]{
		Results:         results,
		TotalItems:      len(results),
		TotalDurationMs: totalDurationMs,
	}
	for _, r := range results {
		switch r.Status {
		case ItemStatusSuccess:
			batchResult.SuccessItems++
		case ItemStatusTimeout:
			batchResult.TimeoutItems++
		case ItemStatusCancelled:
			batchResult.CancelledItems++
		default:
			batchResult.FailedItems++
		}
	}
	return batchResult
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func classifyCtxError(err error) ItemStatus {
	if stdliberrors.Is(err, context.DeadlineExceeded) {
		return ItemStatusTimeout
	}
	return ItemStatusCancelled
}

func classifyError(ctx context.Context, err error) ItemStatus {
	if err == nil {
		return ItemStatusSuccess
	}
	if stdliberrors.Is(err, context.DeadlineExceeded) {
		return ItemStatusTimeout
	}
	if stdliberrors.Is(err, context.Canceled) {
		if ctx.Err() != nil {
			return ItemStatusCancelled
		}
		return ItemStatusFailed
	}
	return ItemStatusFailed
}

var _ BatchProcessor[string, int] = (*batchProcessor[string, int])(nil)
