package common

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrAnnotatorNotFound      = errors.New("annotator not found")
	ErrAnnotatorAlreadyExists = errors.New("annotator already registered")
	ErrNilAnnotator           = errors.New("annotator is nil")
	ErrAnnotatorLoadFailed    = errors.New("annotator load failed")
	ErrRegistryClosed         = errors.New("registry is closed")
)

// ---------------------------------------------------------------------------
// AnnotatorRegistry interface
// ---------------------------------------------------------------------------

// AnnotatorRegistry manages the process-wide set of loaded annotators. The
// registry is an explicit handle owned by the caller and passed into pipeline
// constructors; registered annotators are read-only after registration and
// safe to share across concurrent extraction runs.
type AnnotatorRegistry interface {
	// Register adds a ready annotator under its name and language.
	Register(ctx context.Context, info AnnotatorInfo, annotator Annotator) error

	// LoadAndRegister runs loader and registers its result. A loader failure
	// is reported but leaves the registry unchanged, so callers can fall back
	// to pattern extraction.
	LoadAndRegister(ctx context.Context, info AnnotatorInfo, loader AnnotatorLoader) error

	// Resolve returns the annotator registered under name and language.
	Resolve(ctx context.Context, name, language string) (Annotator, error)

	// ResolveForLanguage returns any annotator for language, preferring the
	// earliest registered.
	ResolveForLanguage(ctx context.Context, language string) (Annotator, error)

	// Unregister removes an annotator.
	Unregister(ctx context.Context, name, language string) error

	// List returns descriptors of all registered annotators, sorted by key.
	List(ctx context.Context) []AnnotatorInfo

	// HealthCheck probes every registered annotator with a trivial input.
	HealthCheck(ctx context.Context) (*RegistryHealth, error)

	// Close rejects further registration and resolution.
	Close() error
}

// AnnotatorLoader constructs an annotator, typically from lexicon files or
// embedded resources. Loaders may be slow; they run at registration time,
// never during extraction.
type AnnotatorLoader func(ctx context.Context) (Annotator, error)

// RegistryHealth is a point-in-time snapshot of registry state.
type RegistryHealth struct {
	TotalAnnotators int                         `json:"total_annotators"`
	Healthy         int                         `json:"healthy"`
	Unhealthy       int                         `json:"unhealthy"`
	Annotators      map[string]*AnnotatorHealth `json:"annotators"`
}

// AnnotatorHealth is the probe outcome for a single annotator.
type AnnotatorHealth struct {
	Info      AnnotatorInfo `json:"info"`
	Healthy   bool          `json:"healthy"`
	Error     string        `json:"error,omitempty"`
	LatencyMs float64       `json:"latency_ms"`
	CheckedAt time.Time     `json:"checked_at"`
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type registryEntry struct {
	info         AnnotatorInfo
	annotator    Annotator
	registeredAt time.Time
	seq          int
}

type annotatorRegistry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	nextSeq int
	closed  bool

	metrics IntelligenceMetrics
	logger  Logger
}

// NewAnnotatorRegistry creates an empty registry. metrics and logger may be
// nil; noop implementations are substituted.
func NewAnnotatorRegistry(metrics IntelligenceMetrics, logger Logger) AnnotatorRegistry {
	if metrics == nil {
		metrics = NewNoopIntelligenceMetrics()
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	return &annotatorRegistry{
		entries: make(map[string]*registryEntry),
		metrics: metrics,
		logger:  logger,
	}
}

func registryKey(name, language string) string {
	return name + "@" + strings.ToLower(language)
}

func (r *annotatorRegistry) Register(_ context.Context, info AnnotatorInfo, annotator Annotator) error {
	if annotator == nil {
		return ErrNilAnnotator
	}
	if info.Name == "" {
		info.Name = annotator.Name()
	}
	if info.Language == "" {
		info.Language = annotator.Language()
	}
	key := info.Key()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.entries[key]; exists {
		return ErrAnnotatorAlreadyExists
	}
	r.entries[key] = &registryEntry{
		info:         info,
		annotator:    annotator,
		registeredAt: time.Now().UTC(),
		seq:          r.nextSeq,
	}
	r.nextSeq++

	r.logger.Info("annotator registered", "name", info.Name, "language", info.Language, "version", info.Version)
	return nil
}

func (r *annotatorRegistry) LoadAndRegister(ctx context.Context, info AnnotatorInfo, loader AnnotatorLoader) error {
	if loader == nil {
		return ErrNilAnnotator
	}

	start := time.Now()
	annotator, err := loader(ctx)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		r.metrics.RecordAnnotatorLoad(ctx, info.Name, info.Version, durationMs, false)
		r.logger.Warn("annotator load failed", "name", info.Name, "language", info.Language, "error", err)
		return errors.Join(ErrAnnotatorLoadFailed, err)
	}

	r.metrics.RecordAnnotatorLoad(ctx, info.Name, info.Version, durationMs, true)
	return r.Register(ctx, info, annotator)
}

func (r *annotatorRegistry) Resolve(_ context.Context, name, language string) (Annotator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	entry, ok := r.entries[registryKey(name, language)]
	if !ok {
		return nil, ErrAnnotatorNotFound
	}
	return entry.annotator, nil
}

func (r *annotatorRegistry) ResolveForLanguage(_ context.Context, language string) (Annotator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	language = strings.ToLower(language)
	var best *registryEntry
	for _, entry := range r.entries {
		if strings.ToLower(entry.info.Language) != language {
			continue
		}
		if best == nil || entry.seq < best.seq {
			best = entry
		}
	}
	if best == nil {
		return nil, ErrAnnotatorNotFound
	}
	return best.annotator, nil
}

func (r *annotatorRegistry) Unregister(_ context.Context, name, language string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	key := registryKey(name, language)
	if _, ok := r.entries[key]; !ok {
		return ErrAnnotatorNotFound
	}
	delete(r.entries, key)
	r.logger.Info("annotator unregistered", "name", name, "language", language)
	return nil
}

func (r *annotatorRegistry) List(_ context.Context) []AnnotatorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]AnnotatorInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		infos = append(infos, entry.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Key() < infos[j].Key()
	})
	return infos
}

// healthProbeText is short enough to annotate in microseconds but exercises
// tokenization, tagging and sentence splitting.
const healthProbeText = "The probe sentence checks the annotator."

func (r *annotatorRegistry) HealthCheck(ctx context.Context) (*RegistryHealth, error) {
	r.mu.RLock()
	entries := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	closed := r.closed
	r.mu.RUnlock()

	if closed {
		return nil, ErrRegistryClosed
	}

	health := &RegistryHealth{
		TotalAnnotators: len(entries),
		Annotators:      make(map[string]*AnnotatorHealth, len(entries)),
	}

	for _, entry := range entries {
		start := time.Now()
		_, err := entry.annotator.Annotate(ctx, healthProbeText)
		probe := &AnnotatorHealth{
			Info:      entry.info,
			Healthy:   err == nil,
			LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
			CheckedAt: time.Now().UTC(),
		}
		if err != nil {
			probe.Error = err.Error()
			health.Unhealthy++
		} else {
			health.Healthy++
		}
		health.Annotators[entry.info.Key()] = probe
	}

	return health, nil
}

func (r *annotatorRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.entries = make(map[string]*registryEntry)
	return nil
}

var _ AnnotatorRegistry = (*annotatorRegistry)(nil)
