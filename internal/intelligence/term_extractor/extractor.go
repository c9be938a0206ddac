package term_extractor

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/document"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ---------------------------------------------------------------------------
// Candidate extraction
// ---------------------------------------------------------------------------

// CandidateExtractor turns one normalized page into raw candidates. Two
// strategies exist and are never combined within a run: the linguistic
// strategy reads noun chunks and entity spans from an annotation, the
// pattern strategy scans plain text with regular expressions. Both bound
// candidates to the configured length range before emitting them.
type CandidateExtractor struct {
	config Config
}

func NewCandidateExtractor(config Config) *CandidateExtractor {
	return &CandidateExtractor{config: config}
}

// FromAnnotation extracts candidates from a linguistic annotation: every
// noun chunk, with its leading determiner dropped, and every entity span.
func (e *CandidateExtractor) FromAnnotation(pageNumber int, ann *common.Annotation) []RawCandidate {
	candidates := make([]RawCandidate, 0, len(ann.NounChunks)+len(ann.Entities))
	for i := range ann.NounChunks {
		chunk := &ann.NounChunks[i]
		text, offset := chunkTermSpan(chunk, ann.Text)
		if text == "" {
			continue
		}
		candidates = append(candidates, RawCandidate{
			Text:       text,
			PageNumber: pageNumber,
			Offset:     offset,
			Source:     SourceNounChunk,
			HeadPOS:    chunk.HeadPOS,
		})
	}
	for _, ent := range ann.Entities {
		candidates = append(candidates, RawCandidate{
			Text:       ent.Text,
			PageNumber: pageNumber,
			Offset:     ent.Start,
			Source:     SourceEntity,
		})
	}
	return e.boundByLength(candidates)
}

// FromText extracts candidates with the pattern strategy. Lower precision
// than FromAnnotation; used when no annotator is available.
func (e *CandidateExtractor) FromText(pageNumber int, text string) []RawCandidate {
	return e.boundByLength(scanPatternCandidates(text, pageNumber))
}

// chunkTermSpan returns the chunk's term text with leading determiners
// removed, plus the byte offset where the term starts.
func chunkTermSpan(chunk *common.NounChunk, annotated string) (string, int) {
	i := 0
	for i < len(chunk.Tokens) && chunk.Tokens[i].POS == common.POSDeterminer {
		i++
	}
	if i >= len(chunk.Tokens) {
		return "", 0
	}
	start := chunk.Tokens[i].Start
	return annotated[start:chunk.End], start
}

func (e *CandidateExtractor) boundByLength(candidates []RawCandidate) []RawCandidate {
	out := candidates[:0]
	for _, c := range candidates {
		n := utf8.RuneCountInString(c.Text)
		if n < e.config.MinTermLength || n > e.config.MaxTermLength {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedupeCandidates keeps the first candidate for each case-folded,
// whitespace-collapsed text. Later occurrences of the same surface form add
// nothing at this stage; the aggregator finds every occurrence by re-scanning
// the pages.
func dedupeCandidates(candidates []RawCandidate) []RawCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]RawCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.Join(strings.Fields(c.Text), " "))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// ---------------------------------------------------------------------------
// Pipeline orchestrator
// ---------------------------------------------------------------------------

// TermExtractor runs the full extraction pipeline for one document:
// normalize pages, annotate, extract candidates, validate, aggregate. The
// extraction strategy is fixed at construction: with an annotator the
// pipeline runs linguistically, without one it falls back to patterns. A run
// is all or nothing per document; no partial results are ever returned.
type TermExtractor struct {
	config     Config
	method     glossary.ExtractionMethod
	annotator  common.Annotator
	normalizer *TextNormalizer
	extractor  *CandidateExtractor
	validator  *TermValidator
	aggregator *FrequencyAggregator
	logger     common.Logger
	metrics    common.IntelligenceMetrics
}

// NewTermExtractor builds the pipeline. A nil annotator is not an error: the
// pipeline degrades to pattern extraction and says so in the log.
func NewTermExtractor(config Config, annotator common.Annotator, logger common.Logger, metrics common.IntelligenceMetrics) (*TermExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.NewNoopLogger()
	}
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}

	validator, err := NewTermValidator(config, logger, metrics)
	if err != nil {
		return nil, err
	}

	method := glossary.MethodLinguistic
	if annotator == nil {
		method = glossary.MethodPattern
		logger.Warn("no annotator available, falling back to pattern extraction",
			"language", config.Language)
	}

	return &TermExtractor{
		config:     config,
		method:     method,
		annotator:  annotator,
		normalizer: NewTextNormalizer(),
		extractor:  NewCandidateExtractor(config),
		validator:  validator,
		aggregator: NewFrequencyAggregator(config, method),
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Method reports the extraction strategy selected at construction.
func (p *TermExtractor) Method() glossary.ExtractionMethod {
	return p.method
}

// ExtractTerms runs the pipeline over page-ordered document text. Empty or
// whitespace-only pages are skipped with zero candidates. The returned
// annotations are page-aligned inputs for downstream definition and
// relationship extraction.
func (p *TermExtractor) ExtractTerms(ctx context.Context, pages []document.PageText) (*Result, error) {
	started := time.Now()
	stats := Stats{
		Method:             p.method,
		RejectionsByReason: make(map[ReasonCode]int),
	}

	// Normalize.
	stageStart := time.Now()
	normalized := make([]document.PageText, 0, len(pages))
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		text, repairs := p.normalizer.Normalize(page.Text)
		stats.NormalizerRepairs += repairs
		stats.PagesProcessed++
		normalized = append(normalized, document.PageText{
			PageNumber: page.PageNumber,
			Text:       text,
		})
	}
	p.metrics.RecordStageDuration(ctx, "normalize", msSinceStage(stageStart))

	// Annotate and extract candidates.
	stageStart = time.Now()
	var annotations []PageAnnotation
	var candidates []RawCandidate
	for _, page := range normalized {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePipelineExtractionFailed,
				"extraction cancelled")
		}
		if p.annotator != nil {
			ann, err := p.annotator.Annotate(ctx, page.Text)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodePipelineExtractionFailed,
					"annotating page failed")
			}
			annotations = append(annotations, PageAnnotation{
				PageNumber: page.PageNumber,
				Annotation: ann,
			})
			candidates = append(candidates, p.extractor.FromAnnotation(page.PageNumber, ann)...)
		} else {
			candidates = append(candidates, p.extractor.FromText(page.PageNumber, page.Text)...)
		}
	}
	deduped := dedupeCandidates(candidates)
	stats.CandidatesExtracted = len(deduped)
	p.metrics.RecordStageDuration(ctx, "extract", msSinceStage(stageStart))

	// Validate.
	stageStart = time.Now()
	accepted := make([]AcceptedCandidate, 0, len(deduped))
	for _, c := range deduped {
		verdict := p.validator.Validate(ctx, c)
		if !verdict.Accepted {
			stats.CandidatesRejected++
			for _, reason := range verdict.Reasons {
				stats.RejectionsByReason[reason]++
			}
			continue
		}
		accepted = append(accepted, AcceptedCandidate{Candidate: c, Verdict: verdict})
	}
	p.metrics.RecordStageDuration(ctx, "validate", msSinceStage(stageStart))

	// Aggregate.
	stageStart = time.Now()
	terms := p.aggregator.Aggregate(normalized, accepted)
	p.metrics.RecordStageDuration(ctx, "aggregate", msSinceStage(stageStart))

	stats.TermsAccepted = len(terms)
	stats.DurationMs = msSinceStage(started)

	p.logger.Info("term extraction finished",
		"pages", stats.PagesProcessed,
		"method", string(p.method),
		"candidates", stats.CandidatesExtracted,
		"rejected", stats.CandidatesRejected,
		"terms", stats.TermsAccepted,
		"duration_ms", stats.DurationMs)

	return &Result{
		Terms:       terms,
		Annotations: annotations,
		Stats:       stats,
	}, nil
}

func msSinceStage(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
