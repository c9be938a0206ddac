// Package def_synth selects definition sentences for extracted glossary
// terms. It matches definitional patterns ("X is ...", "X means ...",
// "X refers to ...", "X: ...", "X (...)") against the sentences a term
// occurs in and keeps the match with the highest pattern prior. Terms
// without any pattern match fall back to their most information-dense
// context windows, tagged as snippets rather than definitions.
package def_synth

import (
	"context"
	"sort"
	"time"

	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/term_extractor"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Definition is one definition candidate for a term. Field semantics match
// glossary.DefinitionDTO: SourcePattern is empty and Confidence zero when
// IsContextSnippet is set.
type Definition struct {
	Text             string
	SourcePattern    string
	Confidence       float64
	IsContextSnippet bool
	PageNumber       int
}

// Fuser merges several definitional sentences for the same term into a
// single statement. The default pipeline runs without one; the hook exists
// so a model-backed summarizer can be plugged in.
type Fuser interface {
	Fuse(ctx context.Context, term string, sentences []string) (string, error)
}

// Config controls definition synthesis.
type Config struct {
	// MaxSnippets caps how many context windows a term without a pattern
	// match may keep.
	MaxSnippets int
}

// DefaultConfig returns the synthesis defaults.
func DefaultConfig() Config {
	return Config{MaxSnippets: 2}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxSnippets < 1 {
		return errors.Newf(errors.ErrCodePipelineConfigInvalid,
			"max snippets must be at least 1, got %d", c.MaxSnippets)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Synthesizer
// ---------------------------------------------------------------------------

// DefinitionSynthesizer turns term occurrences into definitions.
type DefinitionSynthesizer struct {
	config  Config
	fuser   Fuser
	logger  common.Logger
	metrics common.IntelligenceMetrics
}

// NewDefinitionSynthesizer builds a synthesizer without sentence fusion.
func NewDefinitionSynthesizer(config Config, logger common.Logger, metrics common.IntelligenceMetrics) (*DefinitionSynthesizer, error) {
	return NewDefinitionSynthesizerWithFuser(config, nil, logger, metrics)
}

// NewDefinitionSynthesizerWithFuser builds a synthesizer that asks fuser to
// merge multiple matched sentences for the same term. A nil fuser keeps the
// single best sentence.
func NewDefinitionSynthesizerWithFuser(config Config, fuser Fuser, logger common.Logger, metrics common.IntelligenceMetrics) (*DefinitionSynthesizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.NewNoopLogger()
	}
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}
	return &DefinitionSynthesizer{
		config:  config,
		fuser:   fuser,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Synthesize produces definitions for every term, aligned by index with the
// input slice. Each term yields either one pattern-matched definition or up
// to MaxSnippets context snippets, best first.
func (s *DefinitionSynthesizer) Synthesize(ctx context.Context, terms []term_extractor.Term, annotations []term_extractor.PageAnnotation) [][]Definition {
	started := time.Now()

	pages := make(map[int]*common.Annotation, len(annotations))
	for _, pa := range annotations {
		pages[pa.PageNumber] = pa.Annotation
	}

	out := make([][]Definition, len(terms))
	defined, snippets := 0, 0
	for i, term := range terms {
		out[i] = s.synthesizeTerm(ctx, term, pages)
		if len(out[i]) > 0 {
			if out[i][0].IsContextSnippet {
				snippets++
			} else {
				defined++
			}
		}
	}

	s.metrics.RecordStageDuration(ctx, "define", float64(time.Since(started).Microseconds())/1000.0)
	s.logger.Info("definition synthesis complete",
		"terms", len(terms),
		"pattern_defined", defined,
		"snippet_fallback", snippets,
	)
	return out
}

// synthesizeTerm picks the best definition for one term.
func (s *DefinitionSynthesizer) synthesizeTerm(ctx context.Context, term term_extractor.Term, pages map[int]*common.Annotation) []Definition {
	patterns := buildTermPatterns(term.Text)

	var best *Definition
	var matchedSentences []string
	for _, occ := range term.Occurrences {
		sentence := s.sourceSentence(occ, pages)
		if sentence == "" {
			continue
		}
		for _, p := range patterns {
			m := p.re.FindStringSubmatchIndex(sentence)
			if m == nil {
				continue
			}
			matchedSentences = append(matchedSentences, sentence)
			if best == nil || p.prior > best.Confidence {
				best = &Definition{
					Text:          p.pick(sentence, m),
					SourcePattern: p.name,
					Confidence:    p.prior,
					PageNumber:    occ.PageNumber,
				}
			}
			// Patterns are ordered by prior, so later ones cannot beat
			// this sentence's match.
			break
		}
	}

	if best != nil {
		if s.fuser != nil && len(matchedSentences) > 1 {
			fused, err := s.fuser.Fuse(ctx, term.Text, matchedSentences)
			if err != nil {
				s.logger.Warn("sentence fusion failed, keeping best single sentence",
					"term", term.Text, "error", err)
			} else if fused != "" {
				best.Text = fused
				best.SourcePattern = PatternFused
			}
		}
		return []Definition{*best}
	}
	return s.snippetFallback(term)
}

// sourceSentence resolves the sentence an occurrence sits in, falling back
// to the stored context window when no annotation covers the page.
func (s *DefinitionSynthesizer) sourceSentence(occ term_extractor.Occurrence, pages map[int]*common.Annotation) string {
	if ann := pages[occ.PageNumber]; ann != nil {
		if sent := ann.SentenceAt(occ.Offset); sent != nil {
			return sent.Text
		}
	}
	return occ.Context
}

// snippetFallback keeps the most information-dense context windows of a
// term that matched no definitional pattern.
func (s *DefinitionSynthesizer) snippetFallback(term term_extractor.Term) []Definition {
	type scored struct {
		text  string
		page  int
		score int
	}

	seen := make(map[string]bool, len(term.Occurrences))
	var windows []scored
	for _, occ := range term.Occurrences {
		if occ.Context == "" || seen[occ.Context] {
			continue
		}
		seen[occ.Context] = true
		windows = append(windows, scored{
			text:  occ.Context,
			page:  occ.PageNumber,
			score: densityScore(occ.Context),
		})
	}
	if len(windows) == 0 {
		return nil
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].score > windows[j].score
	})
	if len(windows) > s.config.MaxSnippets {
		windows = windows[:s.config.MaxSnippets]
	}

	out := make([]Definition, len(windows))
	for i, w := range windows {
		out[i] = Definition{
			Text:             w.text,
			IsContextSnippet: true,
			PageNumber:       w.page,
		}
	}
	return out
}
