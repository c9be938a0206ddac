// Package glossary provides the application services around the term
// extraction pipeline: running it against stored documents, merging its
// output into the glossary, and fanning the results out to the graph and
// the search index.
package glossary

import (
	"context"

	"github.com/lexforge/TermForge-Intelligence/internal/config"
	icommon "github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/def_synth"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/rel_extractor"
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/term_extractor"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

// Pipeline bundles the intelligence components for one language into a single
// runnable unit: term extraction, definition synthesis, and relationship
// extraction over the same page annotations.
type Pipeline struct {
	extractor   *term_extractor.TermExtractor
	synthesizer *def_synth.DefinitionSynthesizer
	relations   *rel_extractor.RelationshipExtractor
	language    string
}

// PipelineResult is the combined output of one pipeline run.  Definitions is
// index-aligned with Terms.
type PipelineResult struct {
	Terms         []term_extractor.Term
	Definitions   [][]def_synth.Definition
	Relationships []rel_extractor.Relationship
	Stats         term_extractor.Stats
	RelationStats rel_extractor.Stats
}

// NewPipeline assembles a pipeline from an already-resolved annotator.  A nil
// annotator yields a pattern-mode pipeline.
func NewPipeline(cfg config.ExtractionConfig, annotator icommon.Annotator, logger icommon.Logger, metrics icommon.IntelligenceMetrics) (*Pipeline, error) {
	extractorCfg := term_extractor.DefaultConfig()
	extractorCfg.Language = cfg.Language
	extractorCfg.MinFrequency = cfg.MinFrequency
	if cfg.MinTermLength > 0 {
		extractorCfg.MinTermLength = cfg.MinTermLength
	}
	if cfg.MaxTermLength > 0 {
		extractorCfg.MaxTermLength = cfg.MaxTermLength
	}
	if cfg.MaxWordCount > 0 {
		extractorCfg.MaxWordCount = cfg.MaxWordCount
	}
	if cfg.ContextWindowChars > 0 {
		extractorCfg.ContextWindowChars = cfg.ContextWindowChars
	}

	extractor, err := term_extractor.NewTermExtractor(extractorCfg, annotator, logger, metrics)
	if err != nil {
		return nil, err
	}

	synthesizer, err := def_synth.NewDefinitionSynthesizer(def_synth.DefaultConfig(), logger, metrics)
	if err != nil {
		return nil, err
	}

	relCfg := rel_extractor.DefaultConfig()
	if cfg.MinRelationshipConfidence > 0 {
		relCfg.MinConfidence = cfg.MinRelationshipConfidence
	}
	relations, err := rel_extractor.NewRelationshipExtractor(relCfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		extractor:   extractor,
		synthesizer: synthesizer,
		relations:   relations,
		language:    extractorCfg.Language,
	}, nil
}

// NewPipelineFromConfig resolves the configured annotation model from the
// registry and assembles the pipeline.  When the model cannot be resolved the
// pipeline degrades to pattern extraction and the degradation is logged.
func NewPipelineFromConfig(ctx context.Context, cfg config.ExtractionConfig, registry icommon.AnnotatorRegistry, logger icommon.Logger, metrics icommon.IntelligenceMetrics) (*Pipeline, error) {
	if logger == nil {
		logger = icommon.NewNoopLogger()
	}
	var annotator icommon.Annotator
	if cfg.Model != "" && registry != nil {
		resolved, err := registry.Resolve(ctx, cfg.Model, cfg.Language)
		if err != nil {
			logger.Warn("annotation model unavailable, degrading to pattern extraction",
				"model", cfg.Model, "language", cfg.Language, "error", err)
		} else {
			annotator = resolved
		}
	}
	return NewPipeline(cfg, annotator, logger, metrics)
}

// Language returns the language the pipeline validates candidates against.
func (p *Pipeline) Language() string {
	return p.language
}

// Method returns the extraction strategy the pipeline was assembled with.
func (p *Pipeline) Method() string {
	return string(p.extractor.Method())
}

// Run executes the full pipeline over the document pages.  Term extraction is
// all-or-nothing; definition synthesis never fails; a relationship extraction
// failure fails the run since partial persistence would leave the graph and
// the glossary disagreeing about the same run.
func (p *Pipeline) Run(ctx context.Context, pages []dtypes.PageText) (*PipelineResult, error) {
	if len(pages) == 0 {
		return nil, errors.New(errors.ErrCodeDocumentEmpty, "pipeline run requires at least one page")
	}

	extraction, err := p.extractor.ExtractTerms(ctx, pages)
	if err != nil {
		return nil, err
	}

	definitions := p.synthesizer.Synthesize(ctx, extraction.Terms, extraction.Annotations)

	relations, err := p.relations.ExtractRelationships(ctx, extraction.Terms, extraction.Annotations)
	if err != nil {
		return nil, err
	}

	return &PipelineResult{
		Terms:         extraction.Terms,
		Definitions:   definitions,
		Relationships: relations.Relationships,
		Stats:         extraction.Stats,
		RelationStats: relations.Stats,
	}, nil
}
