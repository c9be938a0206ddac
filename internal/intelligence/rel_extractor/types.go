package rel_extractor

import (
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config controls relationship extraction.
type Config struct {
	// MinConfidence drops relationships scoring below it.
	MinConfidence float64

	// ProximityTokens is the inter-term distance under which the proximity
	// bonus applies.
	ProximityTokens int

	// MaxConcurrency bounds the pair-evaluation fan-out.
	MaxConcurrency int
}

// DefaultConfig returns the extraction defaults.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		ProximityTokens: 30,
		MaxConcurrency:  4,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.Newf(errors.ErrCodePipelineConfigInvalid,
			"min confidence must be within [0,1], got %v", c.MinConfidence)
	}
	if c.ProximityTokens < 1 {
		return errors.Newf(errors.ErrCodePipelineConfigInvalid,
			"proximity threshold must be at least 1 token, got %d", c.ProximityTokens)
	}
	if c.MaxConcurrency < 1 {
		return errors.Newf(errors.ErrCodePipelineConfigInvalid,
			"max concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Relationship is one typed, directed relation between two terms, with the
// sentence that evidenced it.
type Relationship struct {
	SourceTerm string                `json:"source_term"`
	TargetTerm string                `json:"target_term"`
	Type       glossary.RelationType `json:"type"`
	Confidence float64               `json:"confidence"`
	Sentence   string                `json:"sentence"`
	PageNumber int                   `json:"page_number"`
}

// Stats summarizes one relationship extraction run.
type Stats struct {
	PairsEvaluated  int     `json:"pairs_evaluated"`
	RelationsFound  int     `json:"relations_found"`
	DroppedLowScore int     `json:"dropped_low_score"`
	DurationMs      float64 `json:"duration_ms"`
}

// Result carries the deduplicated relationships of one document.
type Result struct {
	Relationships []Relationship `json:"relationships"`
	Stats         Stats          `json:"stats"`
}
