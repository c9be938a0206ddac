package term_extractor

import (
	"github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ---------------------------------------------------------------------------
// Candidate sources and reason codes
// ---------------------------------------------------------------------------

// CandidateSource records which extraction mechanism produced a candidate.
type CandidateSource string

const (
	SourceNounChunk CandidateSource = "noun_chunk"
	SourceEntity    CandidateSource = "entity"
	SourcePattern   CandidateSource = "pattern"
)

// ReasonCode identifies the validation rule that fired. Codes are stable:
// they appear in metrics labels, logs and extraction reports.
type ReasonCode string

const (
	ReasonNumericOnly        ReasonCode = "NUMERIC_ONLY"
	ReasonEmptyAfterStrip    ReasonCode = "EMPTY_AFTER_ARTICLE_STRIP"
	ReasonQuestionLeader     ReasonCode = "QUESTION_LEADER"
	ReasonComparativeLeader  ReasonCode = "COMPARATIVE_LEADER"
	ReasonQuantifierPhrase   ReasonCode = "QUANTIFIER_PHRASE"
	ReasonBoundMorpheme      ReasonCode = "BOUND_MORPHEME"
	ReasonLowercaseFragment  ReasonCode = "LOWERCASE_FRAGMENT"
	ReasonSectionHeading     ReasonCode = "SECTION_HEADING"
	ReasonEquationFragment   ReasonCode = "EQUATION_FRAGMENT"
	ReasonCitationArtifact   ReasonCode = "CITATION_ARTIFACT"
	ReasonAuthorName         ReasonCode = "AUTHOR_NAME"
	ReasonEmbeddedLineBreak  ReasonCode = "EMBEDDED_LINE_BREAK"
	ReasonExcessSymbols      ReasonCode = "EXCESS_SYMBOLS"
	ReasonRepeatedCharacters ReasonCode = "REPEATED_CHARACTERS"
	ReasonTooManyWords       ReasonCode = "TOO_MANY_WORDS"
	ReasonAllStopwords       ReasonCode = "ALL_STOPWORDS"
	ReasonScriptMismatch     ReasonCode = "SCRIPT_MISMATCH"
	ReasonValidationInternal ReasonCode = "VALIDATION_INTERNAL"
)

// RepairCode identifies a text repair the validator applied before accepting
// a candidate. Repairs lower the final confidence of the term.
type RepairCode string

const (
	RepairArticleStripped   RepairCode = "ARTICLE_STRIPPED"
	RepairWhitespaceTrimmed RepairCode = "WHITESPACE_TRIMMED"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config carries every pipeline knob. Immutable once passed to a
// constructor.
type Config struct {
	// Language is the BCP 47 primary subtag candidates are validated
	// against.
	Language string

	// MinTermLength and MaxTermLength bound candidates in characters
	// (runes).
	MinTermLength int
	MaxTermLength int

	// MaxWordCount bounds candidates in whitespace-separated words.
	MaxWordCount int

	// ContextWindowChars is the approximate context window size captured
	// around each occurrence.
	ContextWindowChars int

	// MinFrequency drops term groups occurring fewer times across the
	// document. Required; 1 disables the gate. There is no default because
	// the recall/precision trade-off must be stated per deployment.
	MinFrequency int

	// MaxDigitRatio rejects candidates whose digit share exceeds it.
	MaxDigitRatio float64

	// MaxSymbolRatio rejects candidates whose symbol share exceeds it.
	MaxSymbolRatio float64
}

// DefaultConfig returns production settings for everything except
// MinFrequency, which callers must set.
func DefaultConfig() Config {
	return Config{
		Language:           "en",
		MinTermLength:      3,
		MaxTermLength:      80,
		MaxWordCount:       3,
		ContextWindowChars: 100,
		MaxDigitRatio:      0.30,
		MaxSymbolRatio:     0.20,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Language == "" {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "language is required")
	}
	if c.MinTermLength <= 0 {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "min term length must be positive")
	}
	if c.MaxTermLength < c.MinTermLength {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "max term length must be >= min term length")
	}
	if c.MaxWordCount <= 0 {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "max word count must be positive")
	}
	if c.ContextWindowChars <= 0 {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "context window must be positive")
	}
	if c.MinFrequency < 1 {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "min frequency is required and must be >= 1")
	}
	if c.MaxDigitRatio <= 0 || c.MaxDigitRatio > 1 {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "max digit ratio must be in (0,1]")
	}
	if c.MaxSymbolRatio <= 0 || c.MaxSymbolRatio > 1 {
		return errors.New(errors.ErrCodePipelineConfigInvalid, "max symbol ratio must be in (0,1]")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pipeline value types
// ---------------------------------------------------------------------------

// RawCandidate is one candidate term as extracted, before validation. Offset
// is the byte position of its first occurrence in the page's normalized
// text.
type RawCandidate struct {
	Text       string
	PageNumber int
	Offset     int
	Source     CandidateSource
	HeadPOS    string
}

// Verdict is the outcome of validating one candidate. Reasons holds every
// rule that fired, not just the deciding first one, so extraction reports
// can show the full picture.
type Verdict struct {
	Accepted       bool
	CleanedText    string
	Reasons        []ReasonCode
	RepairsApplied []RepairCode
}

// AcceptedCandidate pairs a candidate that survived validation with its
// verdict, so the aggregator can read the cleaned text and repair count.
type AcceptedCandidate struct {
	Candidate RawCandidate
	Verdict   Verdict
}

// Occurrence is one appearance of a term in the document.
type Occurrence struct {
	PageNumber int
	Offset     int
	Context    string
}

// Term is a validated, aggregated glossary term.
type Term struct {
	Text        string
	Frequency   int
	Pages       []int
	Occurrences []Occurrence
	Confidence  float64
	Method      glossary.ExtractionMethod
	HeadPOS     string
}

// PageAnnotation pairs a page number with its linguistic annotation.
// Pattern-mode extraction produces none.
type PageAnnotation struct {
	PageNumber int
	Annotation *common.Annotation
}

// Stats summarizes one extraction run.
type Stats struct {
	PagesProcessed      int
	NormalizerRepairs   int
	CandidatesExtracted int
	CandidatesRejected  int
	RejectionsByReason  map[ReasonCode]int
	TermsAccepted       int
	Method              glossary.ExtractionMethod
	DurationMs          float64
}

// Result is the full output of a document extraction run.
type Result struct {
	Terms       []Term
	Annotations []PageAnnotation
	Stats       Stats
}
