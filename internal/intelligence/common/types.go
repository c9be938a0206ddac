package common

import (
	"context"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Part-of-speech tags
// ---------------------------------------------------------------------------

// Universal-style part-of-speech tags emitted by annotators.
const (
	POSNoun        = "NOUN"
	POSProperNoun  = "PROPN"
	POSVerb        = "VERB"
	POSAux         = "AUX"
	POSAdjective   = "ADJ"
	POSAdverb      = "ADV"
	POSDeterminer  = "DET"
	POSAdposition  = "ADP"
	POSPronoun     = "PRON"
	POSNumeral     = "NUM"
	POSConjunction = "CCONJ"
	POSParticle    = "PART"
	POSPunct       = "PUNCT"
	POSSymbol      = "SYM"
	POSOther       = "X"
)

// IsNominal reports whether tag marks a token that can head a term phrase.
func IsNominal(tag string) bool {
	return tag == POSNoun || tag == POSProperNoun
}

// ---------------------------------------------------------------------------
// Dependency relations
// ---------------------------------------------------------------------------

// Dependency relation labels produced by the shallow parse.
const (
	DepRoot     = "root"
	DepSubject  = "nsubj"
	DepObject   = "obj"
	DepPrep     = "prep"
	DepPrepObj  = "pobj"
	DepDet      = "det"
	DepModifier = "amod"
	DepCompound = "compound"
)

// ---------------------------------------------------------------------------
// Entity labels
// ---------------------------------------------------------------------------

// Entity labels produced by the pattern NER stage.
const (
	EntityLabelAcronym = "ACRONYM"
	EntityLabelProper  = "PROPER"
)

// ---------------------------------------------------------------------------
// Annotation value types
// ---------------------------------------------------------------------------

// Token is a single token with byte offsets into the annotated text.
type Token struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	POS   string `json:"pos"`
}

// Dependency is one arc of a sentence parse. Dependent and Head are
// sentence-local token indexes; a Head of -1 marks the sentence root.
type Dependency struct {
	Dependent int    `json:"dependent"`
	Head      int    `json:"head"`
	Relation  string `json:"relation"`
}

// Sentence is a self-contained sentence annotation: its text, byte offsets
// into the full annotated text, its own tokens (offsets remain relative to
// the full text) and, when the annotator produced one, a shallow parse.
type Sentence struct {
	Text         string       `json:"text"`
	Start        int          `json:"start"`
	End          int          `json:"end"`
	Tokens       []Token      `json:"tokens"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// HasParse reports whether the sentence carries dependency arcs.
func (s *Sentence) HasParse() bool {
	return len(s.Dependencies) > 0
}

// TokenIndexAt returns the index of the token covering byte offset off,
// or -1 when no token covers it.
func (s *Sentence) TokenIndexAt(off int) int {
	for i, t := range s.Tokens {
		if off >= t.Start && off < t.End {
			return i
		}
	}
	return -1
}

// NounChunk is a noun-phrase span. The chunk carries its own token slice so
// consumers can strip leading determiners without re-tokenizing.
type NounChunk struct {
	Text    string  `json:"text"`
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Tokens  []Token `json:"tokens"`
	HeadPOS string  `json:"head_pos"`
}

// EntitySpan is a named-entity span found by the pattern NER stage.
type EntitySpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Annotation is the full linguistic analysis of one text.
type Annotation struct {
	Text            string       `json:"text"`
	Sentences       []Sentence   `json:"sentences"`
	NounChunks      []NounChunk  `json:"noun_chunks"`
	Entities        []EntitySpan `json:"entities"`
	HasDependencies bool         `json:"has_dependencies"`
}

// TokenCount returns the total number of tokens across all sentences.
func (a *Annotation) TokenCount() int {
	n := 0
	for i := range a.Sentences {
		n += len(a.Sentences[i].Tokens)
	}
	return n
}

// SentenceAt returns the sentence covering byte offset off, or nil.
func (a *Annotation) SentenceAt(off int) *Sentence {
	for i := range a.Sentences {
		if off >= a.Sentences[i].Start && off < a.Sentences[i].End {
			return &a.Sentences[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Annotator interface
// ---------------------------------------------------------------------------

// Annotator is the linguistic analysis capability consumed by the extraction
// pipeline. Implementations must be safe for concurrent use after
// construction: Annotate never mutates receiver state.
type Annotator interface {
	// Name identifies the annotator implementation (e.g. "shallow-annotator").
	Name() string

	// Language returns the ISO 639-1 code the annotator was built for.
	Language() string

	// Annotate analyses text and returns sentences, tokens, POS tags,
	// noun chunks, entity spans and (when supported) a shallow parse.
	Annotate(ctx context.Context, text string) (*Annotation, error)
}

// AnnotatorInfo describes a registered annotator.
type AnnotatorInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Language     string   `json:"language"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Key returns the registry key for the descriptor: "<name>@<language>".
func (i AnnotatorInfo) Key() string {
	return fmt.Sprintf("%s@%s", i.Name, strings.ToLower(i.Language))
}

// ---------------------------------------------------------------------------
// Logger interface
// ---------------------------------------------------------------------------

// Logger defines a structured logging interface compatible with zap or others.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger implements Logger and does nothing.
type noopLogger struct{}

func (n *noopLogger) Info(string, ...interface{})  {}
func (n *noopLogger) Warn(string, ...interface{})  {}
func (n *noopLogger) Debug(string, ...interface{}) {}
func (n *noopLogger) Error(string, ...interface{}) {}

// NewNoopLogger returns a Logger that discards all logs.
func NewNoopLogger() Logger {
	return &noopLogger{}
}
