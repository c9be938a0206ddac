// Package glossary provides the core domain model for glossary entries in the
// TermForge-Intelligence platform.  The Entry aggregate root owns everything
// the platform knows about one extracted term in one language: its surface and
// normalized forms, occurrence statistics, synthesized definitions, and the
// extraction provenance needed for merge decisions when the same term is
// extracted again from another document.
package glossary

import (
	"sort"
	"strings"

	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ─────────────────────────────────────────────────────────────────────────────
// Domain Events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is a marker interface for all glossary-related domain events.
type DomainEvent interface {
	EventType() string
}

// EntryCreatedEvent is published when a term enters the glossary for the
// first time.
type EntryCreatedEvent struct {
	EntryID  common.ID
	Term     string
	Language string
}

func (e EntryCreatedEvent) EventType() string { return "glossary.entry.created" }

// EntryMergedEvent is published when a new extraction of an existing term is
// folded into its entry.
type EntryMergedEvent struct {
	EntryID    common.ID
	Term       string
	Language   string
	DocumentID common.ID
}

func (e EntryMergedEvent) EventType() string { return "glossary.entry.merged" }

// ─────────────────────────────────────────────────────────────────────────────
// Entry Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// Entry is the aggregate root for one glossary term in one language.  The
// (Normalized, Language) pair is the natural key the persistence layer
// deduplicates on; Term keeps the best display form observed so far.
type Entry struct {
	common.BaseEntity

	// Term is the display form, articles stripped, original casing kept.
	Term string `json:"term"`

	// Normalized is the case-folded canonical form used for deduplication.
	Normalized string `json:"normalized"`

	// Language is the BCP 47 primary subtag of the source documents.
	Language string `json:"language"`

	// Frequency counts occurrences across every merged extraction.
	Frequency int `json:"frequency"`

	// Pages lists occurrence pages ascending, deduplicated per document merge.
	Pages []int `json:"pages"`

	// Contexts holds occurrence context windows, capped at maxStoredContexts.
	Contexts []string `json:"contexts,omitempty"`

	// Confidence is the best extraction confidence observed for the term.
	Confidence float64 `json:"confidence"`

	// Method records the strategy of the extraction that set Confidence.
	Method gtypes.ExtractionMethod `json:"method"`

	// Definitions holds synthesized definitions, best first.
	Definitions []gtypes.DefinitionDTO `json:"definitions,omitempty"`

	// DocumentIDs lists every document the entry was merged from.
	DocumentIDs []common.ID `json:"document_ids,omitempty"`

	// Domain events (not persisted, cleared after publishing)
	events []DomainEvent
}

// maxStoredContexts bounds the context windows an entry accumulates across
// merges; older windows beyond the cap are dropped, newest kept.
const maxStoredContexts = 20

// ─────────────────────────────────────────────────────────────────────────────
// Factory Function
// ─────────────────────────────────────────────────────────────────────────────

// NewEntry constructs a glossary entry for a freshly extracted term.  The
// normalized form is derived by case-folding the display form; the entry
// starts with the statistics of its first extraction.
//
// Returns an error when the term is empty, the language is missing, the
// confidence is outside [0,1] or the extraction method is unknown.
func NewEntry(term, language string, method gtypes.ExtractionMethod, confidence float64) (*Entry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.InvalidParam("glossary term cannot be empty")
	}
	if strings.TrimSpace(language) == "" {
		return nil, errors.New(errors.ErrCodeTermLanguageInvalid, "glossary language is required")
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.InvalidParam("confidence must be within [0,1]").
			WithDetail("term=" + term)
	}
	if !method.IsValid() {
		return nil, errors.InvalidParam("unknown extraction method").
			WithDetail(string(method))
	}

	entry := &Entry{
		BaseEntity: common.BaseEntity{
			ID: common.NewID(),
		},
		Term:       term,
		Normalized: Normalize(term),
		Language:   strings.ToLower(strings.TrimSpace(language)),
		Confidence: confidence,
		Method:     method,
		Pages:      []int{},
	}

	entry.events = append(entry.events, EntryCreatedEvent{
		EntryID:  entry.ID,
		Term:     entry.Term,
		Language: entry.Language,
	})

	return entry, nil
}

// Normalize derives the canonical form used for entry deduplication:
// case-folded, inner whitespace collapsed to single spaces.
func Normalize(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

// ─────────────────────────────────────────────────────────────────────────────
// Extraction Merging
// ─────────────────────────────────────────────────────────────────────────────

// Extraction carries the per-document statistics of one pipeline run for a
// term, as handed to MergeExtraction.
type Extraction struct {
	DocumentID common.ID
	Frequency  int
	Pages      []int
	Contexts   []string
	Confidence float64
	Method     gtypes.ExtractionMethod
}

// MergeExtraction folds a new extraction of this term into the entry:
// frequencies accumulate, pages union ascending, contexts append up to the
// storage cap, and the confidence keeps the maximum ever observed (together
// with the method that produced it).  Merging the same document twice is the
// caller's bug; the entry does not track per-document frequencies.
func (e *Entry) MergeExtraction(ext Extraction) error {
	if ext.Frequency <= 0 {
		return errors.InvalidParam("merged extraction must have positive frequency").
			WithDetail("term=" + e.Term)
	}
	if ext.Confidence < 0 || ext.Confidence > 1 {
		return errors.New(errors.ErrCodeTermMergeConflict, "merged confidence outside [0,1]").
			WithDetail("term=" + e.Term)
	}

	e.Frequency += ext.Frequency
	e.Pages = mergePages(e.Pages, ext.Pages)

	e.Contexts = append(e.Contexts, ext.Contexts...)
	if len(e.Contexts) > maxStoredContexts {
		e.Contexts = e.Contexts[len(e.Contexts)-maxStoredContexts:]
	}

	if ext.Confidence > e.Confidence {
		e.Confidence = ext.Confidence
		if ext.Method.IsValid() {
			e.Method = ext.Method
		}
	}

	if ext.DocumentID != "" {
		e.addDocument(ext.DocumentID)
	}

	e.events = append(e.events, EntryMergedEvent{
		EntryID:    e.ID,
		Term:       e.Term,
		Language:   e.Language,
		DocumentID: ext.DocumentID,
	})

	return nil
}

// addDocument records a source document, ignoring duplicates.
func (e *Entry) addDocument(id common.ID) {
	for _, existing := range e.DocumentIDs {
		if existing == id {
			return
		}
	}
	e.DocumentIDs = append(e.DocumentIDs, id)
}

// mergePages unions two ascending page lists.
func mergePages(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	merged := make([]int, 0, len(a)+len(b))
	for _, p := range a {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	sort.Ints(merged)
	return merged
}

// ─────────────────────────────────────────────────────────────────────────────
// Definitions
// ─────────────────────────────────────────────────────────────────────────────

// SetDefinitions replaces the entry's definitions, ordered best first.  A
// pattern-matched definition always outranks a context snippet; within a tier
// higher confidence wins.
func (e *Entry) SetDefinitions(defs []gtypes.DefinitionDTO) {
	sorted := make([]gtypes.DefinitionDTO, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsContextSnippet != sorted[j].IsContextSnippet {
			return !sorted[i].IsContextSnippet
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})
	e.Definitions = sorted
}

// BestDefinition returns the highest-ranked definition, or nil when the entry
// has none.
func (e *Entry) BestDefinition() *gtypes.DefinitionDTO {
	if len(e.Definitions) == 0 {
		return nil
	}
	return &e.Definitions[0]
}

// HasRealDefinition reports whether the entry carries at least one
// pattern-matched definition rather than only context snippets.
func (e *Entry) HasRealDefinition() bool {
	for _, d := range e.Definitions {
		if !d.IsContextSnippet {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// DTO Conversion
// ─────────────────────────────────────────────────────────────────────────────

// ToDTO converts the aggregate to its cross-layer representation.
func (e *Entry) ToDTO() gtypes.TermDTO {
	return gtypes.TermDTO{
		BaseEntity:  e.BaseEntity,
		Term:        e.Term,
		Normalized:  e.Normalized,
		Language:    e.Language,
		Frequency:   e.Frequency,
		Pages:       e.Pages,
		Contexts:    e.Contexts,
		Confidence:  e.Confidence,
		Method:      e.Method,
		Definitions: e.Definitions,
		DocumentIDs: e.DocumentIDs,
	}
}

// EntryFromDTO reconstructs an aggregate from its DTO, as loaded from
// persistence.  No events are raised.
func EntryFromDTO(dto gtypes.TermDTO) *Entry {
	return &Entry{
		BaseEntity:  dto.BaseEntity,
		Term:        dto.Term,
		Normalized:  dto.Normalized,
		Language:    dto.Language,
		Frequency:   dto.Frequency,
		Pages:       dto.Pages,
		Contexts:    dto.Contexts,
		Confidence:  dto.Confidence,
		Method:      dto.Method,
		Definitions: dto.Definitions,
		DocumentIDs: dto.DocumentIDs,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain Event Management
// ─────────────────────────────────────────────────────────────────────────────

// Events returns all unpublished domain events and clears the internal list.
func (e *Entry) Events() []DomainEvent {
	events := e.events
	e.events = nil
	return events
}
