// Package glossary defines all glossary-domain Data Transfer Objects, enumerations,
// and request/response structures used across every layer of the
// TermForge-Intelligence platform.  No domain logic lives here — only plain data
// types that are safe to import from any layer without creating circular
// dependencies.
package glossary

import (
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// ExtractionMethod — candidate extraction strategy identifier
// ─────────────────────────────────────────────────────────────────────────────

// ExtractionMethod identifies which candidate extraction strategy produced a
// glossary term.  The strategy is chosen once per document run: linguistic
// extraction when an annotation model is available, pattern extraction as the
// degraded fallback.
type ExtractionMethod string

const (
	// MethodLinguistic extracts candidates from noun chunks and named-entity
	// spans produced by a linguistic annotation model.
	MethodLinguistic ExtractionMethod = "linguistic"

	// MethodPattern extracts candidates with capitalization and acronym
	// heuristics when no annotation model is available.
	MethodPattern ExtractionMethod = "pattern"
)

// IsValid checks if the ExtractionMethod is valid.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case MethodLinguistic, MethodPattern:
		return true
	default:
		return false
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// RelationType — semantic relationship classification
// ─────────────────────────────────────────────────────────────────────────────

// RelationType classifies a directed semantic relationship between two
// glossary terms.
type RelationType string

const (
	// RelationUses indicates the source term employs the target as an instrument.
	RelationUses RelationType = "USES"

	// RelationMeasures indicates the source quantifies or monitors the target.
	RelationMeasures RelationType = "MEASURES"

	// RelationPartOf indicates containment of the source within the target.
	RelationPartOf RelationType = "PART_OF"

	// RelationProduces indicates the source yields the target as output.
	RelationProduces RelationType = "PRODUCES"

	// RelationAffects indicates the source influences the target.
	RelationAffects RelationType = "AFFECTS"

	// RelationRequires indicates the source depends on the target.
	RelationRequires RelationType = "REQUIRES"

	// RelationControls indicates the source regulates the target.
	RelationControls RelationType = "CONTROLS"

	// RelationDefines indicates the source specifies the target.
	RelationDefines RelationType = "DEFINES"

	// RelationRelatedTo is the generic association used when no more specific
	// relation can be established.
	RelationRelatedTo RelationType = "RELATED_TO"
)

// IsValid checks if the RelationType is one of the supported classifications.
func (r RelationType) IsValid() bool {
	switch r {
	case RelationUses, RelationMeasures, RelationPartOf, RelationProduces,
		RelationAffects, RelationRequires, RelationControls, RelationDefines,
		RelationRelatedTo:
		return true
	default:
		return false
	}
}

// AllRelationTypes returns every supported RelationType in declaration order.
func AllRelationTypes() []RelationType {
	return []RelationType{
		RelationUses, RelationMeasures, RelationPartOf, RelationProduces,
		RelationAffects, RelationRequires, RelationControls, RelationDefines,
		RelationRelatedTo,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// DefinitionDTO — synthesized definition for a glossary term
// ─────────────────────────────────────────────────────────────────────────────

// DefinitionDTO carries one synthesized definition for a term.  A term may have
// multiple definitions when no definitional sentence was found and the
// synthesizer fell back to context snippets.
type DefinitionDTO struct {
	// Text is the definition sentence or context snippet.
	Text string `json:"text"`

	// SourcePattern names the definitional pattern that matched (e.g., "is",
	// "means", "refers_to", "colon", "parenthetical").  Empty for context
	// snippets.
	SourcePattern string `json:"source_pattern,omitempty"`

	// Confidence is the prior confidence of the matched pattern, in [0, 1].
	Confidence float64 `json:"confidence"`

	// IsContextSnippet is true when Text is a raw context window rather than a
	// definitional sentence.
	IsContextSnippet bool `json:"is_context_snippet"`

	// PageNumber is the page the definition text was taken from.
	PageNumber int `json:"page_number,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// TermDTO — cross-layer data transfer object for a glossary term
// ─────────────────────────────────────────────────────────────────────────────

// TermDTO is the canonical glossary-term representation passed between the
// application, interface, and client layers.  It embeds common.BaseEntity so
// that it carries audit metadata without duplicating field definitions.
type TermDTO struct {
	// BaseEntity provides ID, CreatedAt, UpdatedAt, and Version.
	common.BaseEntity

	// Term is the display form of the term as it appears in source documents,
	// with leading articles stripped.
	Term string `json:"term"`

	// Normalized is the case-folded canonical form used for de-duplication and
	// aggregation.
	Normalized string `json:"normalized"`

	// Language is the BCP 47 language tag of the source documents
	// (e.g., "en", "de").
	Language string `json:"language"`

	// Frequency is the number of occurrences across the documents the term was
	// aggregated from.
	Frequency int `json:"frequency"`

	// Pages lists the page numbers on which the term occurs, ascending.
	Pages []int `json:"pages"`

	// Contexts holds surrounding-text windows captured at occurrence sites.
	Contexts []string `json:"contexts,omitempty"`

	// Confidence is the aggregate extraction confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Method records which extraction strategy produced the term.
	Method ExtractionMethod `json:"method"`

	// Definitions holds zero or more synthesized definitions, best first.
	Definitions []DefinitionDTO `json:"definitions,omitempty"`

	// DocumentIDs lists the documents this term was extracted from.
	DocumentIDs []common.ID `json:"document_ids,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// RelationshipDTO — directed term-to-term relationship
// ─────────────────────────────────────────────────────────────────────────────

// RelationshipDTO is the cross-layer representation of a directed semantic
// relationship between two glossary terms.
type RelationshipDTO struct {
	// ID uniquely identifies the relationship.
	ID common.ID `json:"id"`

	// SourceTerm is the normalized form of the relationship's source term.
	SourceTerm string `json:"source_term"`

	// TargetTerm is the normalized form of the relationship's target term.
	TargetTerm string `json:"target_term"`

	// Type classifies the relationship.
	Type RelationType `json:"type"`

	// Confidence is the extraction confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Evidence is the sentence the relationship was extracted from.
	Evidence string `json:"evidence,omitempty"`

	// DocumentID is the document the evidence sentence came from.
	DocumentID common.ID `json:"document_id,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Search request / response types
// ─────────────────────────────────────────────────────────────────────────────

// TermSearchRequest is the input DTO for paginated glossary search queries.
// All filter fields are optional pointers; a nil pointer means "no filter on
// this dimension".
type TermSearchRequest struct {
	// Query is matched against term text, normalized form, and definitions.
	Query string `json:"query"`

	// Language, when set, restricts results to terms of the given language.
	Language *string `json:"language,omitempty"`

	// Method, when set, restricts results to the given extraction strategy.
	Method *ExtractionMethod `json:"method,omitempty"`

	// MinFrequency, when set, excludes terms below the given corpus frequency.
	MinFrequency *int `json:"min_frequency,omitempty"`

	// MinConfidence, when set, excludes terms below the given confidence.
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Pagination carries page number and page size for result pagination.
	Pagination common.Pagination `json:"pagination"`
}

// TermSearchResponse is the paginated output DTO for glossary search queries.
type TermSearchResponse = common.PageResponse[TermDTO]

// ─────────────────────────────────────────────────────────────────────────────
// Graph request / response types
// ─────────────────────────────────────────────────────────────────────────────

// TermGraphRequest is the input DTO for relationship-graph neighborhood queries.
type TermGraphRequest struct {
	// Term is the normalized form of the term at the center of the query.
	Term string `json:"term"`

	// Language selects the glossary partition to query.
	Language string `json:"language"`

	// Depth is the maximum number of relationship hops to traverse.
	// Must be between 1 and 3; defaults to 1 when zero.
	Depth int `json:"depth,omitempty"`

	// Types, when non-empty, restricts traversal to the listed relation types.
	Types []RelationType `json:"types,omitempty"`

	// MinConfidence excludes relationships below the given confidence.
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// GraphNode is one term node in a graph query result.
type GraphNode struct {
	Term       string  `json:"term"`
	Language   string  `json:"language"`
	Frequency  int     `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

// GraphEdge is one directed relationship edge in a graph query result.
type GraphEdge struct {
	SourceTerm string       `json:"source_term"`
	TargetTerm string       `json:"target_term"`
	Type       RelationType `json:"type"`
	Confidence float64      `json:"confidence"`
}

// TermGraphResponse is the output DTO for relationship-graph queries.
type TermGraphResponse struct {
	// Nodes lists the distinct terms reached by the traversal, center included.
	Nodes []GraphNode `json:"nodes"`

	// Edges lists the relationships connecting the returned nodes.
	Edges []GraphEdge `json:"edges"`
}
