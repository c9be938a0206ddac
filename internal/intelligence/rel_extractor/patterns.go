package rel_extractor

import (
	"regexp"
	"strings"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ---------------------------------------------------------------------------
// Lexical patterns
// ---------------------------------------------------------------------------

// interTermPattern pairs a cue regex with the relation it signals. The list
// is ordered; the first pattern matching the span between two terms wins.
type interTermPattern struct {
	re       *regexp.Regexp
	relation glossary.RelationType
}

var interTermPatterns = []interTermPattern{
	{regexp.MustCompile(`(?i)\b(?:uses?|used|using|utili[sz]es?|utili[sz]ed|utili[sz]ing)\b`), glossary.RelationUses},
	{regexp.MustCompile(`(?i)\b(?:measures?|measured|measuring|monitors?|monitored|monitoring)\b`), glossary.RelationMeasures},
	{regexp.MustCompile(`(?i)\b(?:in|within|part\s+of)\b`), glossary.RelationPartOf},
	{regexp.MustCompile(`(?i)\b(?:produces?|produced|producing|generates?|generated|generating)\b`), glossary.RelationProduces},
	{regexp.MustCompile(`(?i)\b(?:affects?|affected|affecting|influences?|influenced|influencing)\b`), glossary.RelationAffects},
	{regexp.MustCompile(`(?i)\b(?:requires?|required|requiring|needs?|needed|needing)\b`), glossary.RelationRequires},
	{regexp.MustCompile(`(?i)\b(?:controls?|controlled|controlling|regulates?|regulated|regulating)\b`), glossary.RelationControls},
	{regexp.MustCompile(`(?i)\b(?:defines?|defined|defining|specif(?:y|ies|ied|ying))\b`), glossary.RelationDefines},
}

// matchInterSpan classifies the text between two term mentions.
func matchInterSpan(span string) (glossary.RelationType, bool) {
	for _, p := range interTermPatterns {
		if p.re.MatchString(span) {
			return p.relation, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Dependency-path lexicons
// ---------------------------------------------------------------------------

// verbRelations classifies the verb of a subject-verb-object triple. Verbs
// outside this table yield no dependency relation.
var verbRelations = map[string]glossary.RelationType{
	"use": glossary.RelationUses, "uses": glossary.RelationUses,
	"used": glossary.RelationUses, "using": glossary.RelationUses,
	"utilize": glossary.RelationUses, "utilizes": glossary.RelationUses,
	"utilized": glossary.RelationUses,

	"measure": glossary.RelationMeasures, "measures": glossary.RelationMeasures,
	"measured": glossary.RelationMeasures,
	"monitor": glossary.RelationMeasures, "monitors": glossary.RelationMeasures,
	"monitored": glossary.RelationMeasures,

	"produce": glossary.RelationProduces, "produces": glossary.RelationProduces,
	"produced": glossary.RelationProduces,
	"generate": glossary.RelationProduces, "generates": glossary.RelationProduces,
	"generated": glossary.RelationProduces,

	"affect": glossary.RelationAffects, "affects": glossary.RelationAffects,
	"affected": glossary.RelationAffects,
	"influence": glossary.RelationAffects, "influences": glossary.RelationAffects,
	"influenced": glossary.RelationAffects,

	"require": glossary.RelationRequires, "requires": glossary.RelationRequires,
	"required": glossary.RelationRequires,
	"need": glossary.RelationRequires, "needs": glossary.RelationRequires,
	"needed": glossary.RelationRequires,

	"control": glossary.RelationControls, "controls": glossary.RelationControls,
	"controlled": glossary.RelationControls,
	"regulate": glossary.RelationControls, "regulates": glossary.RelationControls,
	"regulated": glossary.RelationControls,

	"define": glossary.RelationDefines, "defines": glossary.RelationDefines,
	"defined": glossary.RelationDefines,
	"specify": glossary.RelationDefines, "specifies": glossary.RelationDefines,
	"specified": glossary.RelationDefines,
}

// prepRelations classifies preposition-mediated paths. "by" has no
// instrument relation in the glossary vocabulary and maps to the generic
// association.
var prepRelations = map[string]glossary.RelationType{
	"in":     glossary.RelationPartOf,
	"within": glossary.RelationPartOf,
	"for":    glossary.RelationRequires,
	"with":   glossary.RelationUses,
	"by":     glossary.RelationRelatedTo,
}

func verbRelationFor(tokenText string) (glossary.RelationType, bool) {
	rel, ok := verbRelations[strings.ToLower(tokenText)]
	return rel, ok
}

func prepRelationFor(tokenText string) (glossary.RelationType, bool) {
	rel, ok := prepRelations[strings.ToLower(tokenText)]
	return rel, ok
}
