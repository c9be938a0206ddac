package glossary

import (
	"strings"

	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ─────────────────────────────────────────────────────────────────────────────
// Relation Entity
// ─────────────────────────────────────────────────────────────────────────────

// Relation is a directed, typed semantic link between two glossary entries,
// identified by normalized term text.  Relations are value-like entities: the
// (SourceTerm, TargetTerm, Type) triple is the natural key the graph layer
// merges on, keeping the highest-confidence evidence.
type Relation struct {
	ID         common.ID           `json:"id"`
	SourceTerm string              `json:"source_term"`
	TargetTerm string              `json:"target_term"`
	Type       gtypes.RelationType `json:"type"`
	Confidence float64             `json:"confidence"`
	Evidence   string              `json:"evidence,omitempty"`
	DocumentID common.ID           `json:"document_id,omitempty"`
}

// NewRelation constructs a validated relation between two normalized terms.
// Self-relations are rejected: a term cannot relate to itself regardless of
// how the evidence reads.
func NewRelation(source, target string, relType gtypes.RelationType, confidence float64, evidence string) (*Relation, error) {
	source = Normalize(source)
	target = Normalize(target)

	if source == "" || target == "" {
		return nil, errors.InvalidParam("relation requires both a source and a target term")
	}
	if source == target {
		return nil, errors.New(errors.ErrCodeRelationTypeInvalid,
			"relation source and target must differ").WithDetail("term=" + source)
	}
	if !relType.IsValid() {
		return nil, errors.New(errors.ErrCodeRelationTypeInvalid, "unknown relation type").
			WithDetail(string(relType))
	}
	if confidence < 0 || confidence > 1 {
		return nil, errors.InvalidParam("relation confidence must be within [0,1]")
	}

	return &Relation{
		ID:         common.NewID(),
		SourceTerm: source,
		TargetTerm: target,
		Type:       relType,
		Confidence: confidence,
		Evidence:   strings.TrimSpace(evidence),
	}, nil
}

// Key returns the natural deduplication key of the relation.
func (r *Relation) Key() string {
	return r.SourceTerm + "\x00" + r.TargetTerm + "\x00" + string(r.Type)
}

// Stronger reports whether this relation should replace other when both share
// a key: strictly higher confidence wins; ties keep the incumbent.
func (r *Relation) Stronger(other *Relation) bool {
	return r.Confidence > other.Confidence
}

// ToDTO converts the relation to its cross-layer representation.
func (r *Relation) ToDTO() gtypes.RelationshipDTO {
	return gtypes.RelationshipDTO{
		ID:         r.ID,
		SourceTerm: r.SourceTerm,
		TargetTerm: r.TargetTerm,
		Type:       r.Type,
		Confidence: r.Confidence,
		Evidence:   r.Evidence,
		DocumentID: r.DocumentID,
	}
}

// RelationFromDTO reconstructs a relation from its DTO.
func RelationFromDTO(dto gtypes.RelationshipDTO) *Relation {
	return &Relation{
		ID:         dto.ID,
		SourceTerm: dto.SourceTerm,
		TargetTerm: dto.TargetTerm,
		Type:       dto.Type,
		Confidence: dto.Confidence,
		Evidence:   dto.Evidence,
		DocumentID: dto.DocumentID,
	}
}

// DedupeRelations merges relations sharing a natural key, keeping the
// highest-confidence evidence for each. Order of the result follows the first
// appearance of each key.
func DedupeRelations(relations []*Relation) []*Relation {
	best := make(map[string]int, len(relations))
	out := make([]*Relation, 0, len(relations))
	for _, rel := range relations {
		key := rel.Key()
		if i, ok := best[key]; ok {
			if rel.Stronger(out[i]) {
				out[i] = rel
			}
			continue
		}
		best[key] = len(out)
		out = append(out, rel)
	}
	return out
}
