// Package repositories contains the Neo4j implementation of the term
// relationship graph.
package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	driver "github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// graphExecutor is the slice of driver.Driver the repository needs.
type graphExecutor interface {
	ExecuteRead(ctx context.Context, work func(driver.Transaction) (interface{}, error)) (interface{}, error)
	ExecuteWrite(ctx context.Context, work func(driver.Transaction) (interface{}, error)) (interface{}, error)
}

// TermGraphRepository is the Neo4j implementation of
// glossary.RelationRepository. Terms are (:Term {name, language}) nodes and
// relations are typed edges carrying confidence and evidence properties.
type TermGraphRepository struct {
	driver graphExecutor
	log    logging.Logger
}

// NewTermGraphRepository constructs a ready-to-use TermGraphRepository.
func NewTermGraphRepository(d graphExecutor, log logging.Logger) *TermGraphRepository {
	return &TermGraphRepository{driver: d, log: log}
}

var _ glossary.RelationRepository = (*TermGraphRepository)(nil)

const maxGraphDepth = 3

// EnsureSchema creates the uniqueness constraint for term nodes. Idempotent.
func (r *TermGraphRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE CONSTRAINT term_name_language IF NOT EXISTS
		FOR (t:Term) REQUIRE (t.name, t.language) IS UNIQUE
	`
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, nil)
		return nil, err
	})
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Upsert
// ─────────────────────────────────────────────────────────────────────────────

// Upsert merges relations into the graph. The relationship type cannot be
// parameterized in Cypher, so the batch runs one UNWIND per relation type.
// MERGE keeps the highest confidence seen and the evidence that carried it.
func (r *TermGraphRepository) Upsert(ctx context.Context, language string, relations []*glossary.Relation) error {
	if len(relations) == 0 {
		return nil
	}
	if language == "" {
		return errors.InvalidParam("relation upsert requires a language")
	}

	byType := make(map[gtypes.RelationType][]*glossary.Relation)
	for _, rel := range relations {
		byType[rel.Type] = append(byType[rel.Type], rel)
	}

	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
		for relType, group := range byType {
			query := fmt.Sprintf(`
				UNWIND $batch AS row
				MERGE (s:Term {name: row.source, language: $language})
				ON CREATE SET s.created_at = datetime()
				MERGE (t:Term {name: row.target, language: $language})
				ON CREATE SET t.created_at = datetime()
				MERGE (s)-[r:%s]->(t)
				ON CREATE SET
					r.confidence = row.confidence,
					r.evidence = row.evidence,
					r.document_id = row.document_id,
					r.source = row.source,
					r.target = row.target,
					r.created_at = datetime()
				ON MATCH SET
					r.evidence = CASE WHEN row.confidence > r.confidence
						THEN row.evidence ELSE r.evidence END,
					r.document_id = CASE WHEN row.confidence > r.confidence
						THEN row.document_id ELSE r.document_id END,
					r.confidence = CASE WHEN row.confidence > r.confidence
						THEN row.confidence ELSE r.confidence END
			`, relType)

			batch := make([]map[string]interface{}, 0, len(group))
			for _, rel := range group {
				batch = append(batch, map[string]interface{}{
					"source":      rel.SourceTerm,
					"target":      rel.TargetTerm,
					"confidence":  rel.Confidence,
					"evidence":    rel.Evidence,
					"document_id": string(rel.DocumentID),
				})
			}

			if _, err := tx.Run(ctx, query, map[string]interface{}{
				"batch":    batch,
				"language": language,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeRelationPersistFailed, "failed to upsert relations")
	}

	r.log.Debug("Upserted relations into graph",
		logging.Int("count", len(relations)),
		logging.String("language", language))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Neighbors
// ─────────────────────────────────────────────────────────────────────────────

// Neighbors returns the subgraph reachable from the request term within the
// requested depth. Edge rows are deduplicated in Go because overlapping paths
// revisit the same relationships.
func (r *TermGraphRepository) Neighbors(ctx context.Context, req gtypes.TermGraphRequest) (*gtypes.TermGraphResponse, error) {
	if req.Term == "" {
		return nil, errors.InvalidParam("graph query requires a term")
	}
	depth := req.Depth
	if depth == 0 {
		depth = 1
	}
	if depth < 1 || depth > maxGraphDepth {
		return nil, errors.InvalidParam(
			fmt.Sprintf("graph depth must be between 1 and %d", maxGraphDepth))
	}

	types := make([]interface{}, 0, len(req.Types))
	for _, t := range req.Types {
		if !t.IsValid() {
			return nil, errors.New(errors.ErrCodeRelationTypeInvalid, "unknown relation type").
				WithDetail(string(t))
		}
		types = append(types, string(t))
	}

	params := map[string]interface{}{
		"term":          req.Term,
		"language":      req.Language,
		"types":         types,
		"minConfidence": req.MinConfidence,
	}

	// Depth is validated above; Cypher cannot parameterize the hop bound.
	pathQuery := fmt.Sprintf(`
		MATCH p = (c:Term {name: $term, language: $language})-[*1..%d]-(:Term)
		WHERE ALL(rel IN relationships(p) WHERE
			rel.confidence >= $minConfidence
			AND (size($types) = 0 OR type(rel) IN $types))
		RETURN nodes(p) AS nodes, relationships(p) AS rels
	`, depth)

	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (interface{}, error) {
		// Confirm the center exists so an isolated term still yields itself.
		centerRes, err := tx.Run(ctx,
			`MATCH (c:Term {name: $term, language: $language}) RETURN c`, params)
		if err != nil {
			return nil, err
		}
		if !centerRes.Next(ctx) {
			if err := centerRes.Err(); err != nil {
				return nil, err
			}
			return nil, errors.New(errors.ErrCodeTermNotFound, "term not in relationship graph").
				WithDetail(req.Term)
		}
		centerVal, _ := centerRes.Record().Get("c")
		center, _ := centerVal.(neo4j.Node)

		resp := &gtypes.TermGraphResponse{
			Nodes: []gtypes.GraphNode{nodeFromNeo4j(center)},
			Edges: []gtypes.GraphEdge{},
		}
		seenNodes := map[string]bool{req.Term: true}
		seenEdges := map[string]bool{}

		result, err := tx.Run(ctx, pathQuery, params)
		if err != nil {
			return nil, err
		}
		for result.Next(ctx) {
			rec := result.Record()
			nodesVal, _ := rec.Get("nodes")
			relsVal, _ := rec.Get("rels")

			if nodeList, ok := nodesVal.([]interface{}); ok {
				for _, n := range nodeList {
					node, ok := n.(neo4j.Node)
					if !ok {
						continue
					}
					gn := nodeFromNeo4j(node)
					if !seenNodes[gn.Term] {
						seenNodes[gn.Term] = true
						resp.Nodes = append(resp.Nodes, gn)
					}
				}
			}
			if relList, ok := relsVal.([]interface{}); ok {
				for _, e := range relList {
					rel, ok := e.(neo4j.Relationship)
					if !ok {
						continue
					}
					ge := edgeFromNeo4j(rel)
					key := ge.SourceTerm + "\x00" + ge.TargetTerm + "\x00" + string(ge.Type)
					if !seenEdges[key] {
						seenEdges[key] = true
						resp.Edges = append(resp.Edges, ge)
					}
				}
			}
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeTermNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeRelationGraphQueryFailed, "graph query failed")
	}
	return res.(*gtypes.TermGraphResponse), nil
}

// DeleteByTerm removes the term node and every relation touching it.
func (r *TermGraphRepository) DeleteByTerm(ctx context.Context, normalized, language string) error {
	if normalized == "" {
		return errors.InvalidParam("delete requires a term")
	}
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
		_, err := tx.Run(ctx, `
			MATCH (t:Term {name: $term, language: $language})
			DETACH DELETE t
		`, map[string]interface{}{"term": normalized, "language": language})
		return nil, err
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeRelationPersistFailed, "failed to delete term from graph")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────────────────────────────────────

func nodeFromNeo4j(node neo4j.Node) gtypes.GraphNode {
	gn := gtypes.GraphNode{}
	if name, ok := node.Props["name"].(string); ok {
		gn.Term = name
	}
	if lang, ok := node.Props["language"].(string); ok {
		gn.Language = lang
	}
	if freq, ok := node.Props["frequency"].(int64); ok {
		gn.Frequency = int(freq)
	}
	if conf, ok := node.Props["confidence"].(float64); ok {
		gn.Confidence = conf
	}
	return gn
}

func edgeFromNeo4j(rel neo4j.Relationship) gtypes.GraphEdge {
	ge := gtypes.GraphEdge{Type: gtypes.RelationType(rel.Type)}
	if s, ok := rel.Props["source"].(string); ok {
		ge.SourceTerm = s
	}
	if t, ok := rel.Props["target"].(string); ok {
		ge.TargetTerm = t
	}
	if c, ok := rel.Props["confidence"].(float64); ok {
		ge.Confidence = c
	}
	return ge
}
