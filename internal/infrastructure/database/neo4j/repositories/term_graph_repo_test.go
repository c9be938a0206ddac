package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	driver "github.com/lexforge/TermForge-Intelligence/internal/infrastructure/database/neo4j"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type runCall struct {
	cypher string
	params map[string]any
}

// fakeTx records Run calls and pops pre-scripted results in order.
type fakeTx struct {
	calls   []runCall
	results []*fakeResult
	err     error
}

func (t *fakeTx) Run(ctx context.Context, cypher string, params map[string]any) (driver.Result, error) {
	t.calls = append(t.calls, runCall{cypher: cypher, params: params})
	if t.err != nil {
		return nil, t.err
	}
	if len(t.results) == 0 {
		return &fakeResult{}, nil
	}
	res := t.results[0]
	t.results = t.results[1:]
	return res, nil
}

type fakeResult struct {
	records []*neo4j.Record
	pos     int
}

func (r *fakeResult) Next(ctx context.Context) bool { return r.pos < len(r.records) }
func (r *fakeResult) Record() *neo4j.Record {
	rec := r.records[r.pos]
	r.pos++
	return rec
}
func (r *fakeResult) Err() error { return nil }
func (r *fakeResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

type fakeExecutor struct {
	tx *fakeTx
}

func (e *fakeExecutor) ExecuteRead(ctx context.Context, work func(driver.Transaction) (interface{}, error)) (interface{}, error) {
	return work(e.tx)
}
func (e *fakeExecutor) ExecuteWrite(ctx context.Context, work func(driver.Transaction) (interface{}, error)) (interface{}, error) {
	return work(e.tx)
}

func newRepo(tx *fakeTx) *TermGraphRepository {
	return NewTermGraphRepository(&fakeExecutor{tx: tx}, logging.NewNopLogger())
}

func mustRelation(t *testing.T, source, target string, relType gtypes.RelationType, confidence float64) *glossary.Relation {
	t.Helper()
	rel, err := glossary.NewRelation(source, target, relType, confidence, "evidence sentence")
	require.NoError(t, err)
	return rel
}

func termNode(name, language string) neo4j.Node {
	return neo4j.Node{Props: map[string]any{"name": name, "language": language}}
}

func relEdge(source, target, relType string, confidence float64) neo4j.Relationship {
	return neo4j.Relationship{
		Type: relType,
		Props: map[string]any{
			"source":     source,
			"target":     target,
			"confidence": confidence,
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Upsert
// ─────────────────────────────────────────────────────────────────────────────

func TestUpsert_EmptyBatchIsNoop(t *testing.T) {
	tx := &fakeTx{}
	repo := newRepo(tx)

	err := repo.Upsert(context.Background(), "en", nil)
	require.NoError(t, err)
	assert.Empty(t, tx.calls)
}

func TestUpsert_RequiresLanguage(t *testing.T) {
	repo := newRepo(&fakeTx{})
	rel := mustRelation(t, "agitator", "drive shaft", gtypes.RelationUses, 0.8)

	err := repo.Upsert(context.Background(), "", []*glossary.Relation{rel})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestUpsert_GroupsBatchByRelationType(t *testing.T) {
	tx := &fakeTx{}
	repo := newRepo(tx)

	relations := []*glossary.Relation{
		mustRelation(t, "bioreactor", "pressure sensor", gtypes.RelationUses, 0.9),
		mustRelation(t, "agitator", "drive shaft", gtypes.RelationUses, 0.7),
		mustRelation(t, "impeller", "agitator", gtypes.RelationPartOf, 0.8),
	}

	err := repo.Upsert(context.Background(), "en", relations)
	require.NoError(t, err)
	require.Len(t, tx.calls, 2)

	batchSizes := map[string]int{}
	for _, call := range tx.calls {
		assert.Equal(t, "en", call.params["language"])
		batch := call.params["batch"].([]map[string]interface{})
		switch {
		case strings.Contains(call.cypher, "[r:USES]"):
			batchSizes["USES"] = len(batch)
		case strings.Contains(call.cypher, "[r:PART_OF]"):
			batchSizes["PART_OF"] = len(batch)
		default:
			t.Fatalf("unexpected cypher: %s", call.cypher)
		}
	}
	assert.Equal(t, 2, batchSizes["USES"])
	assert.Equal(t, 1, batchSizes["PART_OF"])
}

// ─────────────────────────────────────────────────────────────────────────────
// Neighbors
// ─────────────────────────────────────────────────────────────────────────────

func TestNeighbors_TermMissing(t *testing.T) {
	tx := &fakeTx{results: []*fakeResult{{}}} // empty center lookup
	repo := newRepo(tx)

	_, err := repo.Neighbors(context.Background(), gtypes.TermGraphRequest{
		Term: "missing", Language: "en",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTermNotFound))
}

func TestNeighbors_InvalidDepth(t *testing.T) {
	repo := newRepo(&fakeTx{})

	_, err := repo.Neighbors(context.Background(), gtypes.TermGraphRequest{
		Term: "bioreactor", Language: "en", Depth: 4,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNeighbors_InvalidRelationType(t *testing.T) {
	repo := newRepo(&fakeTx{})

	_, err := repo.Neighbors(context.Background(), gtypes.TermGraphRequest{
		Term: "bioreactor", Language: "en",
		Types: []gtypes.RelationType{"BEFRIENDS"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRelationTypeInvalid))
}

func TestNeighbors_DeduplicatesAcrossPaths(t *testing.T) {
	center := termNode("bioreactor", "en")
	sensor := termNode("pressure sensor", "en")
	agitator := termNode("agitator", "en")
	usesEdge := relEdge("bioreactor", "pressure sensor", "USES", 0.9)

	centerLookup := &fakeResult{records: []*neo4j.Record{
		{Keys: []string{"c"}, Values: []any{center}},
	}}
	// Two overlapping paths revisit the center node and the USES edge.
	paths := &fakeResult{records: []*neo4j.Record{
		{
			Keys:   []string{"nodes", "rels"},
			Values: []any{[]any{center, sensor}, []any{usesEdge}},
		},
		{
			Keys: []string{"nodes", "rels"},
			Values: []any{
				[]any{center, agitator},
				[]any{relEdge("bioreactor", "agitator", "PART_OF", 0.8), usesEdge},
			},
		},
	}}

	tx := &fakeTx{results: []*fakeResult{centerLookup, paths}}
	repo := newRepo(tx)

	resp, err := repo.Neighbors(context.Background(), gtypes.TermGraphRequest{
		Term: "bioreactor", Language: "en", Depth: 2,
	})
	require.NoError(t, err)

	names := make([]string, 0, len(resp.Nodes))
	for _, n := range resp.Nodes {
		names = append(names, n.Term)
	}
	assert.ElementsMatch(t, []string{"bioreactor", "pressure sensor", "agitator"}, names)
	assert.Len(t, resp.Edges, 2)

	// Depth is baked into the pattern, not passed as a parameter.
	require.Len(t, tx.calls, 2)
	assert.Contains(t, tx.calls[1].cypher, "[*1..2]")
}

func TestNeighbors_DefaultsDepthToOne(t *testing.T) {
	centerLookup := &fakeResult{records: []*neo4j.Record{
		{Keys: []string{"c"}, Values: []any{termNode("bioreactor", "en")}},
	}}
	tx := &fakeTx{results: []*fakeResult{centerLookup, {}}}
	repo := newRepo(tx)

	resp, err := repo.Neighbors(context.Background(), gtypes.TermGraphRequest{
		Term: "bioreactor", Language: "en",
	})
	require.NoError(t, err)
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, "bioreactor", resp.Nodes[0].Term)
	assert.Empty(t, resp.Edges)
	assert.Contains(t, tx.calls[1].cypher, "[*1..1]")
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteByTerm
// ─────────────────────────────────────────────────────────────────────────────

func TestDeleteByTerm_DetachDeletes(t *testing.T) {
	tx := &fakeTx{}
	repo := newRepo(tx)

	err := repo.DeleteByTerm(context.Background(), "bioreactor", "en")
	require.NoError(t, err)
	require.Len(t, tx.calls, 1)
	assert.Contains(t, tx.calls[0].cypher, "DETACH DELETE")
	assert.Equal(t, "bioreactor", tx.calls[0].params["term"])
}

func TestDeleteByTerm_RequiresTerm(t *testing.T) {
	repo := newRepo(&fakeTx{})

	err := repo.DeleteByTerm(context.Background(), "", "en")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
