package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appglossary "github.com/lexforge/TermForge-Intelligence/internal/application/glossary"
	domainglossary "github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockEntries struct {
	mock.Mock
}

func (m *mockEntries) Save(ctx context.Context, entry *domainglossary.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockEntries) Update(ctx context.Context, entry *domainglossary.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockEntries) FindByID(ctx context.Context, id common.ID) (*domainglossary.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainglossary.Entry), args.Error(1)
}

func (m *mockEntries) FindByTerm(ctx context.Context, normalized, language string) (*domainglossary.Entry, error) {
	args := m.Called(ctx, normalized, language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainglossary.Entry), args.Error(1)
}

func (m *mockEntries) List(ctx context.Context, req gtypes.TermSearchRequest) (*gtypes.TermSearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gtypes.TermSearchResponse), args.Error(1)
}

func (m *mockEntries) Delete(ctx context.Context, id common.ID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEntries) Count(ctx context.Context, language string) (int64, error) {
	args := m.Called(ctx, language)
	return args.Get(0).(int64), args.Error(1)
}

type mockRelations struct {
	mock.Mock
}

func (m *mockRelations) Upsert(ctx context.Context, language string, relations []*domainglossary.Relation) error {
	return m.Called(ctx, language, relations).Error(0)
}

func (m *mockRelations) Neighbors(ctx context.Context, req gtypes.TermGraphRequest) (*gtypes.TermGraphResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gtypes.TermGraphResponse), args.Error(1)
}

func (m *mockRelations) DeleteByTerm(ctx context.Context, normalized, language string) error {
	return m.Called(ctx, normalized, language).Error(0)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req opensearch.SearchRequest) (*opensearch.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*opensearch.SearchResult), args.Error(1)
}

func (m *mockSearcher) Suggest(ctx context.Context, indexName, field, prefix string, size int) ([]string, error) {
	args := m.Called(ctx, indexName, field, prefix, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// memoryCache is an in-process ReadCache for read-through tests.
type memoryCache struct {
	values map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func newTestService(entries *mockEntries, relations *mockRelations, searcher TermSearcher, cache ReadCache) Service {
	return NewService(entries, relations, searcher, "termforge-glossary", cache, logging.NewNopLogger(), nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// ListTerms / GetTerm
// ─────────────────────────────────────────────────────────────────────────────

func TestListTerms_NormalizesPagination(t *testing.T) {
	entries := new(mockEntries)
	svc := newTestService(entries, new(mockRelations), nil, nil)

	entries.On("List", mock.Anything, mock.MatchedBy(func(req gtypes.TermSearchRequest) bool {
		return req.Pagination.Page == 1 && req.Pagination.PageSize == 20
	})).Return(&gtypes.TermSearchResponse{}, nil)

	_, err := svc.ListTerms(context.Background(), gtypes.TermSearchRequest{})

	require.NoError(t, err)
	entries.AssertExpectations(t)
}

func TestListTerms_ClampsPageSize(t *testing.T) {
	entries := new(mockEntries)
	svc := newTestService(entries, new(mockRelations), nil, nil)

	entries.On("List", mock.Anything, mock.MatchedBy(func(req gtypes.TermSearchRequest) bool {
		return req.Pagination.PageSize == 100
	})).Return(&gtypes.TermSearchResponse{}, nil)

	_, err := svc.ListTerms(context.Background(), gtypes.TermSearchRequest{
		Pagination: common.Pagination{Page: 1, PageSize: 5000},
	})

	require.NoError(t, err)
}

func glossaryEntry(t *testing.T, term string) *domainglossary.Entry {
	t.Helper()
	entry, err := domainglossary.NewEntry(term, "en", gtypes.MethodPattern, 0.8)
	require.NoError(t, err)
	entry.Frequency = 4
	entry.Events()
	return entry
}

func TestGetTerm_ReadsThroughCache(t *testing.T) {
	entries := new(mockEntries)
	cache := newMemoryCache()
	svc := newTestService(entries, new(mockRelations), nil, cache)

	entry := glossaryEntry(t, "Gas Holdup")
	entries.On("FindByTerm", mock.Anything, "gas holdup", "en").Return(entry, nil).Once()

	first, err := svc.GetTerm(context.Background(), "Gas  Holdup", "EN")
	require.NoError(t, err)
	assert.Equal(t, "gas holdup", first.Normalized)

	// Second read must come from the cache: the repository expectation is
	// Once and would fail on a second call.
	second, err := svc.GetTerm(context.Background(), "gas holdup", "en")
	require.NoError(t, err)
	assert.Equal(t, first.Normalized, second.Normalized)
	entries.AssertExpectations(t)
}

func TestGetTerm_RequiresTermAndLanguage(t *testing.T) {
	svc := newTestService(new(mockEntries), new(mockRelations), nil, nil)

	_, err := svc.GetTerm(context.Background(), "  ", "en")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = svc.GetTerm(context.Background(), "polymer", "")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestGetTerm_NotFoundPassesThrough(t *testing.T) {
	entries := new(mockEntries)
	svc := newTestService(entries, new(mockRelations), nil, nil)

	entries.On("FindByTerm", mock.Anything, "missing", "en").
		Return(nil, errors.New(errors.ErrCodeTermNotFound, "not found"))

	_, err := svc.GetTerm(context.Background(), "missing", "en")

	assert.True(t, errors.IsCode(err, errors.ErrCodeTermNotFound))
}

// ─────────────────────────────────────────────────────────────────────────────
// SearchTerms / Suggest
// ─────────────────────────────────────────────────────────────────────────────

func TestSearchTerms_BuildsFilteredRequest(t *testing.T) {
	searcher := new(mockSearcher)
	svc := newTestService(new(mockEntries), new(mockRelations), searcher, nil)

	source, err := json.Marshal(opensearch.TermDocument{
		ID: "term-1", Term: "polymer", Normalized: "polymer", Language: "en", Frequency: 7,
	})
	require.NoError(t, err)

	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req opensearch.SearchRequest) bool {
		if req.IndexName != "termforge-glossary" || req.Query.QueryType != "multi_match" {
			return false
		}
		if len(req.Filters) != 2 {
			return false
		}
		return req.Filters[0].Field == "language" && req.Filters[1].Field == "frequency"
	})).Return(&opensearch.SearchResult{
		Total: 1,
		Hits: []opensearch.SearchHit{{
			ID: "term-1", Score: 2.4, Source: source,
			Highlights: map[string][]string{"term": {"<em>polymer</em>"}},
		}},
		TookMs: 3,
	}, nil)

	language := "en"
	minFreq := 2
	result, err := svc.SearchTerms(context.Background(), gtypes.TermSearchRequest{
		Query:        "polymer",
		Language:     &language,
		MinFrequency: &minFreq,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "polymer", result.Hits[0].Term.Term)
	assert.Equal(t, 2.4, result.Hits[0].Score)
	assert.Contains(t, result.Hits[0].Highlights["term"][0], "polymer")
}

func TestSearchTerms_RequiresQuery(t *testing.T) {
	svc := newTestService(new(mockEntries), new(mockRelations), new(mockSearcher), nil)

	_, err := svc.SearchTerms(context.Background(), gtypes.TermSearchRequest{Query: "  "})

	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestSearchTerms_UnavailableWithoutSearcher(t *testing.T) {
	svc := newTestService(new(mockEntries), new(mockRelations), nil, nil)

	_, err := svc.SearchTerms(context.Background(), gtypes.TermSearchRequest{Query: "polymer"})

	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestSuggest(t *testing.T) {
	searcher := new(mockSearcher)
	svc := newTestService(new(mockEntries), new(mockRelations), searcher, nil)

	searcher.On("Suggest", mock.Anything, "termforge-glossary", "term.suggest", "poly", 5).
		Return([]string{"polymer", "polymerase"}, nil)

	suggestions, err := svc.Suggest(context.Background(), "poly", "en", 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"polymer", "polymerase"}, suggestions)
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph
// ─────────────────────────────────────────────────────────────────────────────

func TestGraph_NormalizesAndCaches(t *testing.T) {
	relations := new(mockRelations)
	cache := newMemoryCache()
	svc := newTestService(new(mockEntries), relations, nil, cache)

	response := &gtypes.TermGraphResponse{
		Nodes: []gtypes.GraphNode{{Term: "gas holdup", Language: "en"}},
		Edges: []gtypes.GraphEdge{{SourceTerm: "gas holdup", TargetTerm: "impeller", Type: gtypes.RelationAffects, Confidence: 0.6}},
	}
	relations.On("Neighbors", mock.Anything, mock.MatchedBy(func(req gtypes.TermGraphRequest) bool {
		return req.Term == "gas holdup" && req.Language == "en" && req.Depth == 1
	})).Return(response, nil).Once()

	first, err := svc.Graph(context.Background(), gtypes.TermGraphRequest{Term: "Gas Holdup", Language: "EN"})
	require.NoError(t, err)
	require.Len(t, first.Edges, 1)

	second, err := svc.Graph(context.Background(), gtypes.TermGraphRequest{Term: "gas holdup", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, first.Edges, second.Edges)
	relations.AssertExpectations(t)
}

func TestGraph_RejectsExcessiveDepth(t *testing.T) {
	svc := newTestService(new(mockEntries), new(mockRelations), nil, nil)

	_, err := svc.Graph(context.Background(), gtypes.TermGraphRequest{
		Term: "polymer", Language: "en", Depth: 4,
	})

	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestGraphCacheKey_EncodesEveryDimension(t *testing.T) {
	a := graphCacheKey(gtypes.TermGraphRequest{Term: "polymer", Language: "en", Depth: 1})
	b := graphCacheKey(gtypes.TermGraphRequest{Term: "polymer", Language: "en", Depth: 2})
	c := graphCacheKey(gtypes.TermGraphRequest{Term: "polymer", Language: "en", Depth: 1,
		Types: []gtypes.RelationType{gtypes.RelationUses}})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, len(a) > len(appglossary.GraphCachePrefix))
}
