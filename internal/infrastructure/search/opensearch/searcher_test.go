package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
)

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *Searcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL, "termforge-")
	return NewSearcher(client, SearcherConfig{}, logging.NewNopLogger())
}

func TestSearch_RequiresIndexName(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := searcher.Search(context.Background(), SearchRequest{})
	assert.Error(t, err)
}

func TestSearch_ParsesHitsAndHighlights(t *testing.T) {
	var gotDSL map[string]interface{}
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/termforge-glossary/_search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotDSL))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"took": 4,
			"hits": {
				"total": {"value": 2},
				"max_score": 1.7,
				"hits": [
					{"_id": "term-1", "_score": 1.7, "_source": {"term": "enzyme"}, "highlight": {"definitions": ["a <em>protein</em> catalyst"]}},
					{"_id": "term-2", "_score": 0.9, "_source": {"term": "substrate"}}
				]
			}
		}`))
	})

	result, err := searcher.Search(context.Background(), SearchRequest{
		IndexName: "termforge-glossary",
		Query: &Query{
			QueryType: "multi_match",
			Fields:    []string{"term", "definitions"},
			Value:     "protein",
		},
		Filters:   []Filter{{Field: "language", FilterType: "term", Value: "en"}},
		Highlight: &HighlightConfig{Fields: []string{"definitions"}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Total)
	assert.InDelta(t, 1.7, result.MaxScore, 1e-9)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "term-1", result.Hits[0].ID)
	assert.Contains(t, result.Hits[0].Highlights["definitions"][0], "protein")

	// Filters wrap the query in a bool clause.
	boolClause := gotDSL["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Contains(t, boolClause, "must")
	assert.Contains(t, boolClause, "filter")
	hl := gotDSL["highlight"].(map[string]interface{})
	assert.Contains(t, hl["fields"], "definitions")
}

func TestSearch_ClampsPagination(t *testing.T) {
	var gotDSL map[string]interface{}
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotDSL))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"took":1,"hits":{"total":{"value":0},"hits":[]}}`))
	})

	_, err := searcher.Search(context.Background(), SearchRequest{
		IndexName:  "termforge-glossary",
		Pagination: &Pagination{Offset: -5, Limit: 10000},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(0), gotDSL["from"])
	assert.Equal(t, float64(100), gotDSL["size"]) // default MaxPageSize
}

func TestSearch_ErrorResponse(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"parsing_exception","reason":"unknown query"}}`))
	})

	_, err := searcher.Search(context.Background(), SearchRequest{
		IndexName: "termforge-glossary",
		Query:     &Query{QueryType: "match", Field: "term", Value: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing_exception")
}

func TestCount(t *testing.T) {
	var gotDSL map[string]interface{}
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_count"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotDSL))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count": 42}`))
	})

	count, err := searcher.Count(context.Background(), "termforge-glossary",
		&Query{QueryType: "term", Field: "language", Value: "en"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)

	// Count bodies carry only the query clause.
	assert.Contains(t, gotDSL, "query")
	assert.NotContains(t, gotDSL, "size")
}

func TestScrollSearch_DrainsAllBatchesAndClearsScroll(t *testing.T) {
	scrollCleared := false
	scrollFetches := 0
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_search"):
			w.Write([]byte(`{"_scroll_id":"cursor-1","hits":{"total":{"value":3},"hits":[
				{"_id":"term-1","_score":1.0,"_source":{"term":"a"}},
				{"_id":"term-2","_score":1.0,"_source":{"term":"b"}}
			]}}`))
		case r.Method == http.MethodDelete:
			scrollCleared = true
			w.Write([]byte(`{"succeeded":true}`))
		default:
			scrollFetches++
			if scrollFetches == 1 {
				w.Write([]byte(`{"_scroll_id":"cursor-2","hits":{"hits":[
					{"_id":"term-3","_score":1.0,"_source":{"term":"c"}}
				]}}`))
				return
			}
			w.Write([]byte(`{"_scroll_id":"cursor-2","hits":{"hits":[]}}`))
		}
	})

	var seen []string
	err := searcher.ScrollSearch(context.Background(), SearchRequest{
		IndexName: "termforge-glossary",
	}, func(hits []SearchHit) error {
		for _, h := range hits {
			seen = append(seen, h.ID)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"term-1", "term-2", "term-3"}, seen)
	assert.True(t, scrollCleared)
}

func TestScrollSearch_HandlerErrorStopsEarly(t *testing.T) {
	scrollCleared := false
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodDelete {
			scrollCleared = true
			w.Write([]byte(`{"succeeded":true}`))
			return
		}
		w.Write([]byte(`{"_scroll_id":"cursor-1","hits":{"hits":[
			{"_id":"term-1","_score":1.0,"_source":{"term":"a"}}
		]}}`))
	})

	wantErr := assert.AnError
	err := searcher.ScrollSearch(context.Background(), SearchRequest{
		IndexName: "termforge-glossary",
	}, func(hits []SearchHit) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.True(t, scrollCleared)
}

func TestSuggest(t *testing.T) {
	var gotDSL map[string]interface{}
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotDSL))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"suggest": {
				"prefix-suggest": [
					{"options": [{"text": "polymer"}, {"text": "polymerase"}]}
				]
			}
		}`))
	})

	suggestions, err := searcher.Suggest(context.Background(), "termforge-glossary", "term.suggest", "poly", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"polymer", "polymerase"}, suggestions)

	suggest := gotDSL["suggest"].(map[string]interface{})["prefix-suggest"].(map[string]interface{})
	assert.Equal(t, "poly", suggest["prefix"])
	completion := suggest["completion"].(map[string]interface{})
	assert.Equal(t, "term.suggest", completion["field"])
}

func TestBuildQuery_Types(t *testing.T) {
	s := NewSearcher(nil, SearcherConfig{}, logging.NewNopLogger())

	match := s.buildQuery(&Query{QueryType: "match", Field: "term", Value: "enzyme", Boost: 2.0})
	inner := match["match"].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, "enzyme", inner["query"])
	assert.Equal(t, 2.0, inner["boost"])

	boolQ := s.buildQuery(&Query{
		QueryType: "bool",
		Must:      []Query{{QueryType: "term", Field: "language", Value: "en"}},
		MustNot:   []Query{{QueryType: "exists", Field: "deleted_at"}},
	})
	clause := boolQ["bool"].(map[string]interface{})
	assert.Len(t, clause["must"], 1)
	assert.Len(t, clause["must_not"], 1)

	assert.Nil(t, s.buildQuery(&Query{QueryType: "geo_distance"}))
}

func TestBuildFilter_Range(t *testing.T) {
	s := NewSearcher(nil, SearcherConfig{}, logging.NewNopLogger())

	f := s.buildFilter(Filter{Field: "frequency", FilterType: "range", RangeFrom: 2, RangeTo: 10})
	rangeMap := f["range"].(map[string]interface{})["frequency"].(map[string]interface{})
	assert.Equal(t, 2, rangeMap["gte"])
	assert.Equal(t, 10, rangeMap["lte"])
}

func TestBuildAggregations_Nested(t *testing.T) {
	s := NewSearcher(nil, SearcherConfig{}, logging.NewNopLogger())

	dsl := s.buildAggregations(map[string]Aggregation{
		"by_language": {
			AggType: "terms",
			Field:   "language",
			Size:    10,
			SubAggregations: map[string]Aggregation{
				"avg_confidence": {AggType: "avg", Field: "confidence"},
			},
		},
	})

	byLang := dsl["by_language"].(map[string]interface{})
	assert.Contains(t, byLang, "terms")
	sub := byLang["aggs"].(map[string]interface{})["avg_confidence"].(map[string]interface{})
	assert.Equal(t, "confidence", sub["avg"].(map[string]interface{})["field"])
}

func TestParseAggregationResult(t *testing.T) {
	s := NewSearcher(nil, SearcherConfig{}, logging.NewNopLogger())

	raw := json.RawMessage(`{
		"buckets": [
			{"key": "en", "doc_count": 12, "avg_confidence": {"value": 0.8}},
			{"key": "de", "doc_count": 3}
		]
	}`)
	res := s.parseAggregationResult(raw)

	require.Len(t, res.Buckets, 2)
	assert.Equal(t, "en", res.Buckets[0].KeyAsString)
	assert.Equal(t, int64(12), res.Buckets[0].DocCount)
	sub, ok := res.Buckets[0].SubAggregations["avg_confidence"]
	require.True(t, ok)
	require.NotNil(t, sub.Value)
	assert.InDelta(t, 0.8, *sub.Value, 1e-9)

	metric := s.parseAggregationResult(json.RawMessage(`{"value": 7.5}`))
	require.NotNil(t, metric.Value)
	assert.InDelta(t, 7.5, *metric.Value, 1e-9)
}
