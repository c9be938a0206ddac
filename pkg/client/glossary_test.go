package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

func TestGlossaryListTerms_EncodesFilters(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/terms", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "en", query.Get("language"))
		assert.Equal(t, "linguistic", query.Get("method"))
		assert.Equal(t, "3", query.Get("min_frequency"))
		assert.Equal(t, "0.6", query.Get("min_confidence"))
		json.NewEncoder(w).Encode(gtypes.TermSearchResponse{Total: 42})
	})

	resp, err := c.Glossary().ListTerms(context.Background(), &TermFilter{
		Language:      "en",
		Method:        "linguistic",
		MinFrequency:  3,
		MinConfidence: 0.6,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 42, resp.Total)
}

func TestGlossaryGetTerm_EscapesPath(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/terms/gas%20holdup", r.URL.EscapedPath())
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		json.NewEncoder(w).Encode(gtypes.TermDTO{Term: "gas holdup", Language: "en"})
	})

	dto, err := c.Glossary().GetTerm(context.Background(), "gas holdup", "en")
	require.NoError(t, err)
	assert.Equal(t, "gas holdup", dto.Term)
}

func TestGlossaryGetTerm_RequiresTerm(t *testing.T) {
	c, err := NewClient("http://localhost:8080")
	require.NoError(t, err)

	_, err = c.Glossary().GetTerm(context.Background(), "", "en")
	assert.Error(t, err)
}

func TestGlossarySearch_DecodesHits(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "impeller", r.URL.Query().Get("q"))
		w.Write([]byte(`{
			"hits": [
				{"term": {"term": "rushton turbine", "language": "en", "frequency": 7}, "score": 2.4,
				 "highlights": {"definitions": ["a radial <em>impeller</em>"]}}
			],
			"total": 1, "page": 1, "page_size": 20, "took_ms": 3
		}`))
	})

	result, err := c.Glossary().Search(context.Background(), &SearchRequest{Query: "impeller"})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, 2.4, result.Hits[0].Score)

	terms := result.TermHits()
	require.Len(t, terms, 1)
	assert.Equal(t, "rushton turbine", terms[0].Term)
	assert.Equal(t, 7, terms[0].Frequency)
}

func TestGlossarySearch_RequiresQuery(t *testing.T) {
	c, err := NewClient("http://localhost:8080")
	require.NoError(t, err)

	_, err = c.Glossary().Search(context.Background(), &SearchRequest{})
	assert.Error(t, err)
}

func TestGlossarySuggest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/suggest", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "rush", query.Get("q"))
		assert.Equal(t, "5", query.Get("size"))
		w.Write([]byte(`{"suggestions": ["rushton turbine"]}`))
	})

	suggestions, err := c.Glossary().Suggest(context.Background(), "rush", "", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"rushton turbine"}, suggestions)
}

func TestGlossaryGraph_EncodesTraversalParams(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/terms/impeller/graph", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "en", query.Get("language"))
		assert.Equal(t, "2", query.Get("depth"))
		assert.Equal(t, "USES,PART_OF", query.Get("types"))
		json.NewEncoder(w).Encode(gtypes.TermGraphResponse{
			Nodes: []gtypes.GraphNode{{Term: "impeller", Language: "en"}},
		})
	})

	resp, err := c.Glossary().Graph(context.Background(), &GraphRequest{
		Term:     "impeller",
		Language: "en",
		Depth:    2,
		Types:    []string{"USES", "PART_OF"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, "impeller", resp.Nodes[0].Term)
}

func TestGlossaryGraph_RequiresTerm(t *testing.T) {
	c, err := NewClient("http://localhost:8080")
	require.NoError(t, err)

	_, err = c.Glossary().Graph(context.Background(), &GraphRequest{})
	assert.Error(t, err)
}
