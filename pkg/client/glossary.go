package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// GlossaryClient groups the glossary read endpoints.
type GlossaryClient struct {
	client *Client
}

// TermFilter describes the optional filters shared by term listing and
// search.
type TermFilter struct {
	Language      string
	Method        string
	MinFrequency  int
	MinConfidence float64
	Page          int
	PageSize      int
}

// SearchRequest describes a full-text glossary search.
type SearchRequest struct {
	// Query is the search text. Required.
	Query string

	TermFilter
}

// SearchHit is one relevance-ranked search result with optional highlighted
// fragments.
type SearchHit struct {
	Term       map[string]interface{} `json:"term"`
	Score      float64                `json:"score"`
	Highlights map[string][]string    `json:"highlights,omitempty"`
}

// SearchResult is a page of relevance-ranked search hits.
type SearchResult struct {
	Hits     []SearchHit `json:"hits"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	TookMs   int64       `json:"took_ms"`
}

// GraphRequest describes a relationship-graph neighborhood query.
type GraphRequest struct {
	// Term is the term at the center of the query. Required.
	Term string

	// Language selects the glossary partition. Required.
	Language string

	// Depth is the number of relationship hops, 1 to 3. Zero selects 1.
	Depth int

	// Types restricts traversal to the listed relation types.
	Types []string

	// MinConfidence excludes relationships below the given confidence.
	MinConfidence float64
}

func (f TermFilter) encode(params url.Values) {
	if f.Language != "" {
		params.Set("language", f.Language)
	}
	if f.Method != "" {
		params.Set("method", f.Method)
	}
	if f.MinFrequency > 0 {
		params.Set("min_frequency", strconv.Itoa(f.MinFrequency))
	}
	if f.MinConfidence > 0 {
		params.Set("min_confidence", strconv.FormatFloat(f.MinConfidence, 'f', -1, 64))
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(f.PageSize))
	}
}

// ListTerms returns a page of glossary entries ordered by descending
// frequency.
func (gc *GlossaryClient) ListTerms(ctx context.Context, filter *TermFilter) (*gtypes.TermSearchResponse, error) {
	params := url.Values{}
	if filter != nil {
		filter.encode(params)
	}

	path := "/api/v1/terms"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp gtypes.TermSearchResponse
	if err := gc.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTerm returns the glossary entry for a term. The server normalizes the
// term, so any surface form resolves.
func (gc *GlossaryClient) GetTerm(ctx context.Context, term, language string) (*gtypes.TermDTO, error) {
	if term == "" {
		return nil, fmt.Errorf("client: term is required")
	}

	path := "/api/v1/terms/" + url.PathEscape(term)
	if language != "" {
		path += "?language=" + url.QueryEscape(language)
	}

	var resp gtypes.TermDTO
	if err := gc.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search runs a relevance-ranked full-text search over terms and
// definitions.
func (gc *GlossaryClient) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req == nil || req.Query == "" {
		return nil, fmt.Errorf("client: query is required")
	}

	params := url.Values{}
	params.Set("q", req.Query)
	req.TermFilter.encode(params)

	var resp SearchResult
	if err := gc.client.get(ctx, "/api/v1/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TermHits decodes the hits of a search result into typed TermDTOs,
// skipping any hit that does not decode cleanly.
func (r *SearchResult) TermHits() []gtypes.TermDTO {
	terms := make([]gtypes.TermDTO, 0, len(r.Hits))
	for _, hit := range r.Hits {
		raw, err := json.Marshal(hit.Term)
		if err != nil {
			continue
		}
		var dto gtypes.TermDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			continue
		}
		terms = append(terms, dto)
	}
	return terms
}

// Suggest returns term completions for a prefix.
func (gc *GlossaryClient) Suggest(ctx context.Context, prefix, language string, size int) ([]string, error) {
	if prefix == "" {
		return nil, fmt.Errorf("client: prefix is required")
	}

	params := url.Values{}
	params.Set("q", prefix)
	if language != "" {
		params.Set("language", language)
	}
	if size > 0 {
		params.Set("size", strconv.Itoa(size))
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := gc.client.get(ctx, "/api/v1/suggest?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Graph returns the relationship neighborhood of a term.
func (gc *GlossaryClient) Graph(ctx context.Context, req *GraphRequest) (*gtypes.TermGraphResponse, error) {
	if req == nil || req.Term == "" {
		return nil, fmt.Errorf("client: term is required")
	}

	params := url.Values{}
	if req.Language != "" {
		params.Set("language", req.Language)
	}
	if req.Depth > 0 {
		params.Set("depth", strconv.Itoa(req.Depth))
	}
	if len(req.Types) > 0 {
		params.Set("types", strings.Join(req.Types, ","))
	}
	if req.MinConfidence > 0 {
		params.Set("min_confidence", strconv.FormatFloat(req.MinConfidence, 'f', -1, 64))
	}

	path := "/api/v1/terms/" + url.PathEscape(req.Term) + "/graph"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp gtypes.TermGraphResponse
	if err := gc.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
