package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
)

// SearcherConfig holds configuration for the Searcher.
type SearcherConfig struct {
	DefaultPageSize         int
	MaxPageSize             int
	DefaultHighlightPreTag  string
	DefaultHighlightPostTag string
	ScrollKeepAlive         time.Duration
	MaxScrollSize           int
}

// SearchRequest defines a search against one index.
type SearchRequest struct {
	IndexName      string
	Query          *Query
	Filters        []Filter
	Sort           []SortField
	Pagination     *Pagination
	Highlight      *HighlightConfig
	Aggregations   map[string]Aggregation
	SourceIncludes []string
	SourceExcludes []string
}

// Query is a recursive query node translated into OpenSearch DSL.
type Query struct {
	QueryType          string // match, multi_match, term, terms, range, bool, match_phrase, wildcard, exists
	Field              string
	Fields             []string
	Value              interface{}
	Boost              float64
	Must               []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch string
}

// Filter is a non-scoring filter clause.
type Filter struct {
	Field      string
	FilterType string // term, terms, range, exists
	Value      interface{}
	RangeFrom  interface{}
	RangeTo    interface{}
}

// SortField defines sorting criteria.
type SortField struct {
	Field string
	Order string
}

// Pagination defines offset paging.
type Pagination struct {
	Offset int
	Limit  int
}

// HighlightConfig defines highlighting settings.
type HighlightConfig struct {
	Fields            []string
	PreTag            string
	PostTag           string
	FragmentSize      int
	NumberOfFragments int
}

// Aggregation defines an aggregation node.
type Aggregation struct {
	AggType         string // terms, date_histogram, range, avg, sum, cardinality
	Field           string
	Size            int
	Interval        string
	Ranges          []AggRange
	SubAggregations map[string]Aggregation
}

// AggRange defines a bucket boundary for range aggregations.
type AggRange struct {
	Key  string
	From interface{}
	To   interface{}
}

// SearchResult holds the parsed search response.
type SearchResult struct {
	Total        int64
	MaxScore     float64
	Hits         []SearchHit
	Aggregations map[string]AggregationResult
	TookMs       int64
}

// SearchHit represents a single search hit.
type SearchHit struct {
	ID         string
	Score      float64
	Source     json.RawMessage
	Highlights map[string][]string
	Sort       []interface{}
}

// AggregationResult holds either buckets or a single metric value.
type AggregationResult struct {
	Buckets []AggBucket
	Value   *float64
}

// AggBucket represents a bucket in an aggregation result.
type AggBucket struct {
	Key             interface{}
	KeyAsString     string
	DocCount        int64
	SubAggregations map[string]AggregationResult
}

// Searcher executes queries against the search cluster.
type Searcher struct {
	client *Client
	config SearcherConfig
	logger logging.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(client *Client, cfg SearcherConfig, logger logging.Logger) *Searcher {
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.DefaultHighlightPreTag == "" {
		cfg.DefaultHighlightPreTag = "<em>"
	}
	if cfg.DefaultHighlightPostTag == "" {
		cfg.DefaultHighlightPostTag = "</em>"
	}
	if cfg.ScrollKeepAlive == 0 {
		cfg.ScrollKeepAlive = 5 * time.Minute
	}
	if cfg.MaxScrollSize == 0 {
		cfg.MaxScrollSize = 1000
	}
	return &Searcher{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// Search executes a search request.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.IndexName == "" {
		return nil, errors.New(errors.ErrCodeValidation, "IndexName is required")
	}

	if req.Pagination == nil {
		req.Pagination = &Pagination{Offset: 0, Limit: s.config.DefaultPageSize}
	}
	if req.Pagination.Limit > s.config.MaxPageSize {
		req.Pagination.Limit = s.config.MaxPageSize
	}
	if req.Pagination.Offset < 0 {
		req.Pagination.Offset = 0
	}

	dsl, err := s.buildQueryDSL(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal query DSL")
	}

	osReq := opensearchapi.SearchRequest{
		Index: []string{req.IndexName},
		Body:  bytes.NewReader(body),
	}

	start := time.Now()
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.ErrCodeTimeout, "search request timed out")
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "search request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, s.handleErrorResponse(resp)
	}

	result, err := s.parseSearchResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search executed",
		logging.String("index", req.IndexName),
		logging.Int64("took_ms", time.Since(start).Milliseconds()),
		logging.Int64("hits", result.Total))
	return result, nil
}

// Count returns the number of documents matching the query.
func (s *Searcher) Count(ctx context.Context, indexName string, query *Query, filters []Filter) (int64, error) {
	dsl, err := s.buildQueryDSL(SearchRequest{
		IndexName: indexName,
		Query:     query,
		Filters:   filters,
	})
	if err != nil {
		return 0, err
	}

	// The count API accepts only the query clause.
	countDSL := map[string]interface{}{}
	if q, ok := dsl["query"]; ok {
		countDSL["query"] = q
	}
	body, err := json.Marshal(countDSL)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal count query")
	}

	osReq := opensearchapi.CountRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(body),
	}
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeExternalService, "count request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return 0, s.handleErrorResponse(resp)
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode count response")
	}
	return countResp.Count, nil
}

// ScrollSearch streams every match through batchHandler. The scroll context
// is cleared on every exit path.
func (s *Searcher) ScrollSearch(ctx context.Context, req SearchRequest, batchHandler func(hits []SearchHit) error) error {
	dsl, err := s.buildQueryDSL(req)
	if err != nil {
		return err
	}
	if req.Pagination == nil {
		dsl["size"] = s.config.MaxScrollSize
	} else {
		dsl["size"] = req.Pagination.Limit
	}
	delete(dsl, "from") // scroll always advances from the cursor

	body, err := json.Marshal(dsl)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal scroll query")
	}

	osReq := opensearchapi.SearchRequest{
		Index:  []string{req.IndexName},
		Body:   bytes.NewReader(body),
		Scroll: s.config.ScrollKeepAlive,
	}
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "initial scroll request failed")
	}
	if resp.IsError() {
		err := s.handleErrorResponse(resp)
		resp.Body.Close()
		return err
	}

	scrollID, hits, err := s.decodeScrollBatch(resp.Body)
	resp.Body.Close()
	if err != nil {
		s.clearScroll(ctx, scrollID)
		return err
	}

	for len(hits) > 0 {
		if err := batchHandler(hits); err != nil {
			s.clearScroll(ctx, scrollID)
			return err
		}

		scrollReq := opensearchapi.ScrollRequest{
			ScrollID: scrollID,
			Scroll:   s.config.ScrollKeepAlive,
		}
		resp, err := scrollReq.Do(ctx, s.client.GetClient())
		if err != nil {
			s.clearScroll(ctx, scrollID)
			return errors.Wrap(err, errors.ErrCodeExternalService, "scroll request failed")
		}
		if resp.IsError() {
			err := s.handleErrorResponse(resp)
			resp.Body.Close()
			s.clearScroll(ctx, scrollID)
			return err
		}

		var nextID string
		nextID, hits, err = s.decodeScrollBatch(resp.Body)
		resp.Body.Close()
		if err != nil {
			s.clearScroll(ctx, scrollID)
			return err
		}
		if nextID != "" {
			scrollID = nextID
		}
	}

	return s.clearScroll(ctx, scrollID)
}

func (s *Searcher) decodeScrollBatch(body io.Reader) (string, []SearchHit, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return "", nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode scroll response")
	}
	scrollID, _ := raw["_scroll_id"].(string)
	hitsRaw, _ := raw["hits"].(map[string]interface{})
	hitsList, _ := hitsRaw["hits"].([]interface{})
	if len(hitsList) == 0 {
		return scrollID, nil, nil
	}
	hits, err := s.parseHits(hitsList)
	return scrollID, hits, err
}

func (s *Searcher) clearScroll(ctx context.Context, scrollID string) error {
	if scrollID == "" {
		return nil
	}
	req := opensearchapi.ClearScrollRequest{
		ScrollID: []string{scrollID},
	}
	resp, err := req.Do(ctx, s.client.GetClient())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Suggest returns completion suggestions for a prefix. The field must carry
// a completion mapping, e.g. "term.suggest" on the glossary index.
func (s *Searcher) Suggest(ctx context.Context, indexName string, field string, prefix string, size int) ([]string, error) {
	if size <= 0 {
		size = 10
	}
	const suggestName = "prefix-suggest"
	dsl := map[string]interface{}{
		"suggest": map[string]interface{}{
			suggestName: map[string]interface{}{
				"prefix": prefix,
				"completion": map[string]interface{}{
					"field": field,
					"size":  size,
				},
			},
		},
	}
	body, err := json.Marshal(dsl)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal suggest query")
	}

	osReq := opensearchapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(body),
	}
	resp, err := osReq.Do(ctx, s.client.GetClient())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "suggest request failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, s.handleErrorResponse(resp)
	}

	var suggestResp struct {
		Suggest map[string][]struct {
			Options []struct {
				Text string `json:"text"`
			} `json:"options"`
		} `json:"suggest"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&suggestResp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode suggest response")
	}

	var suggestions []string
	for _, entry := range suggestResp.Suggest[suggestName] {
		for _, option := range entry.Options {
			suggestions = append(suggestions, option.Text)
		}
	}
	return suggestions, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DSL construction
// ─────────────────────────────────────────────────────────────────────────────

func (s *Searcher) buildQueryDSL(req SearchRequest) (map[string]interface{}, error) {
	dsl := map[string]interface{}{}

	var queryMap map[string]interface{}
	if req.Query != nil {
		queryMap = s.buildQuery(req.Query)
	}

	if len(req.Filters) > 0 {
		filterClauses := make([]map[string]interface{}, len(req.Filters))
		for i, f := range req.Filters {
			filterClauses[i] = s.buildFilter(f)
		}
		boolQuery := map[string]interface{}{
			"filter": filterClauses,
		}
		if queryMap != nil {
			boolQuery["must"] = queryMap
		} else {
			boolQuery["must"] = map[string]interface{}{"match_all": map[string]interface{}{}}
		}
		queryMap = map[string]interface{}{"bool": boolQuery}
	}
	if queryMap != nil {
		dsl["query"] = queryMap
	}

	if req.Pagination != nil {
		dsl["from"] = req.Pagination.Offset
		dsl["size"] = req.Pagination.Limit
	}

	if len(req.Sort) > 0 {
		sortList := make([]map[string]interface{}, len(req.Sort))
		for i, sort := range req.Sort {
			sortList[i] = map[string]interface{}{
				sort.Field: map[string]interface{}{"order": sort.Order},
			}
		}
		dsl["sort"] = sortList
	}

	if req.Highlight != nil {
		hl := *req.Highlight
		if hl.PreTag == "" {
			hl.PreTag = s.config.DefaultHighlightPreTag
		}
		if hl.PostTag == "" {
			hl.PostTag = s.config.DefaultHighlightPostTag
		}
		fields := map[string]interface{}{}
		for _, f := range hl.Fields {
			fields[f] = map[string]interface{}{}
		}
		dsl["highlight"] = map[string]interface{}{
			"fields":              fields,
			"pre_tags":            []string{hl.PreTag},
			"post_tags":           []string{hl.PostTag},
			"fragment_size":       hl.FragmentSize,
			"number_of_fragments": hl.NumberOfFragments,
		}
	}

	if len(req.Aggregations) > 0 {
		dsl["aggs"] = s.buildAggregations(req.Aggregations)
	}

	if len(req.SourceIncludes) > 0 || len(req.SourceExcludes) > 0 {
		dsl["_source"] = map[string]interface{}{
			"includes": req.SourceIncludes,
			"excludes": req.SourceExcludes,
		}
	}

	return dsl, nil
}

func (s *Searcher) buildQuery(q *Query) map[string]interface{} {
	switch q.QueryType {
	case "match":
		inner := map[string]interface{}{"query": q.Value}
		if q.Boost > 0 {
			inner["boost"] = q.Boost
		}
		return map[string]interface{}{
			"match": map[string]interface{}{q.Field: inner},
		}
	case "multi_match":
		return map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Value,
				"fields": q.Fields,
			},
		}
	case "term":
		return map[string]interface{}{
			"term": map[string]interface{}{q.Field: q.Value},
		}
	case "terms":
		return map[string]interface{}{
			"terms": map[string]interface{}{q.Field: q.Value},
		}
	case "range":
		return map[string]interface{}{
			"range": map[string]interface{}{q.Field: q.Value},
		}
	case "bool":
		boolQ := map[string]interface{}{}
		if len(q.Must) > 0 {
			boolQ["must"] = s.buildSubQueries(q.Must)
		}
		if len(q.Should) > 0 {
			boolQ["should"] = s.buildSubQueries(q.Should)
		}
		if len(q.MustNot) > 0 {
			boolQ["must_not"] = s.buildSubQueries(q.MustNot)
		}
		if q.MinimumShouldMatch != "" {
			boolQ["minimum_should_match"] = q.MinimumShouldMatch
		}
		return map[string]interface{}{"bool": boolQ}
	case "match_phrase":
		return map[string]interface{}{
			"match_phrase": map[string]interface{}{q.Field: q.Value},
		}
	case "wildcard":
		return map[string]interface{}{
			"wildcard": map[string]interface{}{q.Field: q.Value},
		}
	case "exists":
		return map[string]interface{}{
			"exists": map[string]interface{}{"field": q.Field},
		}
	}
	return nil
}

func (s *Searcher) buildSubQueries(qs []Query) []map[string]interface{} {
	clauses := make([]map[string]interface{}, len(qs))
	for i := range qs {
		clauses[i] = s.buildQuery(&qs[i])
	}
	return clauses
}

func (s *Searcher) buildFilter(f Filter) map[string]interface{} {
	switch f.FilterType {
	case "term":
		return map[string]interface{}{
			"term": map[string]interface{}{f.Field: f.Value},
		}
	case "terms":
		return map[string]interface{}{
			"terms": map[string]interface{}{f.Field: f.Value},
		}
	case "range":
		rangeMap := map[string]interface{}{}
		if f.RangeFrom != nil {
			rangeMap["gte"] = f.RangeFrom
		}
		if f.RangeTo != nil {
			rangeMap["lte"] = f.RangeTo
		}
		return map[string]interface{}{
			"range": map[string]interface{}{f.Field: rangeMap},
		}
	case "exists":
		return map[string]interface{}{
			"exists": map[string]interface{}{"field": f.Field},
		}
	}
	return nil
}

func (s *Searcher) buildAggregations(aggs map[string]Aggregation) map[string]interface{} {
	dsl := map[string]interface{}{}
	for name, agg := range aggs {
		aggDSL := map[string]interface{}{}

		switch agg.AggType {
		case "terms":
			aggDSL["terms"] = map[string]interface{}{
				"field": agg.Field,
				"size":  agg.Size,
			}
		case "date_histogram":
			aggDSL["date_histogram"] = map[string]interface{}{
				"field":             agg.Field,
				"calendar_interval": agg.Interval,
			}
		case "range":
			ranges := make([]map[string]interface{}, len(agg.Ranges))
			for i, r := range agg.Ranges {
				ranges[i] = map[string]interface{}{
					"key":  r.Key,
					"from": r.From,
					"to":   r.To,
				}
			}
			aggDSL["range"] = map[string]interface{}{
				"field":  agg.Field,
				"ranges": ranges,
			}
		case "avg":
			aggDSL["avg"] = map[string]interface{}{"field": agg.Field}
		case "sum":
			aggDSL["sum"] = map[string]interface{}{"field": agg.Field}
		case "cardinality":
			aggDSL["cardinality"] = map[string]interface{}{"field": agg.Field}
		}

		if len(agg.SubAggregations) > 0 {
			aggDSL["aggs"] = s.buildAggregations(agg.SubAggregations)
		}
		dsl[name] = aggDSL
	}
	return dsl
}

// ─────────────────────────────────────────────────────────────────────────────
// Response parsing
// ─────────────────────────────────────────────────────────────────────────────

func (s *Searcher) parseSearchResponse(body io.Reader) (*SearchResult, error) {
	var resp struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				ID        string              `json:"_id"`
				Score     float64             `json:"_score"`
				Source    json.RawMessage     `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
				Sort      []interface{}       `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]json.RawMessage `json:"aggregations"`
	}

	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}

	result := &SearchResult{
		Total:    resp.Hits.Total.Value,
		MaxScore: resp.Hits.MaxScore,
		TookMs:   resp.Took,
	}
	for _, h := range resp.Hits.Hits {
		result.Hits = append(result.Hits, SearchHit{
			ID:         h.ID,
			Score:      h.Score,
			Source:     h.Source,
			Highlights: h.Highlight,
			Sort:       h.Sort,
		})
	}

	if len(resp.Aggregations) > 0 {
		result.Aggregations = make(map[string]AggregationResult)
		for name, raw := range resp.Aggregations {
			result.Aggregations[name] = s.parseAggregationResult(raw)
		}
	}
	return result, nil
}

func (s *Searcher) parseHits(hitsList []interface{}) ([]SearchHit, error) {
	hits := make([]SearchHit, len(hitsList))
	for i, item := range hitsList {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.New(errors.ErrCodeSerialization, "invalid hit format")
		}

		h := SearchHit{}
		if id, ok := m["_id"].(string); ok {
			h.ID = id
		}
		if score, ok := m["_score"].(float64); ok {
			h.Score = score
		}
		if src, ok := m["_source"]; ok {
			b, _ := json.Marshal(src)
			h.Source = b
		}
		if hl, ok := m["highlight"].(map[string]interface{}); ok {
			h.Highlights = make(map[string][]string)
			for k, v := range hl {
				if frags, ok := v.([]interface{}); ok {
					var ss []string
					for _, frag := range frags {
						ss = append(ss, fmt.Sprint(frag))
					}
					h.Highlights[k] = ss
				}
			}
		}
		if srt, ok := m["sort"].([]interface{}); ok {
			h.Sort = srt
		}
		hits[i] = h
	}
	return hits, nil
}

func (s *Searcher) parseAggregationResult(raw json.RawMessage) AggregationResult {
	var asMap map[string]interface{}
	json.Unmarshal(raw, &asMap)

	res := AggregationResult{}
	if val, ok := asMap["value"].(float64); ok {
		res.Value = &val
	}

	buckets, ok := asMap["buckets"].([]interface{})
	if !ok {
		return res
	}
	for _, b := range buckets {
		bMap, ok := b.(map[string]interface{})
		if !ok {
			continue
		}

		bucket := AggBucket{Key: bMap["key"]}
		if keyS, ok := bMap["key_as_string"].(string); ok {
			bucket.KeyAsString = keyS
		} else {
			bucket.KeyAsString = fmt.Sprint(bucket.Key)
		}
		if docCount, ok := bMap["doc_count"].(float64); ok {
			bucket.DocCount = int64(docCount)
		}

		bucket.SubAggregations = make(map[string]AggregationResult)
		for k, v := range bMap {
			if k == "key" || k == "doc_count" || k == "key_as_string" {
				continue
			}
			vMap, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			_, hasBuckets := vMap["buckets"]
			_, hasValue := vMap["value"]
			if !hasBuckets && !hasValue {
				continue
			}
			if subRaw, err := json.Marshal(v); err == nil {
				bucket.SubAggregations[k] = s.parseAggregationResult(subRaw)
			}
		}
		res.Buckets = append(res.Buckets, bucket)
	}
	return res
}

func (s *Searcher) handleErrorResponse(resp *opensearchapi.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error.Reason != "" {
		return errors.Newf(errors.ErrCodeInternal, "opensearch error: %s - %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return errors.Newf(errors.ErrCodeInternal, "opensearch error status: %d", resp.StatusCode)
}
