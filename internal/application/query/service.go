// Package query provides the read-side application service: glossary
// listings, full-text search, prefix suggestions, and relationship-graph
// neighborhood queries, with a read-through cache over the hot lookups.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appglossary "github.com/lexforge/TermForge-Intelligence/internal/application/glossary"
	domainglossary "github.com/lexforge/TermForge-Intelligence/internal/domain/glossary"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/search/opensearch"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// TermSearcher is the slice of the search layer the query service reads from.
type TermSearcher interface {
	Search(ctx context.Context, req opensearch.SearchRequest) (*opensearch.SearchResult, error)
	Suggest(ctx context.Context, indexName, field, prefix string, size int) ([]string, error)
}

// ReadCache is the slice of the cache layer used for read-through lookups.
type ReadCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TermSearchHit is one full-text search result: the indexed term plus
// relevance metadata.
type TermSearchHit struct {
	Term       opensearch.TermDocument `json:"term"`
	Score      float64                 `json:"score"`
	Highlights map[string][]string     `json:"highlights,omitempty"`
}

// TermSearchResult is the paginated output of a full-text glossary search.
type TermSearchResult struct {
	Hits     []TermSearchHit `json:"hits"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	TookMs   int64           `json:"took_ms"`
}

// Service defines the read-side operations exposed to the HTTP and CLI layers.
type Service interface {
	// ListTerms returns a database-backed page of glossary entries, filtered
	// and ordered by descending frequency.
	ListTerms(ctx context.Context, req gtypes.TermSearchRequest) (*gtypes.TermSearchResponse, error)

	// GetTerm returns the glossary entry for a term, read through the cache.
	GetTerm(ctx context.Context, term, language string) (*gtypes.TermDTO, error)

	// SearchTerms runs a relevance-ranked full-text search over term text and
	// definitions.
	SearchTerms(ctx context.Context, req gtypes.TermSearchRequest) (*TermSearchResult, error)

	// Suggest returns completion suggestions for a term prefix.
	Suggest(ctx context.Context, prefix, language string, size int) ([]string, error)

	// Graph returns the relationship neighborhood of a term, read through the
	// cache.
	Graph(ctx context.Context, req gtypes.TermGraphRequest) (*gtypes.TermGraphResponse, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultCacheTTL = 5 * time.Minute
	maxGraphDepth   = 3
)

type serviceImpl struct {
	entries       domainglossary.EntryRepository
	relations     domainglossary.RelationRepository
	searcher      TermSearcher
	glossaryIndex string
	cache         ReadCache
	cacheTTL      time.Duration
	logger        logging.Logger
	metrics       *prometheus.AppMetrics
}

// NewService creates the query service.  searcher, cache and metrics are
// optional; without a searcher SearchTerms and Suggest report the search
// backend as unavailable.
func NewService(
	entries domainglossary.EntryRepository,
	relations domainglossary.RelationRepository,
	searcher TermSearcher,
	glossaryIndex string,
	cache ReadCache,
	logger logging.Logger,
	metrics *prometheus.AppMetrics,
) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		entries:       entries,
		relations:     relations,
		searcher:      searcher,
		glossaryIndex: glossaryIndex,
		cache:         cache,
		cacheTTL:      defaultCacheTTL,
		logger:        logger,
		metrics:       metrics,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Listings and lookups
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) ListTerms(ctx context.Context, req gtypes.TermSearchRequest) (*gtypes.TermSearchResponse, error) {
	normalizePagination(&req)
	return s.entries.List(ctx, req)
}

func (s *serviceImpl) GetTerm(ctx context.Context, term, language string) (*gtypes.TermDTO, error) {
	normalized := domainglossary.Normalize(term)
	if normalized == "" {
		return nil, errors.InvalidParam("term is required")
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return nil, errors.InvalidParam("language is required")
	}

	key := appglossary.TermCacheKey(normalized, language)
	if s.cache != nil {
		var cached gtypes.TermDTO
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCache("term", true)
			return &cached, nil
		}
		s.recordCache("term", false)
	}

	entry, err := s.entries.FindByTerm(ctx, normalized, language)
	if err != nil {
		return nil, err
	}
	dto := entry.ToDTO()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dto, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache term", logging.String("key", key), logging.Err(err))
		}
	}
	return &dto, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Full-text search
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) SearchTerms(ctx context.Context, req gtypes.TermSearchRequest) (*TermSearchResult, error) {
	if s.searcher == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "search backend not configured")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.InvalidParam("search query is required")
	}
	normalizePagination(&req)

	started := time.Now()
	result, err := s.searcher.Search(ctx, s.buildSearchRequest(req))
	if s.metrics != nil {
		total := int64(0)
		if result != nil {
			total = result.Total
		}
		prometheus.RecordSearch(s.metrics, "terms", err, time.Since(started), total)
	}
	if err != nil {
		return nil, err
	}

	hits := make([]TermSearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var doc opensearch.TermDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.logger.Warn("skipping malformed indexed term",
				logging.String("doc_id", hit.ID), logging.Err(err))
			continue
		}
		hits = append(hits, TermSearchHit{
			Term:       doc,
			Score:      hit.Score,
			Highlights: hit.Highlights,
		})
	}

	return &TermSearchResult{
		Hits:     hits,
		Total:    result.Total,
		Page:     req.Pagination.Page,
		PageSize: req.Pagination.PageSize,
		TookMs:   result.TookMs,
	}, nil
}

func (s *serviceImpl) buildSearchRequest(req gtypes.TermSearchRequest) opensearch.SearchRequest {
	search := opensearch.SearchRequest{
		IndexName: s.glossaryIndex,
		Query: &opensearch.Query{
			QueryType: "multi_match",
			Fields:    []string{"term^3", "normalized^2", "definitions"},
			Value:     req.Query,
		},
		Pagination: &opensearch.Pagination{
			Offset: (req.Pagination.Page - 1) * req.Pagination.PageSize,
			Limit:  req.Pagination.PageSize,
		},
		Highlight: &opensearch.HighlightConfig{
			Fields: []string{"term", "definitions"},
		},
	}

	if req.Language != nil && *req.Language != "" {
		search.Filters = append(search.Filters, opensearch.Filter{
			Field: "language", FilterType: "term", Value: *req.Language,
		})
	}
	if req.Method != nil && *req.Method != "" {
		search.Filters = append(search.Filters, opensearch.Filter{
			Field: "method", FilterType: "term", Value: string(*req.Method),
		})
	}
	if req.MinFrequency != nil {
		search.Filters = append(search.Filters, opensearch.Filter{
			Field: "frequency", FilterType: "range", RangeFrom: *req.MinFrequency,
		})
	}
	if req.MinConfidence != nil {
		search.Filters = append(search.Filters, opensearch.Filter{
			Field: "confidence", FilterType: "range", RangeFrom: *req.MinConfidence,
		})
	}
	return search
}

func (s *serviceImpl) Suggest(ctx context.Context, prefix, language string, size int) ([]string, error) {
	if s.searcher == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "search backend not configured")
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, errors.InvalidParam("suggestion prefix is required")
	}
	_ = language // suggestions are cross-language; the completion field is global
	return s.searcher.Suggest(ctx, s.glossaryIndex, "term.suggest", prefix, size)
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Graph(ctx context.Context, req gtypes.TermGraphRequest) (*gtypes.TermGraphResponse, error) {
	req.Term = domainglossary.Normalize(req.Term)
	if req.Term == "" {
		return nil, errors.InvalidParam("graph term is required")
	}
	req.Language = strings.ToLower(strings.TrimSpace(req.Language))
	if req.Language == "" {
		return nil, errors.InvalidParam("graph language is required")
	}
	if req.Depth == 0 {
		req.Depth = 1
	}
	if req.Depth < 1 || req.Depth > maxGraphDepth {
		return nil, errors.InvalidParam("graph depth must be between 1 and 3")
	}

	key := graphCacheKey(req)
	if s.cache != nil {
		var cached gtypes.TermGraphResponse
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCache("graph", true)
			return &cached, nil
		}
		s.recordCache("graph", false)
	}

	resp, err := s.relations.Neighbors(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache graph", logging.String("key", key), logging.Err(err))
		}
	}
	return resp, nil
}

// graphCacheKey encodes every request dimension so distinct queries never
// collide; the whole prefix is dropped on glossary merges.
func graphCacheKey(req gtypes.TermGraphRequest) string {
	types := make([]string, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, string(t))
	}
	return fmt.Sprintf("%s%s:%s:%d:%s:%.2f",
		appglossary.GraphCachePrefix, req.Language, req.Term, req.Depth,
		strings.Join(types, ","), req.MinConfidence)
}

func (s *serviceImpl) recordCache(kind string, hit bool) {
	if s.metrics != nil {
		prometheus.RecordCacheAccess(s.metrics, kind, hit)
	}
}

func normalizePagination(req *gtypes.TermSearchRequest) {
	if req.Pagination.Page < 1 {
		req.Pagination.Page = 1
	}
	if req.Pagination.PageSize < 1 {
		req.Pagination.PageSize = defaultPageSize
	}
	if req.Pagination.PageSize > maxPageSize {
		req.Pagination.PageSize = maxPageSize
	}
}
