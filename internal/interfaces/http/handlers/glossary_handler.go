package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lexforge/TermForge-Intelligence/internal/application/query"
	gtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

const defaultSuggestSize = 10

// GlossaryHandler serves the glossary read endpoints: term listing, lookup,
// full-text search, prefix suggestions, and graph traversal.
type GlossaryHandler struct {
	query query.Service
}

// NewGlossaryHandler creates a GlossaryHandler over the query service.
func NewGlossaryHandler(svc query.Service) *GlossaryHandler {
	return &GlossaryHandler{query: svc}
}

// List handles GET /api/v1/terms. Results come from the relational store,
// filtered and ordered by descending frequency.
func (h *GlossaryHandler) List(c *gin.Context) {
	req, ok := h.parseSearchRequest(c)
	if !ok {
		return
	}

	resp, err := h.query.ListTerms(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/terms/:term. The term is normalized before lookup,
// so any surface form of the term resolves to its glossary entry.
func (h *GlossaryHandler) Get(c *gin.Context) {
	term := c.Param("term")
	language := c.Query("language")

	dto, err := h.query.GetTerm(c.Request.Context(), term, language)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto)
}

// Search handles GET /api/v1/search. Results come from the full-text index,
// ranked by relevance with highlighted fragments.
func (h *GlossaryHandler) Search(c *gin.Context) {
	req, ok := h.parseSearchRequest(c)
	if !ok {
		return
	}
	req.Query = c.Query("q")

	result, err := h.query.SearchTerms(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suggest handles GET /api/v1/suggest, returning term completions for a
// prefix.
func (h *GlossaryHandler) Suggest(c *gin.Context) {
	prefix := c.Query("q")
	if prefix == "" {
		respondInvalidParam(c, "query parameter \"q\" is required")
		return
	}

	size := defaultSuggestSize
	if v, set, ok := queryInt(c, "size"); !ok {
		return
	} else if set && v > 0 {
		size = v
	}

	suggestions, err := h.query.Suggest(c.Request.Context(), prefix, c.Query("language"), size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// Graph handles GET /api/v1/terms/:term/graph, returning the relationship
// neighborhood of a term up to the requested depth.
func (h *GlossaryHandler) Graph(c *gin.Context) {
	req := gtypes.TermGraphRequest{
		Term:     c.Param("term"),
		Language: c.Query("language"),
	}

	if depth, set, ok := queryInt(c, "depth"); !ok {
		return
	} else if set {
		req.Depth = depth
	}

	if conf, set, ok := queryFloat(c, "min_confidence"); !ok {
		return
	} else if set {
		req.MinConfidence = conf
	}

	if raw := c.Query("types"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			relType := gtypes.RelationType(strings.ToUpper(strings.TrimSpace(name)))
			if !relType.IsValid() {
				respondInvalidParam(c, "unknown relation type: "+name)
				return
			}
			req.Types = append(req.Types, relType)
		}
	}

	resp, err := h.query.Graph(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseSearchRequest reads the filter and pagination query parameters shared
// by the list and search endpoints.
func (h *GlossaryHandler) parseSearchRequest(c *gin.Context) (gtypes.TermSearchRequest, bool) {
	req := gtypes.TermSearchRequest{Pagination: parsePagination(c)}

	if raw := c.Query("language"); raw != "" {
		req.Language = &raw
	}
	if raw := c.Query("method"); raw != "" {
		method := gtypes.ExtractionMethod(raw)
		if !method.IsValid() {
			respondInvalidParam(c, "unknown extraction method: "+raw)
			return req, false
		}
		req.Method = &method
	}

	if freq, set, ok := queryInt(c, "min_frequency"); !ok {
		return req, false
	} else if set {
		req.MinFrequency = &freq
	}

	if conf, set, ok := queryFloat(c, "min_confidence"); !ok {
		return req, false
	} else if set {
		req.MinConfidence = &conf
	}

	return req, true
}
