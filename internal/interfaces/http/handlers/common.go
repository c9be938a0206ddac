// Package handlers contains the HTTP request handlers for the REST API.
//
// Handlers translate between the HTTP wire format and the application-layer
// services: they parse and validate request input, invoke the service, and
// render the result or a structured error response. All business rules live
// below this layer.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError renders err as a structured JSON error response. AppErrors map
// to the HTTP status registered for their code; anything else becomes a 500
// with a generic message so internal details never leak to callers.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := apperrors.HTTPStatusForCode(appErr.Code)
		body := ErrorResponse{Error: ErrorDetail{
			Code:    string(appErr.Code),
			Message: appErr.Message,
		}}
		if apperrors.IsClientError(appErr.Code) {
			body.Error.Detail = appErr.Detail
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:    string(apperrors.ErrCodeInternal),
			Message: "internal server error",
		},
	})
}

// respondInvalidParam renders a 400 for malformed request input.
func respondInvalidParam(c *gin.Context, message string) {
	respondError(c, apperrors.InvalidParam(message))
}

// parsePagination reads page and page_size query parameters, applying the
// defaults and clamping page_size to the maximum.
func parsePagination(c *gin.Context) common.Pagination {
	page := defaultPage
	if raw := c.Query("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}

	size := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			size = v
		}
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return common.Pagination{Page: page, PageSize: size}
}

// pathID reads the named path parameter as a document identifier.
func pathID(c *gin.Context, name string) (common.ID, bool) {
	raw := c.Param(name)
	if raw == "" {
		respondInvalidParam(c, name+" is required")
		return "", false
	}
	return common.ID(raw), true
}

// queryFloat reads an optional float query parameter, returning ok=false and
// writing a 400 when the value is present but malformed.
func queryFloat(c *gin.Context, name string) (float64, bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		respondInvalidParam(c, name+" must be a number")
		return 0, false, false
	}
	return v, true, true
}

// queryInt reads an optional integer query parameter, returning ok=false and
// writing a 400 when the value is present but malformed.
func queryInt(c *gin.Context, name string) (int, bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondInvalidParam(c, name+" must be an integer")
		return 0, false, false
	}
	return v, true, true
}
