package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Short aliases used throughout handler and repository code.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeUnauthorized = ErrCodeUnauthorized
	CodeForbidden    = ErrCodeForbidden
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Document Module Error Codes
const (
	ErrCodeDocumentNotFound      ErrorCode = "DOC_001"
	ErrCodeDocumentAlreadyExists ErrorCode = "DOC_002"
	ErrCodeDocumentFormatInvalid ErrorCode = "DOC_003"
	ErrCodeDocumentEmpty         ErrorCode = "DOC_004"
	ErrCodeDocumentTooLarge      ErrorCode = "DOC_005"
	ErrCodeDocumentFetchFailed   ErrorCode = "DOC_006"
	ErrCodeDocumentParseFailed   ErrorCode = "DOC_007"
	ErrCodeDocumentStatusInvalid ErrorCode = "DOC_008"
	ErrCodeDocumentLocked        ErrorCode = "DOC_009"
)

// Glossary Term Module Error Codes
const (
	ErrCodeTermNotFound        ErrorCode = "TERM_001"
	ErrCodeTermAlreadyExists   ErrorCode = "TERM_002"
	ErrCodeTermLanguageInvalid ErrorCode = "TERM_003"
	ErrCodeTermPersistFailed   ErrorCode = "TERM_004"
	ErrCodeTermMergeConflict   ErrorCode = "TERM_005"
)

// Extraction Pipeline Error Codes
const (
	ErrCodePipelineConfigInvalid     ErrorCode = "PIPE_001"
	ErrCodePipelineModelUnavailable  ErrorCode = "PIPE_002"
	ErrCodePipelineValidationCrashed ErrorCode = "PIPE_003"
	ErrCodePipelineExtractionFailed  ErrorCode = "PIPE_004"
	ErrCodePipelineAnnotationFailed  ErrorCode = "PIPE_005"
)

// Relationship Module Error Codes
const (
	ErrCodeRelationExtractionFailed ErrorCode = "REL_001"
	ErrCodeRelationTypeInvalid      ErrorCode = "REL_002"
	ErrCodeRelationGraphQueryFailed ErrorCode = "REL_003"
	ErrCodeRelationPersistFailed    ErrorCode = "REL_004"
)

// Search Module Error Codes
const (
	ErrCodeSearchIndexFailed ErrorCode = "SEARCH_001"
	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_002"
	ErrCodeSearchUnavailable ErrorCode = "SEARCH_003"
)

// Object Storage Error Codes
const (
	ErrCodeStorageUploadFailed   ErrorCode = "STORE_001"
	ErrCodeStorageObjectNotFound ErrorCode = "STORE_002"
	ErrCodeStorageFetchFailed    ErrorCode = "STORE_003"
)

// Messaging Error Codes
const (
	ErrCodeMessagePublishFailed ErrorCode = "MSG_001"
	ErrCodeMessageConsumeFailed ErrorCode = "MSG_002"
	ErrCodeMessageDecodeFailed  ErrorCode = "MSG_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeDocumentNotFound:      http.StatusNotFound,
	ErrCodeDocumentAlreadyExists: http.StatusConflict,
	ErrCodeDocumentFormatInvalid: http.StatusBadRequest,
	ErrCodeDocumentEmpty:         http.StatusBadRequest,
	ErrCodeDocumentTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeDocumentFetchFailed:   http.StatusInternalServerError,
	ErrCodeDocumentParseFailed:   http.StatusUnprocessableEntity,
	ErrCodeDocumentStatusInvalid: http.StatusConflict,
	ErrCodeDocumentLocked:        http.StatusConflict,

	ErrCodeTermNotFound:        http.StatusNotFound,
	ErrCodeTermAlreadyExists:   http.StatusConflict,
	ErrCodeTermLanguageInvalid: http.StatusBadRequest,
	ErrCodeTermPersistFailed:   http.StatusInternalServerError,
	ErrCodeTermMergeConflict:   http.StatusConflict,

	ErrCodePipelineConfigInvalid:     http.StatusBadRequest,
	ErrCodePipelineModelUnavailable:  http.StatusServiceUnavailable,
	ErrCodePipelineValidationCrashed: http.StatusInternalServerError,
	ErrCodePipelineExtractionFailed:  http.StatusInternalServerError,
	ErrCodePipelineAnnotationFailed:  http.StatusInternalServerError,

	ErrCodeRelationExtractionFailed: http.StatusInternalServerError,
	ErrCodeRelationTypeInvalid:      http.StatusBadRequest,
	ErrCodeRelationGraphQueryFailed: http.StatusInternalServerError,
	ErrCodeRelationPersistFailed:    http.StatusInternalServerError,

	ErrCodeSearchIndexFailed: http.StatusInternalServerError,
	ErrCodeSearchQueryFailed: http.StatusInternalServerError,
	ErrCodeSearchUnavailable: http.StatusServiceUnavailable,

	ErrCodeStorageUploadFailed:   http.StatusInternalServerError,
	ErrCodeStorageObjectNotFound: http.StatusNotFound,
	ErrCodeStorageFetchFailed:    http.StatusInternalServerError,

	ErrCodeMessagePublishFailed: http.StatusInternalServerError,
	ErrCodeMessageConsumeFailed: http.StatusInternalServerError,
	ErrCodeMessageDecodeFailed:  http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeDocumentNotFound:      "document not found",
	ErrCodeDocumentAlreadyExists: "document already exists",
	ErrCodeDocumentFormatInvalid: "unsupported document format",
	ErrCodeDocumentEmpty:         "document contains no extractable text",
	ErrCodeDocumentTooLarge:      "document exceeds size limit",
	ErrCodeDocumentFetchFailed:   "failed to fetch document content",
	ErrCodeDocumentParseFailed:   "failed to parse document",
	ErrCodeDocumentStatusInvalid: "invalid document status transition",
	ErrCodeDocumentLocked:        "document is being processed",

	ErrCodeTermNotFound:        "glossary term not found",
	ErrCodeTermAlreadyExists:   "glossary term already exists",
	ErrCodeTermLanguageInvalid: "unsupported term language",
	ErrCodeTermPersistFailed:   "failed to persist glossary term",
	ErrCodeTermMergeConflict:   "conflicting glossary term update",

	ErrCodePipelineConfigInvalid:     "invalid extraction configuration",
	ErrCodePipelineModelUnavailable:  "linguistic annotator unavailable",
	ErrCodePipelineValidationCrashed: "candidate validation failed internally",
	ErrCodePipelineExtractionFailed:  "term extraction failed",
	ErrCodePipelineAnnotationFailed:  "text annotation failed",

	ErrCodeRelationExtractionFailed: "relationship extraction failed",
	ErrCodeRelationTypeInvalid:      "invalid relation type",
	ErrCodeRelationGraphQueryFailed: "relationship graph query failed",
	ErrCodeRelationPersistFailed:    "failed to persist relationship",

	ErrCodeSearchIndexFailed: "failed to index glossary entry",
	ErrCodeSearchQueryFailed: "glossary search failed",
	ErrCodeSearchUnavailable: "search backend unavailable",

	ErrCodeStorageUploadFailed:   "failed to store document object",
	ErrCodeStorageObjectNotFound: "stored document object not found",
	ErrCodeStorageFetchFailed:    "failed to retrieve document object",

	ErrCodeMessagePublishFailed: "failed to publish event",
	ErrCodeMessageConsumeFailed: "failed to consume event",
	ErrCodeMessageDecodeFailed:  "failed to decode event payload",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
