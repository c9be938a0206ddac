// Package document defines all document-domain Data Transfer Objects,
// enumerations, and request/response structures used across every layer of the
// TermForge-Intelligence platform.  No domain logic lives here — only plain
// data types that are safe to import from any layer without creating circular
// dependencies.
package document

import (
	"time"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/glossary"
)

// ─────────────────────────────────────────────────────────────────────────────
// DocumentStatus — document processing lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// DocumentStatus represents the processing stage of an uploaded document.
type DocumentStatus string

const (
	// StatusUploaded means the raw document is stored but not yet processed.
	StatusUploaded DocumentStatus = "uploaded"

	// StatusProcessing means a worker is currently extracting terms from it.
	StatusProcessing DocumentStatus = "processing"

	// StatusProcessed means extraction completed and results are persisted.
	StatusProcessed DocumentStatus = "processed"

	// StatusFailed means extraction aborted; FailureReason carries the cause.
	StatusFailed DocumentStatus = "failed"
)

// IsValid checks if the DocumentStatus is valid.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a final state.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// Failed documents may be re-queued for processing.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusUploaded:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusProcessed || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	default:
		return false
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// PageText — per-page extracted text
// ─────────────────────────────────────────────────────────────────────────────

// PageText carries the raw text of a single document page.  It is the input
// unit consumed by the extraction pipeline; page numbers are preserved through
// extraction so that term occurrences can be traced back to their pages.
type PageText struct {
	// PageNumber is the 1-based page number within the source document.
	PageNumber int `json:"page_number"`

	// Text is the raw page text, possibly carrying OCR artifacts.
	Text string `json:"text"`
}

// ─────────────────────────────────────────────────────────────────────────────
// ExtractionStats — per-document pipeline counters
// ─────────────────────────────────────────────────────────────────────────────

// ExtractionStats summarizes one extraction run over a document.
type ExtractionStats struct {
	// Method records which extraction strategy the run used.
	Method glossary.ExtractionMethod `json:"method"`

	// RepairsApplied counts normalization repairs (line-break joins, OCR
	// doubling fixes) made before extraction.
	RepairsApplied int `json:"repairs_applied"`

	// CandidatesExtracted counts raw candidates before validation.
	CandidatesExtracted int `json:"candidates_extracted"`

	// CandidatesRejected counts candidates dropped by validation rules.
	CandidatesRejected int `json:"candidates_rejected"`

	// TermsAccepted counts terms that survived validation and the frequency gate.
	TermsAccepted int `json:"terms_accepted"`

	// RelationshipsFound counts relationships above the confidence floor.
	RelationshipsFound int `json:"relationships_found"`

	// Duration is the wall-clock time of the extraction run.
	Duration time.Duration `json:"duration"`
}

// ─────────────────────────────────────────────────────────────────────────────
// DocumentDTO — cross-layer data transfer object for a document
// ─────────────────────────────────────────────────────────────────────────────

// DocumentDTO is the canonical document representation passed between the
// application, interface, and client layers.
type DocumentDTO struct {
	// BaseEntity provides ID, CreatedAt, UpdatedAt, and Version.
	common.BaseEntity

	// Filename is the original name of the uploaded file.
	Filename string `json:"filename"`

	// ContentType is the MIME type of the uploaded file
	// (e.g., "application/pdf", "text/plain").
	ContentType string `json:"content_type"`

	// Language is the declared BCP 47 language tag of the document content.
	Language string `json:"language"`

	// Status is the current processing stage.
	Status DocumentStatus `json:"status"`

	// SizeBytes is the stored object size.
	SizeBytes int64 `json:"size_bytes"`

	// PageCount is the number of extracted pages; zero until processed.
	PageCount int `json:"page_count,omitempty"`

	// ObjectKey locates the raw document in object storage.
	ObjectKey string `json:"object_key,omitempty"`

	// FailureReason carries the error summary when Status is failed.
	FailureReason string `json:"failure_reason,omitempty"`

	// ProcessedAt is the completion time of the last extraction run.
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Stats summarizes the last extraction run; nil until processed.
	Stats *ExtractionStats `json:"stats,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Upload / list request and response types
// ─────────────────────────────────────────────────────────────────────────────

// UploadDocumentRequest is the input DTO for document ingestion.  Content is
// carried separately (multipart upload over HTTP, byte slice in the client SDK).
type UploadDocumentRequest struct {
	// Filename is the original file name, used to infer the content type when
	// ContentType is empty.
	Filename string `json:"filename"`

	// ContentType is the MIME type of the content; inferred when empty.
	ContentType string `json:"content_type,omitempty"`

	// Language is the declared BCP 47 language tag of the document content.
	// Defaults to the server's configured language when empty.
	Language string `json:"language,omitempty"`
}

// UploadDocumentResponse is the output DTO for document ingestion.
type UploadDocumentResponse struct {
	// ID is the identifier assigned to the stored document.
	ID common.ID `json:"id"`

	// Status is the initial lifecycle state, always "uploaded" on success.
	Status DocumentStatus `json:"status"`
}

// DocumentListRequest is the input DTO for paginated document listings.
type DocumentListRequest struct {
	// Status, when set, restricts results to documents in the given state.
	Status *DocumentStatus `json:"status,omitempty"`

	// Language, when set, restricts results to the given language.
	Language *string `json:"language,omitempty"`

	// Pagination carries page number and page size for result pagination.
	Pagination common.Pagination `json:"pagination"`
}

// DocumentListResponse is the paginated output DTO for document listings.
type DocumentListResponse = common.PageResponse[DocumentDTO]

// ExtractionResultDTO bundles everything one extraction run produced for a
// document.  It is returned by the synchronous extraction API and published on
// the document.processed topic.
type ExtractionResultDTO struct {
	// DocumentID identifies the processed document.
	DocumentID common.ID `json:"document_id"`

	// Terms lists the glossary terms the run produced, ordered by normalized
	// form for deterministic output.
	Terms []glossary.TermDTO `json:"terms"`

	// Relationships lists the term relationships the run produced.
	Relationships []glossary.RelationshipDTO `json:"relationships"`

	// Stats summarizes the run.
	Stats ExtractionStats `json:"stats"`
}
