// Package document provides the domain model for source documents moving
// through the extraction lifecycle: uploaded, processing, processed or
// failed.  The Document aggregate enforces the legal status transitions and
// records the outcome statistics of its last extraction run.
package document

import (
	"strings"
	"time"

	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

// ─────────────────────────────────────────────────────────────────────────────
// Domain Events
// ─────────────────────────────────────────────────────────────────────────────

// DomainEvent is a marker interface for document lifecycle events.
type DomainEvent interface {
	EventType() string
}

// UploadedEvent is published when a document is accepted for processing.
type UploadedEvent struct {
	DocumentID common.ID
	Filename   string
	Language   string
}

func (e UploadedEvent) EventType() string { return "document.uploaded" }

// ProcessedEvent is published when extraction completes successfully.
type ProcessedEvent struct {
	DocumentID common.ID
	TermCount  int
}

func (e ProcessedEvent) EventType() string { return "document.processed" }

// FailedEvent is published when extraction fails terminally.
type FailedEvent struct {
	DocumentID common.ID
	Reason     string
}

func (e FailedEvent) EventType() string { return "document.failed" }

// ─────────────────────────────────────────────────────────────────────────────
// Document Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// Document is the aggregate root for one uploaded source document.
type Document struct {
	common.BaseEntity

	Filename    string                `json:"filename"`
	ContentType string                `json:"content_type"`
	Language    string                `json:"language"`
	Status      dtypes.DocumentStatus `json:"status"`
	SizeBytes   int64                 `json:"size_bytes"`
	PageCount   int                   `json:"page_count,omitempty"`

	// ObjectKey locates the raw bytes in object storage.
	ObjectKey string `json:"object_key,omitempty"`

	FailureReason string                  `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time              `json:"processed_at,omitempty"`
	Stats         *dtypes.ExtractionStats `json:"stats,omitempty"`

	events []DomainEvent
}

// supportedContentTypes lists the formats the ingest layer can extract text
// from.
var supportedContentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
}

// ─────────────────────────────────────────────────────────────────────────────
// Factory Function
// ─────────────────────────────────────────────────────────────────────────────

// NewDocument constructs an uploaded document record.  The object key is
// assigned by the storage layer after the raw bytes are stored.
func NewDocument(filename, contentType, language string, sizeBytes int64) (*Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, errors.InvalidParam("document filename cannot be empty")
	}
	if sizeBytes <= 0 {
		return nil, errors.New(errors.ErrCodeDocumentEmpty, "document has no content").
			WithDetail("filename=" + filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		contentType = inferContentType(filename)
	}
	if !supportedContentTypes[contentType] {
		return nil, errors.New(errors.ErrCodeDocumentFormatInvalid, "unsupported document format").
			WithDetail("content_type=" + contentType)
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "en"
	}

	doc := &Document{
		BaseEntity: common.BaseEntity{
			ID: common.NewID(),
		},
		Filename:    filename,
		ContentType: contentType,
		Language:    language,
		Status:      dtypes.StatusUploaded,
		SizeBytes:   sizeBytes,
	}

	doc.events = append(doc.events, UploadedEvent{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Language:   doc.Language,
	})

	return doc, nil
}

// inferContentType guesses the MIME type from the filename extension.
func inferContentType(filename string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(strings.ToLower(filename), ".txt"):
		return "text/plain"
	default:
		return ""
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle Transitions
// ─────────────────────────────────────────────────────────────────────────────

// MarkProcessing moves the document into the processing state.
func (d *Document) MarkProcessing() error {
	return d.transition(dtypes.StatusProcessing)
}

// MarkProcessed records a successful extraction run.
func (d *Document) MarkProcessed(pageCount int, stats dtypes.ExtractionStats) error {
	if err := d.transition(dtypes.StatusProcessed); err != nil {
		return err
	}
	now := time.Now().UTC()
	d.PageCount = pageCount
	d.Stats = &stats
	d.ProcessedAt = &now
	d.FailureReason = ""
	d.events = append(d.events, ProcessedEvent{
		DocumentID: d.ID,
		TermCount:  stats.TermsAccepted,
	})
	return nil
}

// MarkFailed records a terminal extraction failure.
func (d *Document) MarkFailed(reason string) error {
	if err := d.transition(dtypes.StatusFailed); err != nil {
		return err
	}
	d.FailureReason = reason
	d.events = append(d.events, FailedEvent{
		DocumentID: d.ID,
		Reason:     reason,
	})
	return nil
}

func (d *Document) transition(next dtypes.DocumentStatus) error {
	if !d.Status.CanTransitionTo(next) {
		return errors.New(errors.ErrCodeDocumentStatusInvalid, "illegal document status transition").
			WithDetail(string(d.Status) + " -> " + string(next))
	}
	d.Status = next
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DTO Conversion
// ─────────────────────────────────────────────────────────────────────────────

// ToDTO converts the aggregate to its cross-layer representation.
func (d *Document) ToDTO() dtypes.DocumentDTO {
	return dtypes.DocumentDTO{
		BaseEntity:    d.BaseEntity,
		Filename:      d.Filename,
		ContentType:   d.ContentType,
		Language:      d.Language,
		Status:        d.Status,
		SizeBytes:     d.SizeBytes,
		PageCount:     d.PageCount,
		ObjectKey:     d.ObjectKey,
		FailureReason: d.FailureReason,
		ProcessedAt:   d.ProcessedAt,
		Stats:         d.Stats,
	}
}

// FromDTO reconstructs an aggregate from its DTO.  No events are raised.
func FromDTO(dto dtypes.DocumentDTO) *Document {
	return &Document{
		BaseEntity:    dto.BaseEntity,
		Filename:      dto.Filename,
		ContentType:   dto.ContentType,
		Language:      dto.Language,
		Status:        dto.Status,
		SizeBytes:     dto.SizeBytes,
		PageCount:     dto.PageCount,
		ObjectKey:     dto.ObjectKey,
		FailureReason: dto.FailureReason,
		ProcessedAt:   dto.ProcessedAt,
		Stats:         dto.Stats,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain Event Management
// ─────────────────────────────────────────────────────────────────────────────

// Events returns all unpublished domain events and clears the internal list.
func (d *Document) Events() []DomainEvent {
	events := d.events
	d.events = nil
	return events
}
