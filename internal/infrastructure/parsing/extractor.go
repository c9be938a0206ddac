// Package parsing turns stored document bytes into page-ordered plain text
// for the extraction pipeline.  PDF pages are extracted individually with
// continue-on-error so a single malformed page does not sink the document;
// plain text becomes a single page.
package parsing

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

var (
	ErrUnsupportedContentType = errors.New(errors.ErrCodeDocumentFormatInvalid, "unsupported content type")
	ErrNoExtractableText      = errors.New(errors.ErrCodeDocumentEmpty, "document yields no extractable text")
)

// PageExtractor turns raw document bytes into per-page plain text.
type PageExtractor interface {
	// ExtractPages returns the textual pages of the document in order.
	ExtractPages(content []byte) ([]dtypes.PageText, error)

	// ContentType reports the MIME type this extractor handles.
	ContentType() string
}

// ForContentType selects the extractor for a document's MIME type.
func ForContentType(contentType string) (PageExtractor, error) {
	switch contentType {
	case "application/pdf":
		return NewPDFExtractor(), nil
	case "text/plain":
		return NewPlainTextExtractor(), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedContentType, errors.ErrCodeDocumentFormatInvalid,
		"no page extractor for %q", contentType)
}

// ─────────────────────────────────────────────────────────────────────────────
// PDF
// ─────────────────────────────────────────────────────────────────────────────

// PDFExtractor extracts per-page text from PDF bytes.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF page extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ContentType reports the MIME type this extractor handles.
func (e *PDFExtractor) ContentType() string { return "application/pdf" }

// ExtractPages reads every page of the PDF.  Pages that fail to parse are
// skipped; page numbers always reflect the position in the source document,
// so downstream occurrence tracking stays correct across gaps.
func (e *PDFExtractor) ExtractPages(content []byte) ([]dtypes.PageText, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDocumentFormatInvalid, "failed to open pdf")
	}

	numPages := reader.NumPage()
	pages := make([]dtypes.PageText, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages fail on exotic font encodings; keep going.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, dtypes.PageText{
			PageNumber: i,
			Text:       text,
		})
	}

	if len(pages) == 0 {
		// Likely an image-only scan with no text layer.
		return nil, ErrNoExtractableText
	}
	return pages, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Plain text
// ─────────────────────────────────────────────────────────────────────────────

// PlainTextExtractor treats the whole file as one page.
type PlainTextExtractor struct{}

// NewPlainTextExtractor creates a plain-text page extractor.
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

// ContentType reports the MIME type this extractor handles.
func (e *PlainTextExtractor) ContentType() string { return "text/plain" }

// ExtractPages returns the file content as a single page.
func (e *PlainTextExtractor) ExtractPages(content []byte) ([]dtypes.PageText, error) {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoExtractableText
	}
	return []dtypes.PageText{{PageNumber: 1, Text: text}}, nil
}

// ExtractFromReader drains r and extracts pages with the extractor matching
// contentType.  It is the convenience entry point for callers holding a
// storage download stream.
func ExtractFromReader(r io.Reader, contentType string) ([]dtypes.PageText, error) {
	extractor, err := ForContentType(contentType)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read document content")
	}
	return extractor.ExtractPages(content)
}
