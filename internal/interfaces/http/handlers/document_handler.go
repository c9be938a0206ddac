package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexforge/TermForge-Intelligence/internal/application/ingest"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

// DocumentExtractor runs the extraction pipeline for one document
// synchronously. The async path goes through the message bus instead.
type DocumentExtractor interface {
	ProcessDocument(ctx context.Context, id common.ID) (*dtypes.ExtractionResultDTO, error)
}

const (
	defaultMaxUploadBytes  = 64 << 20 // 64 MiB
	defaultDownloadExpiry  = 15 * time.Minute
	maxDownloadExpiry      = 24 * time.Hour
	multipartFileFieldName = "file"
)

// DocumentHandler serves the document ingestion and lifecycle endpoints.
type DocumentHandler struct {
	ingest    ingest.Service
	extractor DocumentExtractor
	maxBytes  int64
	logger    logging.Logger
}

// NewDocumentHandler creates a DocumentHandler. extractor may be nil, in
// which case the synchronous extract endpoint returns 501. maxBytes caps the
// accepted upload size; zero selects the default.
func NewDocumentHandler(svc ingest.Service, extractor DocumentExtractor, maxBytes int64, logger logging.Logger) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DocumentHandler{
		ingest:    svc,
		extractor: extractor,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Upload handles POST /api/v1/documents. It accepts a multipart form with a
// "file" part plus optional "language" and "content_type" fields.
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	fileHeader, err := c.FormFile(multipartFileFieldName)
	if err != nil {
		respondInvalidParam(c, "multipart field \"file\" is required")
		return
	}
	if fileHeader.Size > h.maxBytes {
		respondError(c, apperrors.Newf(apperrors.ErrCodeDocumentTooLarge,
			"upload exceeds the %d byte limit", h.maxBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "failed to read uploaded file"))
		return
	}

	req := dtypes.UploadDocumentRequest{
		Filename:    fileHeader.Filename,
		ContentType: c.PostForm("content_type"),
		Language:    c.PostForm("language"),
	}
	if req.ContentType == "" {
		// The multipart part header is browser-supplied; the service still
		// validates it against the supported formats.
		req.ContentType = fileHeader.Header.Get("Content-Type")
	}

	resp, err := h.ingest.Upload(c.Request.Context(), req, content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Get handles GET /api/v1/documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.ingest.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// List handles GET /api/v1/documents with optional status and language
// filters.
func (h *DocumentHandler) List(c *gin.Context) {
	req := dtypes.DocumentListRequest{Pagination: parsePagination(c)}

	if raw := c.Query("status"); raw != "" {
		status := dtypes.DocumentStatus(raw)
		if !status.IsValid() {
			respondInvalidParam(c, "unknown document status: "+raw)
			return
		}
		req.Status = &status
	}
	if raw := c.Query("language"); raw != "" {
		req.Language = &raw
	}

	resp, err := h.ingest.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ingest.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DownloadURLResponse carries a presigned link to the stored document.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Download handles GET /api/v1/documents/:id/download. It returns a
// presigned URL rather than streaming the object through the API.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	expiry := defaultDownloadExpiry
	if seconds, set, ok := queryInt(c, "expiry_seconds"); !ok {
		return
	} else if set {
		if seconds <= 0 {
			respondInvalidParam(c, "expiry_seconds must be positive")
			return
		}
		expiry = time.Duration(seconds) * time.Second
		if expiry > maxDownloadExpiry {
			expiry = maxDownloadExpiry
		}
	}

	url, err := h.ingest.DownloadURL(c.Request.Context(), id, expiry)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, DownloadURLResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(expiry),
	})
}

// Requeue handles POST /api/v1/documents/:id/requeue. It re-announces a
// failed document on the bus for another extraction attempt.
func (h *DocumentHandler) Requeue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.ingest.Requeue(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "requeued"})
}

// Extract handles POST /api/v1/documents/:id/extract. It runs the extraction
// pipeline inline and returns the full result, bypassing the worker queue.
// Intended for small documents and interactive use.
func (h *DocumentHandler) Extract(c *gin.Context) {
	if h.extractor == nil {
		respondError(c, apperrors.New(apperrors.ErrCodeNotImplemented,
			"synchronous extraction is not enabled on this server"))
		return
	}

	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.extractor.ProcessDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("synchronous extraction completed",
		logging.String("document_id", string(id)),
		logging.Int("terms", len(result.Terms)),
		logging.Int("relationships", len(result.Relationships)))

	c.JSON(http.StatusOK, result)
}
