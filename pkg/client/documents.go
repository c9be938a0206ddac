package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

// DocumentsClient groups the document ingestion and lifecycle endpoints.
type DocumentsClient struct {
	client *Client
}

// UploadRequest describes a document upload.
type UploadRequest struct {
	// Filename is the original file name. Required.
	Filename string

	// Content is the raw file content. Required.
	Content []byte

	// ContentType is the MIME type. Inferred from the filename when empty.
	ContentType string

	// Language is the BCP 47 language tag of the document content.
	Language string
}

// ListDocumentsRequest describes the optional filters for a document
// listing.
type ListDocumentsRequest struct {
	Status   string
	Language string
	Page     int
	PageSize int
}

// DownloadURL is a presigned link to a stored document.
type DownloadURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Upload stores a document and queues it for term extraction.
func (dc *DocumentsClient) Upload(ctx context.Context, req *UploadRequest) (*dtypes.UploadDocumentResponse, error) {
	if req == nil || req.Filename == "" {
		return nil, fmt.Errorf("client: filename is required")
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("client: content is required")
	}

	makeBody := func() (io.Reader, string) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		part, err := writer.CreateFormFile("file", req.Filename)
		if err != nil {
			return nil, ""
		}
		if _, err := part.Write(req.Content); err != nil {
			return nil, ""
		}
		if req.ContentType != "" {
			_ = writer.WriteField("content_type", req.ContentType)
		}
		if req.Language != "" {
			_ = writer.WriteField("language", req.Language)
		}
		if err := writer.Close(); err != nil {
			return nil, ""
		}

		return &buf, writer.FormDataContentType()
	}

	var resp dtypes.UploadDocumentResponse
	if err := dc.client.doRaw(ctx, http.MethodPost, "/api/v1/documents", makeBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns a document record including its processing status.
func (dc *DocumentsClient) Get(ctx context.Context, id common.ID) (*dtypes.DocumentDTO, error) {
	var resp dtypes.DocumentDTO
	if err := dc.client.get(ctx, "/api/v1/documents/"+url.PathEscape(string(id)), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns a page of document records, newest first.
func (dc *DocumentsClient) List(ctx context.Context, req *ListDocumentsRequest) (*dtypes.DocumentListResponse, error) {
	params := url.Values{}
	if req != nil {
		if req.Status != "" {
			params.Set("status", req.Status)
		}
		if req.Language != "" {
			params.Set("language", req.Language)
		}
		if req.Page > 0 {
			params.Set("page", strconv.Itoa(req.Page))
		}
		if req.PageSize > 0 {
			params.Set("page_size", strconv.Itoa(req.PageSize))
		}
	}

	path := "/api/v1/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp dtypes.DocumentListResponse
	if err := dc.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Delete removes a document record and its stored object.
func (dc *DocumentsClient) Delete(ctx context.Context, id common.ID) error {
	return dc.client.delete(ctx, "/api/v1/documents/"+url.PathEscape(string(id)))
}

// Download returns a presigned URL for the stored document. expiry rounds
// down to whole seconds; zero selects the server default.
func (dc *DocumentsClient) Download(ctx context.Context, id common.ID, expiry time.Duration) (*DownloadURL, error) {
	path := "/api/v1/documents/" + url.PathEscape(string(id)) + "/download"
	if expiry > 0 {
		path += "?expiry_seconds=" + strconv.Itoa(int(expiry.Seconds()))
	}

	var resp DownloadURL
	if err := dc.client.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Requeue re-announces a failed document for another extraction attempt.
func (dc *DocumentsClient) Requeue(ctx context.Context, id common.ID) error {
	return dc.client.post(ctx, "/api/v1/documents/"+url.PathEscape(string(id))+"/requeue", nil, nil)
}

// Extract runs the extraction pipeline synchronously and returns the full
// result. Intended for small documents; large corpora should go through the
// asynchronous worker instead.
func (dc *DocumentsClient) Extract(ctx context.Context, id common.ID) (*dtypes.ExtractionResultDTO, error) {
	var resp dtypes.ExtractionResultDTO
	if err := dc.client.post(ctx, "/api/v1/documents/"+url.PathEscape(string(id))+"/extract", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
