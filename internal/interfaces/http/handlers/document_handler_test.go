package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Mocks
// ─────────────────────────────────────────────────────────────────────────────

type mockIngestService struct {
	mock.Mock
}

func (m *mockIngestService) Upload(ctx context.Context, req dtypes.UploadDocumentRequest, content []byte) (*dtypes.UploadDocumentResponse, error) {
	args := m.Called(ctx, req, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dtypes.UploadDocumentResponse), args.Error(1)
}

func (m *mockIngestService) Get(ctx context.Context, id common.ID) (*dtypes.DocumentDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dtypes.DocumentDTO), args.Error(1)
}

func (m *mockIngestService) List(ctx context.Context, req dtypes.DocumentListRequest) (*dtypes.DocumentListResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dtypes.DocumentListResponse), args.Error(1)
}

func (m *mockIngestService) Delete(ctx context.Context, id common.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIngestService) DownloadURL(ctx context.Context, id common.ID, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}

func (m *mockIngestService) Requeue(ctx context.Context, id common.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) ProcessDocument(ctx context.Context, id common.ID) (*dtypes.ExtractionResultDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dtypes.ExtractionResultDTO), args.Error(1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func newDocumentRouter(svc *mockIngestService, extractor DocumentExtractor) *gin.Engine {
	h := NewDocumentHandler(svc, extractor, 0, nil)

	engine := gin.New()
	docs := engine.Group("/api/v1/documents")
	docs.POST("", h.Upload)
	docs.GET("", h.List)
	docs.GET("/:id", h.Get)
	docs.DELETE("/:id", h.Delete)
	docs.GET("/:id/download", h.Download)
	docs.POST("/:id/requeue", h.Requeue)
	docs.POST("/:id/extract", h.Extract)
	return engine
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestDocumentUpload_Created(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	id := common.NewID()
	svc.On("Upload", mock.Anything, mock.MatchedBy(func(req dtypes.UploadDocumentRequest) bool {
		return req.Filename == "reactor.txt" && req.Language == "en"
	}), []byte("stirred tank reactor")).
		Return(&dtypes.UploadDocumentResponse{ID: id, Status: dtypes.StatusUploaded}, nil).Once()

	body, contentType := multipartUpload(t, "reactor.txt", []byte("stirred tank reactor"), map[string]string{
		"language": "en",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dtypes.UploadDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, dtypes.StatusUploaded, resp.Status)
	svc.AssertExpectations(t)
}

func TestDocumentUpload_MissingFilePart(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("not multipart"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentUpload_ServiceErrorMapsToStatus(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.New(apperrors.ErrCodeDocumentFormatInvalid, "unsupported content type")).Once()

	body, contentType := multipartUpload(t, "image.png", []byte{0x89, 0x50}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeDocumentFormatInvalid), resp.Error.Code)
}

func TestDocumentGet_NotFound(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("Get", mock.Anything, common.ID("missing")).
		Return(nil, apperrors.New(apperrors.ErrCodeDocumentNotFound, "document not found")).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/missing", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeErrorResponse(t, rec)
	assert.Equal(t, string(apperrors.ErrCodeDocumentNotFound), resp.Error.Code)
}

func TestDocumentList_ParsesFilters(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("List", mock.Anything, mock.MatchedBy(func(req dtypes.DocumentListRequest) bool {
		return req.Status != nil && *req.Status == dtypes.StatusProcessed &&
			req.Language != nil && *req.Language == "en" &&
			req.Pagination.Page == 2 && req.Pagination.PageSize == 50
	})).Return(&dtypes.DocumentListResponse{Items: []dtypes.DocumentDTO{}, Page: 2, PageSize: 50}, nil).Once()

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/documents?status=processed&language=en&page=2&page_size=50", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDocumentList_RejectsUnknownStatus(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=archived", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestDocumentList_ClampsPageSize(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("List", mock.Anything, mock.MatchedBy(func(req dtypes.DocumentListRequest) bool {
		return req.Pagination.PageSize == maxPageSize
	})).Return(&dtypes.DocumentListResponse{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?page_size=5000", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDocumentDelete_NoContent(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("Delete", mock.Anything, common.ID("doc-1")).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doc-1", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestDocumentDownload_ReturnsPresignedURL(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("DownloadURL", mock.Anything, common.ID("doc-1"), 5*time.Minute).
		Return("https://storage.example.com/doc-1?signature=abc", nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download?expiry_seconds=300", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DownloadURLResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.URL, "signature=abc")
	assert.False(t, resp.ExpiresAt.IsZero())
	svc.AssertExpectations(t)
}

func TestDocumentDownload_RejectsNegativeExpiry(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/download?expiry_seconds=-60", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "DownloadURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestDocumentRequeue_Accepted(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("Requeue", mock.Anything, common.ID("doc-9")).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-9/requeue", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	svc.AssertExpectations(t)
}

func TestDocumentRequeue_StatusConflict(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	svc.On("Requeue", mock.Anything, common.ID("doc-9")).
		Return(apperrors.New(apperrors.ErrCodeDocumentStatusInvalid, "only failed documents can be requeued")).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-9/requeue", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestDocumentExtract_RunsPipelineInline(t *testing.T) {
	svc := new(mockIngestService)
	extractor := new(mockExtractor)
	engine := newDocumentRouter(svc, extractor)

	extractor.On("ProcessDocument", mock.Anything, common.ID("doc-1")).
		Return(&dtypes.ExtractionResultDTO{DocumentID: common.ID("doc-1")}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/extract", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp dtypes.ExtractionResultDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, common.ID("doc-1"), resp.DocumentID)
	extractor.AssertExpectations(t)
}

func TestDocumentExtract_NotImplementedWithoutExtractor(t *testing.T) {
	svc := new(mockIngestService)
	engine := newDocumentRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/extract", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDocumentExtract_LockConflict(t *testing.T) {
	svc := new(mockIngestService)
	extractor := new(mockExtractor)
	engine := newDocumentRouter(svc, extractor)

	extractor.On("ProcessDocument", mock.Anything, common.ID("doc-1")).
		Return(nil, apperrors.New(apperrors.ErrCodeConflict, "document is being processed")).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/extract", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}
