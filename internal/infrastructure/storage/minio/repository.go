package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/tags"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid object request")
)

// DocumentObjectKey builds the canonical object key for an uploaded source
// document.
func DocumentObjectKey(documentID common.ID, filename string) string {
	return DocumentPrefix + string(documentID) + "/" + path.Base(filename)
}

// ExportObjectKey builds the object key for a generated export artifact.
func ExportObjectKey(filename string) string {
	return ExportPrefix + path.Base(filename)
}

// UploadRequest describes an in-memory object upload.
type UploadRequest struct {
	ObjectKey   string
	Data        []byte
	ContentType string
	Metadata    map[string]string
	Tags        map[string]string
}

// StreamUploadRequest describes a streaming upload. Size may be -1 when
// unknown; the upload then runs multipart with the configured part size.
type StreamUploadRequest struct {
	ObjectKey   string
	Reader      io.Reader
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// UploadResult reports a completed upload.
type UploadResult struct {
	ObjectKey  string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// DownloadResult holds a fetched object and its metadata.
type DownloadResult struct {
	Data         []byte
	ContentType  string
	Size         int64
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
}

// ObjectMetadata describes a stored object without its content.
type ObjectMetadata struct {
	ObjectKey    string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// DeleteError reports a single failure inside a batch delete.
type DeleteError struct {
	ObjectKey string
	Err       error
}

// ObjectRepository is the object-storage port used by the ingest and export
// services. All keys are relative to the configured document bucket.
type ObjectRepository interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	UploadStream(ctx context.Context, req *StreamUploadRequest) (*UploadResult, error)
	Download(ctx context.Context, objectKey string) (*DownloadResult, error)
	DownloadToWriter(ctx context.Context, objectKey string, w io.Writer) error
	Delete(ctx context.Context, objectKey string) error
	DeleteBatch(ctx context.Context, objectKeys []string) []DeleteError
	Exists(ctx context.Context, objectKey string) (bool, error)
	GetMetadata(ctx context.Context, objectKey string) (*ObjectMetadata, error)
	List(ctx context.Context, prefix string, maxKeys int) ([]*ObjectMetadata, error)
	PresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	PresignedUploadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	SetTags(ctx context.Context, objectKey string, tagSet map[string]string) error
	GetTags(ctx context.Context, objectKey string) (map[string]string, error)
}

type objectRepository struct {
	client *Client
	logger logging.Logger
}

// NewObjectRepository creates the object repository over a connected Client.
func NewObjectRepository(client *Client, logger logging.Logger) ObjectRepository {
	return &objectRepository{client: client, logger: logger}
}

func (r *objectRepository) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req.ObjectKey == "" || len(req.Data) == 0 {
		return nil, ErrInvalidRequest
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(req.Data[:min(512, len(req.Data))])
	}

	info, err := r.client.API().PutObject(ctx, r.client.Bucket(), req.ObjectKey,
		bytes.NewReader(req.Data), int64(len(req.Data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: req.Metadata,
			UserTags:     req.Tags,
		})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "object upload failed")
	}

	r.logger.Debug("object uploaded",
		logging.String("key", req.ObjectKey),
		logging.Int64("size", info.Size))
	return &UploadResult{
		ObjectKey:  info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (r *objectRepository) UploadStream(ctx context.Context, req *StreamUploadRequest) (*UploadResult, error) {
	if req.ObjectKey == "" || req.Reader == nil {
		return nil, ErrInvalidRequest
	}

	opts := minio.PutObjectOptions{
		ContentType:  req.ContentType,
		UserMetadata: req.Metadata,
	}
	if req.Size < 0 {
		opts.PartSize = uint64(r.client.config.PartSize)
	}

	info, err := r.client.API().PutObject(ctx, r.client.Bucket(), req.ObjectKey, req.Reader, req.Size, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "object stream upload failed")
	}
	return &UploadResult{
		ObjectKey:  info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (r *objectRepository) Download(ctx context.Context, objectKey string) (*DownloadResult, error) {
	obj, err := r.client.API().GetObject(ctx, r.client.Bucket(), objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "object download failed")
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "object stat failed")
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "object read failed")
	}

	return &DownloadResult{
		Data:         data,
		ContentType:  stat.ContentType,
		Size:         stat.Size,
		ETag:         stat.ETag,
		Metadata:     stat.UserMetadata,
		LastModified: stat.LastModified,
	}, nil
}

func (r *objectRepository) DownloadToWriter(ctx context.Context, objectKey string, w io.Writer) error {
	obj, err := r.client.API().GetObject(ctx, r.client.Bucket(), objectKey, minio.GetObjectOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "object download failed")
	}
	defer obj.Close()

	if _, err := io.Copy(w, obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ErrObjectNotFound
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "object stream failed")
	}
	return nil
}

func (r *objectRepository) Delete(ctx context.Context, objectKey string) error {
	if err := r.client.API().RemoveObject(ctx, r.client.Bucket(), objectKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "object delete failed")
	}
	return nil
}

func (r *objectRepository) DeleteBatch(ctx context.Context, objectKeys []string) []DeleteError {
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, key := range objectKeys {
			select {
			case objectsCh <- minio.ObjectInfo{Key: key}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []DeleteError
	for e := range r.client.API().RemoveObjects(ctx, r.client.Bucket(), objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, DeleteError{ObjectKey: e.ObjectName, Err: e.Err})
	}
	return errs
}

func (r *objectRepository) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := r.client.API().StatObject(ctx, r.client.Bucket(), objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "object stat failed")
	}
	return true, nil
}

func (r *objectRepository) GetMetadata(ctx context.Context, objectKey string) (*ObjectMetadata, error) {
	info, err := r.client.API().StatObject(ctx, r.client.Bucket(), objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "object stat failed")
	}
	return &ObjectMetadata{
		ObjectKey:    objectKey,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     info.UserMetadata,
	}, nil
}

func (r *objectRepository) List(ctx context.Context, prefix string, maxKeys int) ([]*ObjectMetadata, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	ch := r.client.API().ListObjects(ctx, r.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   maxKeys,
	})

	var objects []*ObjectMetadata
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "object listing failed")
		}
		objects = append(objects, &ObjectMetadata{
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
		if len(objects) >= maxKeys {
			break
		}
	}
	return objects, nil
}

func (r *objectRepository) PresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return r.client.PresignedGetURL(ctx, objectKey, expiry)
}

func (r *objectRepository) PresignedUploadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return r.client.PresignedPutURL(ctx, objectKey, expiry)
}

func (r *objectRepository) SetTags(ctx context.Context, objectKey string, tagSet map[string]string) error {
	ot, err := tags.NewTags(tagSet, false)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid object tags")
	}
	if err := r.client.API().PutObjectTagging(ctx, r.client.Bucket(), objectKey, ot, minio.PutObjectTaggingOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to set object tags")
	}
	return nil
}

func (r *objectRepository) GetTags(ctx context.Context, objectKey string) (map[string]string, error) {
	ot, err := r.client.API().GetObjectTagging(ctx, r.client.Bucket(), objectKey, minio.GetObjectTaggingOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to get object tags")
	}
	return ot.ToMap(), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
