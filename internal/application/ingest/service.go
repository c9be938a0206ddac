// Package ingest provides the application-level service for document
// ingestion.  It owns the upload path: object storage, the document record,
// and the lifecycle event that hands the document to asynchronous extraction.
package ingest

import (
	"context"
	"time"

	domaindoc "github.com/lexforge/TermForge-Intelligence/internal/domain/document"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/storage/minio"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
	"github.com/lexforge/TermForge-Intelligence/pkg/types/common"
	dtypes "github.com/lexforge/TermForge-Intelligence/pkg/types/document"
)

// EventPublisher publishes lifecycle events to the message bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// Service defines the document ingestion operations exposed to the HTTP and
// CLI layers.
type Service interface {
	// Upload stores the raw bytes and the document record, then announces the
	// document on the bus for asynchronous extraction.
	Upload(ctx context.Context, req dtypes.UploadDocumentRequest, content []byte) (*dtypes.UploadDocumentResponse, error)

	// Get returns the document record, including processing status and stats.
	Get(ctx context.Context, id common.ID) (*dtypes.DocumentDTO, error)

	// List returns a page of document records, newest first.
	List(ctx context.Context, req dtypes.DocumentListRequest) (*dtypes.DocumentListResponse, error)

	// Delete removes the document record and its stored object.
	Delete(ctx context.Context, id common.ID) error

	// DownloadURL returns a presigned URL for the stored object.
	DownloadURL(ctx context.Context, id common.ID, expiry time.Duration) (string, error)

	// Requeue re-announces a failed document for extraction.
	Requeue(ctx context.Context, id common.ID) error
}

type serviceImpl struct {
	docs      domaindoc.Repository
	objects   minio.ObjectRepository
	publisher EventPublisher
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// NewService creates the ingestion service.  metrics may be nil.
func NewService(
	docs domaindoc.Repository,
	objects minio.ObjectRepository,
	publisher EventPublisher,
	logger logging.Logger,
	metrics *prometheus.AppMetrics,
) Service {
	return &serviceImpl{
		docs:      docs,
		objects:   objects,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

func (s *serviceImpl) Upload(ctx context.Context, req dtypes.UploadDocumentRequest, content []byte) (*dtypes.UploadDocumentResponse, error) {
	doc, err := domaindoc.NewDocument(req.Filename, req.ContentType, req.Language, int64(len(content)))
	if err != nil {
		return nil, err
	}

	objectKey := minio.DocumentObjectKey(doc.ID, doc.Filename)
	if _, err := s.objects.Upload(ctx, &minio.UploadRequest{
		ObjectKey:   objectKey,
		Data:        content,
		ContentType: doc.ContentType,
		Metadata: map[string]string{
			"document-id": string(doc.ID),
			"language":    doc.Language,
		},
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to store document object")
	}
	doc.ObjectKey = objectKey

	if err := s.docs.Save(ctx, doc); err != nil {
		// The record is the source of truth; without it the object is garbage.
		if delErr := s.objects.Delete(ctx, objectKey); delErr != nil {
			s.logger.Warn("orphaned object after failed document save",
				logging.String("object_key", objectKey),
				logging.Err(delErr))
		}
		return nil, err
	}

	s.publishEvents(ctx, doc)

	if s.metrics != nil {
		prometheus.RecordDocumentUpload(s.metrics, doc.ContentType, doc.Language, doc.SizeBytes)
	}
	s.logger.Info("document uploaded",
		logging.String("document_id", string(doc.ID)),
		logging.String("filename", doc.Filename),
		logging.String("language", doc.Language),
		logging.Int64("size_bytes", doc.SizeBytes))

	return &dtypes.UploadDocumentResponse{ID: doc.ID, Status: doc.Status}, nil
}

func (s *serviceImpl) Get(ctx context.Context, id common.ID) (*dtypes.DocumentDTO, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := doc.ToDTO()
	return &dto, nil
}

func (s *serviceImpl) List(ctx context.Context, req dtypes.DocumentListRequest) (*dtypes.DocumentListResponse, error) {
	return s.docs.List(ctx, req)
}

func (s *serviceImpl) Delete(ctx context.Context, id common.ID) error {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if doc.ObjectKey != "" {
		if err := s.objects.Delete(ctx, doc.ObjectKey); err != nil {
			// The record is gone; a leaked object only wastes space.
			s.logger.Warn("failed to delete stored object",
				logging.String("document_id", string(id)),
				logging.String("object_key", doc.ObjectKey),
				logging.Err(err))
		}
	}
	s.logger.Info("document deleted", logging.String("document_id", string(id)))
	return nil
}

func (s *serviceImpl) DownloadURL(ctx context.Context, id common.ID, expiry time.Duration) (string, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.ObjectKey == "" {
		return "", errors.New(errors.ErrCodeDocumentNotFound, "document has no stored object").
			WithDetail("document_id=" + string(id))
	}
	return s.objects.PresignedDownloadURL(ctx, doc.ObjectKey, expiry)
}

func (s *serviceImpl) Requeue(ctx context.Context, id common.ID) error {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != dtypes.StatusFailed {
		return errors.New(errors.ErrCodeDocumentStatusInvalid, "only failed documents can be requeued").
			WithDetail("status=" + string(doc.Status))
	}

	err = s.publisher.PublishEvent(ctx, kafka.TopicDocumentUploaded, "document.uploaded",
		string(doc.ID), uploadedPayload(doc))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to requeue document")
	}
	s.logger.Info("document requeued", logging.String("document_id", string(id)))
	return nil
}

// publishEvents drains the aggregate's domain events onto the bus.  Publish
// failures are logged, not returned: the record is durable and Requeue can
// recover a lost announcement.
func (s *serviceImpl) publishEvents(ctx context.Context, doc *domaindoc.Document) {
	for _, event := range doc.Events() {
		var topic string
		switch event.(type) {
		case domaindoc.UploadedEvent:
			topic = kafka.TopicDocumentUploaded
		case domaindoc.ProcessedEvent:
			topic = kafka.TopicDocumentProcessed
		case domaindoc.FailedEvent:
			topic = kafka.TopicDocumentFailed
		default:
			continue
		}
		err := s.publisher.PublishEvent(ctx, topic, event.EventType(), string(doc.ID), event)
		if err != nil {
			s.logger.Error("failed to publish document event",
				logging.String("document_id", string(doc.ID)),
				logging.String("event_type", event.EventType()),
				logging.Err(err))
		}
	}
}

func uploadedPayload(doc *domaindoc.Document) domaindoc.UploadedEvent {
	return domaindoc.UploadedEvent{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Language:   doc.Language,
	}
}
