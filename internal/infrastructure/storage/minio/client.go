// Package minio stores source documents in S3-compatible object storage.
// Uploaded files live under documents/, generated export artifacts under
// exports/ where a lifecycle rule expires them.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/minio/minio-go/v7/pkg/tags"

	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
)

// ObjectAPI is the subset of the minio-go client the storage layer uses.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObjectTagging(ctx context.Context, bucketName, objectName string, ot *tags.Tags, opts minio.PutObjectTaggingOptions) error
	GetObjectTagging(ctx context.Context, bucketName, objectName string, opts minio.GetObjectTaggingOptions) (*tags.Tags, error)
}

// Object key prefixes within the bucket.
const (
	DocumentPrefix = "documents/"
	ExportPrefix   = "exports/"
)

// exportRetentionDays bounds how long generated export files are kept.
const exportRetentionDays = 30

// ClientConfig holds the object-storage connection settings.
type ClientConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PartSize      int64
	PresignExpiry time.Duration
}

// ClientConfigFromApp maps the application MinIO settings onto a
// ClientConfig.
func ClientConfigFromApp(cfg config.MinIOConfig) ClientConfig {
	return ClientConfig{
		Endpoint:      cfg.Endpoint,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		Bucket:        cfg.Bucket,
		UseSSL:        cfg.UseSSL,
		PresignExpiry: cfg.PresignExpiry,
	}
}

func applyDefaults(cfg *ClientConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PartSize == 0 {
		cfg.PartSize = 16 * 1024 * 1024
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "termforge-documents"
	}
}

// Client wraps the minio-go client with bucket bootstrap and presigning.
type Client struct {
	api    ObjectAPI
	config ClientConfig
	logger logging.Logger
}

// NewClient connects to object storage, verifies reachability, and ensures
// the document bucket exists with its export lifecycle rule.
func NewClient(cfg ClientConfig, logger logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "object storage endpoint is required")
	}
	applyDefaults(&cfg)

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create object storage client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to object storage")
	}

	c := &Client{api: api, config: cfg, logger: logger}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("object storage connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wires a Client around an existing ObjectAPI, for tests.
func NewClientWithAPI(api ObjectAPI, cfg ClientConfig, logger logging.Logger) *Client {
	applyDefaults(&cfg)
	return &Client{api: api, config: cfg, logger: logger}
}

// EnsureBucket creates the document bucket if missing and applies the
// export retention rule. A lifecycle failure is logged, not fatal: plain
// S3-compatible backends may not support it.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to check bucket existence")
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
			return errors.Wrapf(err, errors.ErrCodeInternal, "failed to create bucket %s", c.config.Bucket)
		}
		c.logger.Info("bucket created", logging.String("bucket", c.config.Bucket))
	}

	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "export-cleanup",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(exportRetentionDays),
			},
			Prefix: ExportPrefix,
		},
	}
	if err := c.api.SetBucketLifecycle(ctx, c.config.Bucket, lc); err != nil {
		c.logger.Warn("failed to set export lifecycle rule", logging.Err(err))
	}
	return nil
}

// API returns the underlying object storage API.
func (c *Client) API() ObjectAPI {
	return c.api
}

// Bucket returns the configured document bucket name.
func (c *Client) Bucket() string {
	return c.config.Bucket
}

// HealthStatus reports object storage reachability and bucket presence.
type HealthStatus struct {
	Healthy      bool
	Latency      time.Duration
	BucketExists bool
	Error        string
}

// HealthCheck verifies connectivity and that the document bucket exists.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		status.Error = err.Error()
		return status
	}

	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		status.Healthy = false
		status.Error = err.Error()
		return status
	}
	status.BucketExists = exists
	if !exists {
		status.Healthy = false
		status.Error = "document bucket missing"
	}
	return status
}

// PresignedGetURL returns a time-limited download URL for an object. A zero
// expiry falls back to the configured default.
func (c *Client) PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = c.config.PresignExpiry
	}
	u, err := c.api.PresignedGetObject(ctx, c.config.Bucket, objectKey, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign download url")
	}
	return u.String(), nil
}

// PresignedPutURL returns a time-limited upload URL for an object.
func (c *Client) PresignedPutURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = c.config.PresignExpiry
	}
	u, err := c.api.PresignedPutObject(ctx, c.config.Bucket, objectKey, expiry)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "failed to presign upload url")
	}
	return u.String(), nil
}
