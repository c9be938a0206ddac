// Package opensearch maintains the glossary full-text index: a managed
// client with background health checks, an indexer for index lifecycle and
// bulk ingestion, and a searcher that builds query DSL for the API layer.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "invalid opensearch configuration")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "opensearch connection failed")
)

// ClientConfig holds the configuration for the OpenSearch client.
type ClientConfig struct {
	Addresses           []string
	Username            string
	Password            string
	InsecureSkipVerify  bool
	IndexPrefix         string
	MaxRetries          int
	RetryBackoff        time.Duration
	RequestTimeout      time.Duration
	MaxIdleConnsPerHost int
	HealthCheckInterval time.Duration
}

// ClientConfigFromApp maps the application OpenSearch settings onto a
// ClientConfig.
func ClientConfigFromApp(cfg config.OpenSearchConfig) ClientConfig {
	return ClientConfig{
		Addresses:          cfg.Addresses,
		Username:           cfg.User,
		Password:           cfg.Password,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		IndexPrefix:        cfg.IndexPrefix,
	}
}

// Client manages the OpenSearch connection and tracks cluster health.
type Client struct {
	client  *opensearch.Client
	config  ClientConfig
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
}

// NewClient creates a client, verifies connectivity, and starts a background
// health check loop that runs until Close.
func NewClient(cfg ClientConfig, logger logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  func(int) time.Duration { return cfg.RetryBackoff },
		Transport:     transport,
		RetryOnStatus: []int{429, 502, 503, 504},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create opensearch client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		client: osClient,
		config: cfg,
		logger: logger,
		cancel: cancel,
	}

	if err := c.Ping(ctx); err != nil {
		cancel()
		return nil, ErrConnectionFailed
	}
	go c.healthCheckLoop(ctx)

	return c, nil
}

// Ping checks connectivity and updates the health flag.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		c.healthy.Store(false)
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "ping failed")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		c.healthy.Store(false)
		return errors.Newf(errors.ErrCodeServiceUnavailable, "ping returned status %d", resp.StatusCode)
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed cluster health.
func (c *Client) IsHealthy() bool {
	return c.healthy.Load()
}

// GetClient returns the underlying OpenSearch client.
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// IndexName prefixes a bare index name with the configured index prefix.
func (c *Client) IndexName(name string) string {
	return c.config.IndexPrefix + name
}

// Close stops the health check loop.
func (c *Client) Close() error {
	c.cancel()
	c.logger.Info("opensearch client closed")
	return nil
}

func (c *Client) healthCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev := c.healthy.Load()
			err := c.Ping(ctx)
			curr := c.healthy.Load()

			if prev && !curr {
				c.logger.Error("opensearch cluster became unhealthy", logging.Err(err))
			} else if !prev && curr {
				c.logger.Info("opensearch cluster recovered")
			}
		}
	}
}

// ValidateConfig validates the client configuration.
func ValidateConfig(cfg ClientConfig) error {
	if len(cfg.Addresses) == 0 {
		return ErrInvalidConfig
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	if cfg.RequestTimeout < 0 {
		return errors.New(errors.ErrCodeValidation, "RequestTimeout must be >= 0")
	}
	return nil
}
