package opensearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexforge/TermForge-Intelligence/internal/config"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
)

// newTestClient wraps an httptest server in a Client without running the
// startup ping or the health check loop.
func newTestClient(t *testing.T, serverURL string, prefix string) *Client {
	t.Helper()
	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{serverURL},
	})
	require.NoError(t, err)

	c := &Client{
		client: osClient,
		config: ClientConfig{Addresses: []string{serverURL}, IndexPrefix: prefix},
		logger: logging.NewNopLogger(),
		cancel: func() {},
	}
	c.healthy.Store(true)
	return c
}

func TestValidateConfig(t *testing.T) {
	err := ValidateConfig(ClientConfig{Addresses: []string{"http://localhost:9200"}})
	assert.NoError(t, err)

	err = ValidateConfig(ClientConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = ValidateConfig(ClientConfig{Addresses: []string{"http://localhost:9200"}, MaxRetries: -1})
	assert.Error(t, err)
}

func TestClientConfigFromApp(t *testing.T) {
	cfg := ClientConfigFromApp(config.OpenSearchConfig{
		Addresses:   []string{"https://search:9200"},
		User:        "admin",
		Password:    "secret",
		IndexPrefix: "termforge-",
	})

	assert.Equal(t, []string{"https://search:9200"}, cfg.Addresses)
	assert.Equal(t, "admin", cfg.Username)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "termforge-", cfg.IndexPrefix)
}

func TestClientPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "")
	c.healthy.Store(false)

	err := c.Ping(context.Background())
	assert.NoError(t, err)
	assert.True(t, c.IsHealthy())
}

func TestClientPing_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "")

	err := c.Ping(context.Background())
	assert.Error(t, err)
	assert.False(t, c.IsHealthy())
}

func TestClientIndexName(t *testing.T) {
	c := newTestClient(t, "http://localhost:9200", "termforge-")
	assert.Equal(t, "termforge-glossary", c.IndexName(GlossaryIndex))

	bare := newTestClient(t, "http://localhost:9200", "")
	assert.Equal(t, "glossary", bare.IndexName(GlossaryIndex))
}
