package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestNewClient_RejectsNonHTTPScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestClient_SetsStandardHeaders(t *testing.T) {
	var gotUA, gotAccept, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.get(context.Background(), "/ping", nil))

	assert.Contains(t, gotUA, "termforge-go-sdk/")
	assert.Equal(t, "application/json", gotAccept)
	assert.NotEmpty(t, gotRequestID)
}

func TestClient_ParsesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"DOC_001","message":"document not found"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryMax(0))
	require.NoError(t, err)

	err = c.get(context.Background(), "/api/v1/documents/missing", nil)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "DOC_001", apiErr.Code)
	assert.Equal(t, "document not found", apiErr.Message)
	assert.True(t, apiErr.IsNotFound())
	assert.False(t, apiErr.IsServerError())
}

func TestClient_FallsBackToRawBodyForNonEnvelopeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryMax(0))
	require.NoError(t, err)

	err = c.get(context.Background(), "/anything", nil)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.True(t, apiErr.IsServerError())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithRetryMax(3),
		WithRetryWait(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	var resp struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.get(context.Background(), "/flaky", &resp))
	assert.True(t, resp.OK)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"COMMON_002","message":"bad request"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithRetryMax(3),
		WithRetryWait(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	err = c.get(context.Background(), "/bad", nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClient_ContextCancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL,
		WithRetryMax(10),
		WithRetryWait(time.Hour, time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = c.get(ctx, "/never", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOptions_Applied(t *testing.T) {
	custom := &http.Client{Timeout: time.Second}
	c, err := NewClient("http://localhost:8080",
		WithHTTPClient(custom),
		WithUserAgent("custom-agent/1.0"),
		WithRetryMax(7))
	require.NoError(t, err)

	assert.Same(t, custom, c.httpClient)
	assert.Equal(t, "custom-agent/1.0", c.userAgent)
	assert.Equal(t, 7, c.retryMax)
}

func TestWithTimeout(t *testing.T) {
	c, err := NewClient("http://localhost:8080", WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestSubClients_AreSingletons(t *testing.T) {
	c, err := NewClient("http://localhost:8080")
	require.NoError(t, err)

	assert.Same(t, c.Documents(), c.Documents())
	assert.Same(t, c.Glossary(), c.Glossary())
}
