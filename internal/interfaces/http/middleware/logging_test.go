package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
)

func newLoggingRouter(logger logging.Logger, cfg LoggingConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestLogging(logger, nil, cfg))
	engine.GET("/resource", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	engine.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "missing"})
	})
	engine.GET("/broken", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broken"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})
	return engine
}

func observedLogger(t *testing.T) (logging.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewLoggerFromCore(core), logs
}

func TestRequestLogging_LogsCompletedRequest(t *testing.T) {
	logger, logs := observedLogger(t)
	engine := newLoggingRouter(logger, DefaultLoggingConfig())

	req := httptest.NewRequest(http.MethodGet, "/resource?page=2", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/resource", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "page=2", fields["query"])
	assert.Equal(t, "req-123", fields["request_id"])
}

func TestRequestLogging_ClientErrorsLogAtWarn(t *testing.T) {
	logger, logs := observedLogger(t)
	engine := newLoggingRouter(logger, DefaultLoggingConfig())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestRequestLogging_ServerErrorsLogAtError(t *testing.T) {
	logger, logs := observedLogger(t)
	engine := newLoggingRouter(logger, DefaultLoggingConfig())

	req := httptest.NewRequest(http.MethodGet, "/broken", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestRequestLogging_SkipsConfiguredPaths(t *testing.T) {
	logger, logs := observedLogger(t)
	engine := newLoggingRouter(logger, DefaultLoggingConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, logs.Len())
}

func TestRequestLogging_SlowRequestsLogAtWarn(t *testing.T) {
	logger, logs := observedLogger(t)
	cfg := DefaultLoggingConfig()
	cfg.SlowThreshold = time.Nanosecond

	engine := gin.New()
	engine.Use(RequestLogging(logger, nil, cfg))
	engine.GET("/slow", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}
