// Package middleware contains the gin middleware shared by the HTTP API:
// request logging with metrics, CORS, and rate limiting.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/prometheus"
)

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are paths that should not be logged, typically the health
	// probes polled by the orchestrator.
	SkipPaths []string

	// SlowThreshold is the duration above which a completed request is logged
	// at WARN level.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig returns the default logging configuration.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging returns middleware that logs every request and records the
// HTTP metrics. metrics may be nil.
func RequestLogging(logger logging.Logger, metrics *prometheus.AppMetrics, config LoggingConfig) gin.HandlerFunc {
	skipSet := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skipSet[p] = true
	}

	return func(c *gin.Context) {
		if skipSet[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		// Use the route pattern for metrics so path parameters do not blow
		// up label cardinality.
		metricsPath := c.FullPath()
		if metricsPath == "" {
			metricsPath = "unmatched"
		}
		if metrics != nil {
			prometheus.RecordHTTPRequest(metrics, c.Request.Method, metricsPath,
				status, duration, c.Request.ContentLength, int64(c.Writer.Size()))
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("remote_addr", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, logging.String("query", query))
		}
		if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
			fields = append(fields, logging.String("request_id", requestID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("http request completed with server error", fields...)
		case status >= 400:
			logger.Warn("http request completed with client error", fields...)
		case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
			logger.Warn("http request completed slowly", fields...)
		default:
			logger.Info("http request completed", fields...)
		}
	}
}
