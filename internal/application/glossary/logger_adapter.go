package glossary

import (
	icommon "github.com/lexforge/TermForge-Intelligence/internal/intelligence/common"
	"github.com/lexforge/TermForge-Intelligence/internal/infrastructure/monitoring/logging"
)

// pipelineLogger bridges the structured application logger onto the
// key/value logger the intelligence packages accept.
type pipelineLogger struct {
	base logging.Logger
}

// NewPipelineLogger wraps a structured logger for use by the extraction
// pipeline. A nil base yields a no-op logger.
func NewPipelineLogger(base logging.Logger) icommon.Logger {
	if base == nil {
		return icommon.NewNoopLogger()
	}
	return &pipelineLogger{base: base}
}

func (l *pipelineLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.base.Debug(msg, kvFields(keysAndValues)...)
}

func (l *pipelineLogger) Info(msg string, keysAndValues ...interface{}) {
	l.base.Info(msg, kvFields(keysAndValues)...)
}

func (l *pipelineLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.base.Warn(msg, kvFields(keysAndValues)...)
}

func (l *pipelineLogger) Error(msg string, keysAndValues ...interface{}) {
	l.base.Error(msg, kvFields(keysAndValues)...)
}

func kvFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, logging.Any(key, keysAndValues[i+1]))
	}
	return fields
}
