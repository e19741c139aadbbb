package rdmclient

import (
	"slices"

	"github.com/hashicorp/go-hclog"
)

// HCLogger adapts an hclog.Logger to rdm.Logger. When passed as
// Config.Logger together with Config.Debug, the same logger also receives
// the retry messages of the HTTP layer.
type HCLogger struct {
	logger hclog.Logger
}

// NewHCLogger wraps logger.
func NewHCLogger(logger hclog.Logger) *HCLogger {
	return &HCLogger{logger: logger}
}

// Debug logs at debug level.
func (l *HCLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, keyValues(fields)...)
}

// Info logs at info level.
func (l *HCLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, keyValues(fields)...)
}

// Warn logs at warn level.
func (l *HCLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, keyValues(fields)...)
}

// Error logs at error level.
func (l *HCLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, keyValues(fields)...)
}

// keyValues flattens fields into hclog's alternating key/value form, sorted
// by key.
func keyValues(fields map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}

	return args
}
