package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Stage names used to tag log lines by pipeline step
const (
	StageLogin  = "login"
	StageMyInfo = "myinfo"
	StageReport = "report"
	StageImage  = "image"
	StageConfig = "config"
)

// ForStage returns l tagged with a stage field. A nil l uses the global logger.
func ForStage(l Logger, stage string) Logger {
	if l == nil {
		l = GetLogger()
	}
	return l.WithField("stage", stage)
}

// LogRequest logs HTTP request information at a level chosen by status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	if l == nil {
		l = GetLogger()
	}
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 400:
		l.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.ErrorWithFields("HTTP request server error", fields)
	}
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
