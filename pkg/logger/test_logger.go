package logger

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// Field returns the value of a captured field, or nil
func (m LogMessage) Field(key string) interface{} {
	if m.Fields == nil {
		return nil
	}
	return m.Fields[key]
}

// sink is the shared capture buffer behind a TestLogger and its children
type sink struct {
	mu       sync.Mutex
	messages []LogMessage
	buffer   bytes.Buffer
}

// TestLogger captures log messages for assertions in tests.
// Children created with WithField/WithFields/WithError write to the same sink.
type TestLogger struct {
	sink   *sink
	fields map[string]interface{}
	err    error
	nop    zerolog.Logger
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &sink{}, nop: zerolog.Nop()}
}

func (l *TestLogger) child(fields map[string]interface{}, err error) *TestLogger {
	return &TestLogger{sink: l.sink, fields: fields, err: err, nop: l.nop}
}

func (l *TestLogger) merge(extra map[string]interface{}) map[string]interface{} {
	if len(l.fields) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (l *TestLogger) log(level, msg string, extra map[string]interface{}) {
	fields := l.merge(extra)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	l.sink.messages = append(l.sink.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   l.err,
	})

	fmt.Fprintf(&l.sink.buffer, "[%s] %s", level, msg)
	if len(fields) > 0 {
		fmt.Fprintf(&l.sink.buffer, " fields=%v", fields)
	}
	if l.err != nil {
		fmt.Fprintf(&l.sink.buffer, " error=%v", l.err)
	}
	fmt.Fprintln(&l.sink.buffer)
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *TestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.log("FATAL", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.child(l.merge(map[string]interface{}{key: value}), l.err)
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.child(l.merge(fields), l.err)
}

func (l *TestLogger) WithError(err error) Logger {
	return l.child(l.fields, err)
}

func (l *TestLogger) WithContext(ctx context.Context) Logger {
	return l
}

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return &l.nop
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	messages := make([]LogMessage, len(l.sink.messages))
	copy(messages, l.sink.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// CountMessage returns how many times text was logged
func (l *TestLogger) CountMessage(text string) int {
	n := 0
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			n++
		}
	}
	return n
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	l.sink.messages = l.sink.messages[:0]
	l.sink.buffer.Reset()
}

// String returns all log messages as a string
func (l *TestLogger) String() string {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	return l.sink.buffer.String()
}
