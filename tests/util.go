package testutil

import (
	"fmt"
	"sync"
)

// LogCall is one call received by a RecordingLogger.
type LogCall struct {
	Level string
	Msg   string
	Args  []interface{}
}

// RecordingLogger is a core.Logger that keeps every call in memory.
type RecordingLogger struct {
	mu    sync.Mutex
	calls []LogCall
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) record(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, LogCall{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Debug(msg string, args ...interface{}) { l.record("debug", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...interface{})  { l.record("info", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...interface{})  { l.record("warn", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...interface{}) { l.record("error", msg, args) }

// Fatal records the call and panics so tests can observe it.
func (l *RecordingLogger) Fatal(msg string, args ...interface{}) {
	l.record("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

func (l *RecordingLogger) Calls() []LogCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogCall(nil), l.calls...)
}

// CallsAt returns the calls made at `level`.
func (l *RecordingLogger) CallsAt(level string) []LogCall {
	var out []LogCall
	for _, c := range l.Calls() {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}

func (l *RecordingLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
