// Package tracelog is a thin wrapper around the standard log package for
// callers who want to print periodic Monitor snapshots. Nothing in the
// tokenizer's hot path imports it.
package tracelog

import "log"

// Snapshot is the subset of Monitor a caller wants to print: anything with a
// String() method, matching metrics.go's Metrics.String().
type Snapshot interface {
	String() string
}

// Logger wraps a *log.Logger with a fixed prefix describing what is being
// traced.
type Logger struct {
	inner *log.Logger
}

// New returns a Logger writing to the standard logger's destination with the
// given prefix.
func New(prefix string) *Logger {
	return &Logger{inner: log.New(log.Writer(), prefix, log.LstdFlags)}
}

// Snapshot logs s.String() on its own line.
func (l *Logger) Snapshot(s Snapshot) {
	l.inner.Println(s.String())
}

// Printf logs a formatted message, forwarding to the wrapped *log.Logger.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.inner.Printf(format, args...)
}
