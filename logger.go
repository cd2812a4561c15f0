package rhttp

import (
	"log"
	"sync/atomic"
	"testing"
	"time"
)

// DisconnectReason classifies why a connection went away before the handler
// completed.
type DisconnectReason int

const (
	// DisconnectClientClosed means the client hung up, cleanly or not.
	DisconnectClientClosed DisconnectReason = iota
	// DisconnectDeadline means a transport-level deadline expired.
	DisconnectDeadline
	// DisconnectServerAbort means a handler aborted the response by
	// panicking with http.ErrAbortHandler.
	DisconnectServerAbort
)

// String returns the reason's log representation.
func (r DisconnectReason) String() string {
	switch r {
	case DisconnectClientClosed:
		return "client closed connection"
	case DisconnectDeadline:
		return "deadline expired"
	case DisconnectServerAbort:
		return "server aborted connection"
	default:
		return "unknown"
	}
}

// Logger can be implemented to get informed about important states. Every
// 5xx envelope is logged through LogEnvelope regardless of whether its detail
// is exposed to the client.
type Logger interface {
	LogEnvelope(e *Envelope)
	LogDisconnect(reason DisconnectReason, elapsed time.Duration)
	LogCancelled(handler string, elapsed time.Duration)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogEnvelope(e *Envelope) {
	l.Printf("rhttp: %s", e)
}

func (l stdLogger) LogDisconnect(reason DisconnectReason, elapsed time.Duration) {
	l.Printf("rhttp: %s after %s", reason, elapsed)
}

func (l stdLogger) LogCancelled(handler string, elapsed time.Duration) {
	l.Printf("rhttp: handler [%s] cancelled after %s", handler, elapsed)
}

// NewStdLogger inits a logger on the standard library's log package. A nil
// argument uses the default logger.
func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}

	return stdLogger{l}
}

// TestLogger counts logged events for assertions in tests.
type TestLogger struct {
	tb testing.TB

	NumLogEnvelope   int64
	NumLogDisconnect int64
	NumLogCancelled  int64
}

// NewTestLogger inits a test logger.
func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogEnvelope(e *Envelope) {
	atomic.AddInt64(&l.NumLogEnvelope, 1)
	l.tb.Logf("rhttp: %s", e)
}

func (l *TestLogger) LogDisconnect(reason DisconnectReason, elapsed time.Duration) {
	atomic.AddInt64(&l.NumLogDisconnect, 1)
	l.tb.Logf("rhttp: %s after %s", reason, elapsed)
}

func (l *TestLogger) LogCancelled(handler string, elapsed time.Duration) {
	atomic.AddInt64(&l.NumLogCancelled, 1)
	l.tb.Logf("rhttp: handler [%s] cancelled after %s", handler, elapsed)
}

var _ Logger = &TestLogger{}
