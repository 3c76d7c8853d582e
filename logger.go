package bsplice

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledServeError(err error)
	LogNestedError(locator string, err error)
	LogUnterminatedStream(path string)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("bsplice: unhandled server error: %s", err)
}

func (l stdLogger) LogNestedError(locator string, err error) {
	l.Logger.Printf("bsplice: nested request for %q failed: %s", locator, err)
}

func (l stdLogger) LogUnterminatedStream(path string) {
	l.Logger.Printf("bsplice: response for %q closed without end-of-stream marker", path)
}

func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}

	return stdLogger{l}
}

type nopLogger struct{}

func (nopLogger) LogUnhandledServeError(error)      {}
func (nopLogger) LogNestedError(string, error)      {}
func (nopLogger) LogUnterminatedStream(path string) {}

type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogNestedError         int64
	NumLogUnterminatedStream  int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("bsplice: unhandled server error: %s", err)
}

func (l *TestLogger) LogNestedError(locator string, err error) {
	atomic.AddInt64(&l.NumLogNestedError, 1)
	l.tb.Logf("bsplice: nested request for %q failed: %s", locator, err)
}

func (l *TestLogger) LogUnterminatedStream(path string) {
	atomic.AddInt64(&l.NumLogUnterminatedStream, 1)
	l.tb.Logf("bsplice: response for %q closed without end-of-stream marker", path)
}

var _ Logger = &TestLogger{}
