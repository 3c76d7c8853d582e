package bsrv

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/bsplice"
)

// Timeouts
//
// Three bounds apply. The http.Server timeouts are derived from BS_REQUEST_TIMEOUT and catch slow clients. The
// dispatcher bounds every main request, and the nested requests started for it, by the same timeout. When the
// server runs behind the Lambda Web Adapter, the handler of a main request is additionally bound by the invocation
// deadline minus a buffer.

// DefaultDeadlineBuffer is the default time reserved before a Lambda deadline
// for cleanup, error responses, and graceful shutdown.
const DefaultDeadlineBuffer = 500 * time.Millisecond

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout is the longest a request may take.
	RequestTimeout time.Duration

	// DeadlineBuffer is subtracted from the Lambda invocation deadline to allow
	// time for cleanup. Defaults to DefaultDeadlineBuffer.
	DeadlineBuffer time.Duration
}

// ServerTimeouts returns the http.Server timeout values for the request timeout.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	timeout := tc.RequestTimeout

	readHeaderTimeout = min(timeout, 5*time.Second)
	readTimeout = timeout

	// the write deadline covers the whole response, give the handler its full timeout and some slack to write
	writeTimeout = timeout + tc.buffer()
	idleTimeout = 2 * timeout

	return
}

func (tc TimeoutConfig) buffer() time.Duration {
	if tc.DeadlineBuffer <= 0 {
		return DefaultDeadlineBuffer
	}
	return tc.DeadlineBuffer
}

// WithRequestDeadline returns middleware that sets a context deadline based on
// the Lambda invocation deadline from LWAContext.
//
// If no LWA context is available (e.g., local development), the context is
// passed through unchanged, and the request timeout applies.
func WithRequestDeadline(buffer time.Duration) bsplice.Middleware {
	if buffer <= 0 {
		buffer = DefaultDeadlineBuffer
	}

	return func(next bsplice.Handler) bsplice.Handler {
		return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if lwa := LWA(ctx); lwa != nil {
				if deadline := lwa.DeadlineTime(); !deadline.IsZero() {
					adjusted := deadline.Add(-buffer)
					if time.Until(adjusted) > 0 {
						var cancel context.CancelFunc
						ctx, cancel = context.WithDeadline(ctx, adjusted)
						defer cancel()
					}
				}
			}

			return next.ServeContent(ctx, w, r.WithContext(ctx))
		})
	}
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}
