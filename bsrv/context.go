package bsrv

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/advdv/bsplice"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyRequestDep ctxKey = iota
	ctxKeyLWAContext
)

// requestDep holds request-scoped dependencies available via context.
type requestDep struct {
	logger *zap.Logger
}

// LWAContext contains Lambda execution context from the x-amzn-lambda-context header, it is present when the server
// runs behind the Lambda Web Adapter.
type LWAContext struct {
	RequestID          string `json:"request_id"`
	Deadline           int64  `json:"deadline"`
	InvokedFunctionARN string `json:"invoked_function_arn"`
	XRayTraceID        string `json:"xray_trace_id"`
}

// DeadlineTime returns the Lambda invocation deadline as a time.Time.
func (lc *LWAContext) DeadlineTime() time.Time {
	if lc.Deadline == 0 {
		return time.Time{}
	}
	return time.UnixMilli(lc.Deadline)
}

// withRequestDep injects dependencies into the request context.
func withRequestDep(d *requestDep) bsplice.Middleware {
	return func(next bsplice.Handler) bsplice.Handler {
		return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ctx = context.WithValue(ctx, ctxKeyRequestDep, d)
			return next.ServeContent(ctx, w, r.WithContext(ctx))
		})
	}
}

// withLWAContext parses the x-amzn-lambda-context header from AWS Lambda Web Adapter.
func withLWAContext() bsplice.Middleware {
	return func(next bsplice.Handler) bsplice.Handler {
		return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if header := r.Header.Get("x-amzn-lambda-context"); header != "" {
				var lc LWAContext
				if err := json.Unmarshal([]byte(header), &lc); err == nil {
					ctx = context.WithValue(ctx, ctxKeyLWAContext, &lc)
				}
			}
			return next.ServeContent(ctx, w, r.WithContext(ctx))
		})
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("bsrv: requestDep not found in context; is the middleware configured?")
	}
	return d
}

// LWA retrieves the LWAContext from the request context.
// Returns nil if not running in a Lambda environment.
func LWA(ctx context.Context) *LWAContext {
	lc, _ := ctx.Value(ctxKeyLWAContext).(*LWAContext)
	return lc
}

// Log returns a trace-correlated zap logger from the context.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(traceFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// traceFields extracts trace_id and span_id from the context for log correlation.
func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// withAccessLog logs every request at debug level once its handler returned, nested requests included.
func withAccessLog() bsplice.Middleware {
	return func(next bsplice.Handler) bsplice.Handler {
		return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			err := next.ServeContent(ctx, w, r)

			Log(ctx).Debug("served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("took", time.Since(start)),
				zap.Error(err))

			return err
		})
	}
}
