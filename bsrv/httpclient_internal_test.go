package bsrv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/advdv/bsplice/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewHTTPTransport(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prop := propagation.TraceContext{}

	rt := NewHTTPTransport(tp, prop)
	require.NotNil(t, rt)

	var traceparent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	span.End()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
	assert.Len(t, sr.Ended(), 2)
}

func TestHTTPTransportServesFragments(t *testing.T) {
	rt := NewHTTPTransport(sdktrace.NewTracerProvider(), propagation.TraceContext{})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<nav/>"))
	}))
	defer ts.Close()

	loc, err := url.Parse(ts.URL + "/nav.html")
	require.NoError(t, err)

	frag, err := fetch.NewHTTP(rt).Fetch(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "<nav/>", string(frag.Body))
	assert.Equal(t, "text/html", frag.ContentType)
}
