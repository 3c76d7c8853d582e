package bsrv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bsplice"
	"github.com/advdv/bsplice/addition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx/fxtest"
)

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	for _, typ := range []string{"stdout", ""} {
		exp, err := newExporter(ctx, typ)
		require.NoError(t, err)
		assert.NotNil(t, exp)
	}

	_, err := newExporter(ctx, "invalid")
	require.EqualError(t, err, `unsupported BS_OTEL_EXPORTER: "invalid" (supported: stdout, xrayudp, none)`)
}

func TestNewTracerProvider(t *testing.T) {
	t.Run("none is a noop provider", func(t *testing.T) {
		lc := fxtest.NewLifecycle(t)
		tp, err := NewTracerProvider(lc, testEnv{otelExp: "none"}, &Site{})
		require.NoError(t, err)

		_, ok := tp.(noop.TracerProvider)
		assert.True(t, ok)
	})

	t.Run("stdout is shut down with the app", func(t *testing.T) {
		lc := fxtest.NewLifecycle(t)
		tp, err := NewTracerProvider(lc, testEnv{otelExp: "stdout"}, &Site{})
		require.NoError(t, err)

		_, ok := tp.(*sdktrace.TracerProvider)
		assert.True(t, ok)

		lc.RequireStart()
		lc.RequireStop()
	})
}

func TestNewPropagator(t *testing.T) {
	prop := NewPropagator(testEnv{otelExp: "stdout"})
	assert.Contains(t, prop.Fields(), "traceparent")
	assert.Contains(t, prop.Fields(), "baggage")

	prop = NewPropagator(testEnv{otelExp: "xrayudp"})
	assert.Equal(t, []string{"X-Amzn-Trace-Id"}, prop.Fields())
}

func TestNewResource(t *testing.T) {
	site, err := ParseSite([]byte(`
add_before_body: /fragments/header.html
locations:
  - pattern: /docs/
    add_after_body: s3://fragments/footer.html
`))
	require.NoError(t, err)

	res, err := newResource(context.Background(), testEnv{otelExp: "stdout"}, site)
	require.NoError(t, err)

	v, ok := res.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "test", v.AsString())

	v, ok = res.Set().Value("bsplice.site.config")
	require.True(t, ok)
	assert.Equal(t, "site.yaml", v.AsString())

	v, ok = res.Set().Value("bsplice.site.sources")
	require.True(t, ok)
	assert.Equal(t, []string{"internal", "s3"}, v.AsStringSlice())
}

func TestWithAdditionalLogGroups(t *testing.T) {
	ctx := context.Background()
	base := resource.NewSchemaless(attribute.String("service.name", "svc"))

	res, err := withAdditionalLogGroups(ctx, base, "", "")
	require.NoError(t, err)
	assert.Same(t, base, res)

	res, err = withAdditionalLogGroups(ctx, base, "/aws/apigateway/access", "")
	require.NoError(t, err)

	v, ok := res.Set().Value("aws.log.group.names")
	require.True(t, ok)
	assert.Equal(t, []string{"/aws/apigateway/access"}, v.AsStringSlice())
}

func TestWithTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mux := bsplice.NewServeMuxWith(bsplice.NewTestLogger(t), http.NewServeMux(), bsplice.NewScope("server"), bsplice.NewPipeline())
	mux.HandleFunc("GET /docs/", func(context.Context, http.ResponseWriter, *http.Request) error { return nil })

	var seen trace.SpanContext
	h := withTracing(tp, propagation.TraceContext{}, "svc", mux, "/health")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = trace.SpanContextFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.False(t, seen.IsValid())
	assert.Empty(t, rec.Ended())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/docs/page.html", nil))
	assert.True(t, seen.IsValid())
	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, "GET /docs/page.html", rec.Ended()[0].Name())
}

func TestWithTracingPageAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mux := bsplice.NewServeMuxWith(bsplice.NewTestLogger(t), http.NewServeMux(), bsplice.NewScope("server"), bsplice.NewPipeline())
	addition.SetBeforeBody(mux.Scope(), "/fragments/header.html")
	docs := mux.Scope().Child("/docs/")
	addition.SetAfterBody(docs, "secretsmanager://widget#html")

	empty := func(context.Context, http.ResponseWriter, *http.Request) error { return nil }
	mux.HandleFunc("GET /docs/", empty, docs)
	mux.HandleFunc("GET /plain", empty)

	h := withTracing(tp, propagation.TraceContext{}, "svc", mux)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/docs/page.html", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/unknown", nil))

	spans := rec.Ended()
	require.Len(t, spans, 3)

	assert.Subset(t, spans[0].Attributes(), []attribute.KeyValue{
		attribute.String("bsplice.scope", docs.Name()),
		attribute.String("bsplice.add_before_body", "/fragments/header.html"),
		attribute.String("bsplice.add_before_body.source", "internal"),
		attribute.String("bsplice.add_after_body", "secretsmanager://widget#html"),
		attribute.String("bsplice.add_after_body.source", "secretsmanager"),
	})

	assert.Contains(t, spans[1].Attributes(), attribute.String("bsplice.scope", "server"))
	assert.Contains(t, spans[1].Attributes(), attribute.String("bsplice.add_before_body.source", "internal"))
	assert.NotContains(t, attributeKeys(spans[1]), attribute.Key("bsplice.add_after_body"))

	assert.NotContains(t, attributeKeys(spans[2]), attribute.Key("bsplice.scope"))
}

func attributeKeys(s sdktrace.ReadOnlySpan) []attribute.Key {
	keys := make([]attribute.Key, 0, len(s.Attributes()))
	for _, kv := range s.Attributes() {
		keys = append(keys, kv.Key)
	}
	return keys
}
