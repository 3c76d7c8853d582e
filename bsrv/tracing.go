package bsrv

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/advdv/bsplice"
	"github.com/advdv/bsplice/addition"
	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/detectors/aws/lambda"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

const tracingInitTimeout = 5 * time.Second

// Attributes describing the site on the resource and the page additions on server spans. Nested request spans carry
// bsplice.locator and bsplice.source, set by the dispatcher.
const (
	attrSiteConfig  = attribute.Key("bsplice.site.config")
	attrSiteSources = attribute.Key("bsplice.site.sources")
	attrScope       = attribute.Key("bsplice.scope")
	attrBeforeBody  = attribute.Key("bsplice.add_before_body")
	attrAfterBody   = attribute.Key("bsplice.add_after_body")
	attrBeforeSrc   = attribute.Key("bsplice.add_before_body.source")
	attrAfterSrc    = attribute.Key("bsplice.add_after_body.source")
)

// NewTracerProvider creates the TracerProvider for BS_OTEL_EXPORTER: "stdout" (default), "xrayudp" (Lambda) or
// "none". Its resource names the site configuration and the fragment sources the site adds content from, so a trace
// of a slow page can be told apart by the backends it depends on. Shutdown is handled via fx.Lifecycle.
func NewTracerProvider(lc fx.Lifecycle, env Environment, site *Site) (trace.TracerProvider, error) {
	exporterType := env.otelExporter()
	if exporterType == "none" {
		return noop.NewTracerProvider(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), tracingInitTimeout)
	defer cancel()

	exporter, err := newExporter(ctx, exporterType)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, env, site)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	}
	if exporterType == "xrayudp" {
		opts = append(opts, sdktrace.WithIDGenerator(xray.NewIDGenerator()))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	lc.Append(fx.Hook{OnStop: tp.Shutdown})

	return tp, nil
}

// NewPropagator returns the X-Ray propagator on Lambda, and W3C trace context with baggage everywhere else.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	if env.otelExporter() == "xrayudp" {
		return xray.Propagator{}
	}

	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

func newExporter(ctx context.Context, exporterType string) (sdktrace.SpanExporter, error) {
	switch exporterType {
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "xrayudp":
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, errors.Newf("unsupported BS_OTEL_EXPORTER: %q (supported: stdout, xrayudp, none)", exporterType)
	}
}

// newResource starts from the detected Lambda function (xrayudp) or the service name, and adds the site and the
// gateway access log group.
func newResource(ctx context.Context, env Environment, site *Site) (*resource.Resource, error) {
	base := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(env.serviceName()))
	if env.otelExporter() == "xrayudp" {
		detected, err := lambda.NewResourceDetector().Detect(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "detect lambda resource")
		}
		base = detected
	}

	res, err := resource.Merge(base, resource.NewSchemaless(siteAttributes(env.siteConfig(), site)...))
	if err != nil {
		return nil, errors.Wrap(err, "merge site resource")
	}

	return withAdditionalLogGroups(ctx, res, env.gatewayAccessLogGroup())
}

func siteAttributes(path string, site *Site) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attrSiteConfig.String(path)}
	if site == nil {
		return attrs
	}

	return append(attrs, attrSiteSources.StringSlice(site.Sources()))
}

// withAdditionalLogGroups adds the non-empty log groups to aws.log.group.names for X-Ray log correlation.
func withAdditionalLogGroups(ctx context.Context, base *resource.Resource, logGroups ...string) (*resource.Resource, error) {
	groups := lo.Compact(logGroups)
	if len(groups) == 0 {
		return base, nil
	}

	extra, err := resource.New(ctx, resource.WithAttributes(attribute.StringSlice("aws.log.group.names", groups)))
	if err != nil {
		return nil, err
	}

	return resource.Merge(base, extra)
}

// withTracing starts a server span for every request except those to excludePaths. The span of a page names the
// scope it is served in and, for each addition configured there, the locator and the source that serves it.
func withTracing(
	tp trace.TracerProvider, prop propagation.TextMapPropagator, serviceName string, router bsplice.Router,
	excludePaths ...string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(withPageAttributes(router, next), serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithPropagators(prop),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !slices.Contains(excludePaths, r.URL.Path)
			}),
		)
	}
}

func withPageAttributes(router bsplice.Router, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
			if _, scope, ok := router.Route(r); ok {
				span.SetAttributes(pageAttributes(scope)...)
			}
		}

		next.ServeHTTP(w, r)
	})
}

func pageAttributes(scope *bsplice.Scope) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attrScope.String(scope.Name())}

	conf := addition.Resolve(scope)
	attrs = appendAddition(attrs, attrBeforeBody, attrBeforeSrc, conf.BeforeBody)
	attrs = appendAddition(attrs, attrAfterBody, attrAfterSrc, conf.AfterBody)

	return attrs
}

func appendAddition(attrs []attribute.KeyValue, locKey, srcKey attribute.Key, locator string) []attribute.KeyValue {
	if locator == "" {
		return attrs
	}

	attrs = append(attrs, locKey.String(locator))
	if loc, err := url.Parse(locator); err == nil {
		attrs = append(attrs, srcKey.String(bsplice.SourceName(loc)))
	}

	return attrs
}
