package bsplice

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultSubrequestLimit is the number of nested requests a main request may start.
const DefaultSubrequestLimit = 50

// Router finds the handler and scope for the path of an internal locator.
type Router interface {
	Route(r *http.Request) (Handler, *Scope, bool)
}

// Dispatcher serves main requests through the pipeline and runs the nested requests they start.
type Dispatcher struct {
	pipe    *Pipeline
	router  Router
	sources map[string]Source
	limit   int
	timeout time.Duration
	logs    Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithSource resolves locators with the given URL scheme through src.
func WithSource(scheme string, src Source) DispatcherOption {
	return func(d *Dispatcher) { d.sources[scheme] = src }
}

// WithSubrequestLimit changes [DefaultSubrequestLimit], n <= 0 removes the limit.
func WithSubrequestLimit(n int) DispatcherOption {
	return func(d *Dispatcher) { d.limit = n }
}

// WithRequestTimeout bounds each main request together with all of its nested requests.
func WithRequestTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithTracerProvider creates a span for every nested request.
func WithTracerProvider(tp trace.TracerProvider) DispatcherOption {
	return func(d *Dispatcher) { d.tracer = tp.Tracer("github.com/advdv/bsplice") }
}

// WithMetrics records nested request outcomes.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a dispatcher. Internal locators (plain paths) are resolved through router, which may be nil
// when only sources are used.
func NewDispatcher(pipe *Pipeline, router Router, logs Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pipe:    pipe,
		router:  router,
		sources: map[string]Source{},
		limit:   DefaultSubrequestLimit,
		logs:    logs,
		tracer:  noop.NewTracerProvider().Tracer(""),
	}

	for _, o := range opts {
		o(d)
	}

	return d
}

// Serve converts a handler into a standard library http.Handler that runs every response through the pipeline, with
// the filters configured as resolved for scope.
func (d *Dispatcher) Serve(h Handler, scope *Scope) http.Handler {
	d.pipe.Resolve(scope)

	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		if d.timeout > 0 {
			ctx, cancel := context.WithTimeout(req.Context(), d.timeout)
			defer cancel()
			req = req.WithContext(ctx)
		}

		r := newMainRequest(req, resp, scope, d.pipe, d, d.logs)

		err := runHandler(r, h)

		// nested requests may write to resp until they return, their errors are reported one by one
		_ = r.group.Wait()

		terminated, ferr := r.stream.finish()
		if !terminated && err == nil {
			d.metrics.unterminatedStream()
			d.logs.LogUnterminatedStream(req.URL.Path)
		}

		if err == nil {
			err = ferr
		}

		if err != nil {
			d.logs.LogUnhandledServeError(err)

			// the header is already out, the client must not mistake what it got for a complete response
			panic(http.ErrAbortHandler)
		}
	})
}

// Subrequest implements [Subrequester]. The nested request runs in its own goroutine; the main request does not
// finish before it has.
func (d *Dispatcher) Subrequest(parent *Request, locator string) error {
	if locator == "" {
		return errors.New("bsplice: empty locator")
	}

	loc, err := url.Parse(locator)
	if err != nil {
		return errors.Wrapf(err, "parse locator %q", locator)
	}

	source := SourceName(loc)

	h, std, scope, err := d.resolve(parent, loc)
	if err != nil {
		d.metrics.rejected(source)
		return err
	}

	if !parent.stream.reserve(d.limit) {
		d.metrics.rejected(source)
		return errors.Wrapf(ErrSubrequestLimit, "starting %q after %d", locator, d.limit)
	}

	d.pipe.Resolve(scope)
	child := parent.newChild(std, scope)
	parent.main.group.Go(func() error {
		return d.run(child, h, source, locator)
	})

	return nil
}

func (d *Dispatcher) run(r *Request, h Handler, source, locator string) error {
	ctx, span := d.tracer.Start(r.Context(), "subrequest "+source,
		trace.WithAttributes(
			attribute.String("bsplice.locator", locator),
			attribute.String("bsplice.source", source),
		))
	defer span.End()
	r.std = r.std.WithContext(ctx)

	start := time.Now()
	err := runNested(r, h)
	d.metrics.finished(source, err, time.Since(start))

	// the node is complete even when the handler failed half way
	if cerr := r.stream.complete(r.node); err == nil && cerr != nil {
		err = cerr
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logs.LogNestedError(locator, err)
	}

	return err
}

// runNested runs the handler of a nested request; there is no server goroutine above it to survive a panic.
func runNested(r *Request, h Handler) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Newf("bsplice: nested handler panicked: %v", e)
		}
	}()

	return runHandler(r, h)
}

// resolve finds the handler for a locator and builds the standard library request the nested request serves.
func (d *Dispatcher) resolve(parent *Request, loc *url.URL) (Handler, *http.Request, *Scope, error) {
	std := nestedStdRequest(parent.Std(), loc)

	if loc.Scheme == "" {
		if d.router == nil || loc.Path == "" || loc.Path[0] != '/' {
			return nil, nil, nil, errors.Newf("bsplice: cannot route locator %q", loc.String())
		}

		h, scope, ok := d.router.Route(std)
		if !ok {
			return nil, nil, nil, errors.Newf("bsplice: no route for locator %q", loc.String())
		}

		return h, std, scope, nil
	}

	src, ok := d.sources[loc.Scheme]
	if !ok {
		schemes := lo.Keys(d.sources)
		slices.Sort(schemes)

		return nil, nil, nil, errors.Newf("bsplice: no source for scheme %q, got: %v", loc.Scheme, schemes)
	}

	return sourceHandler(src, loc), std, parent.Scope(), nil
}

// nestedStdRequest derives the request a nested request serves: a GET for the locator carrying the parent's
// headers, minus those that would make the fragment partial or empty.
func nestedStdRequest(parent *http.Request, loc *url.URL) *http.Request {
	std := parent.Clone(parent.Context())
	std.Method = http.MethodGet
	std.Body = http.NoBody
	std.ContentLength = 0
	std.URL = &url.URL{Path: loc.Path, RawPath: loc.RawPath, RawQuery: loc.RawQuery}
	std.RequestURI = std.URL.RequestURI()

	for _, k := range []string{"Range", "If-Range", "If-Modified-Since", "If-None-Match", "Accept-Encoding"} {
		std.Header.Del(k)
	}

	return std
}
