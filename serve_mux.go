package bsplice

import (
	"log"
	"net/http"
	"reflect"
)

var redirectType = reflect.TypeOf(http.RedirectHandler("/", http.StatusMovedPermanently))

// ServeMux is an HTTP multiplexer that serves every route through the filter pipeline, in the configuration scope the
// route was registered in. Paths registered on the mux double as internal locators for nested requests.
type ServeMux struct {
	logs        Logger
	root        *Scope
	pipe        *Pipeline
	dispatcher  *Dispatcher
	mux         *http.ServeMux
	routes      map[string]route
	middlewares struct {
		captured bool
		buffered []Middleware
	}
}

type route struct {
	handler Handler
	scope   *Scope
}

// NewServeMux creates a new ServeMux with default settings and the given filters.
func NewServeMux(filters ...Filter) *ServeMux {
	return NewServeMuxWith(NewStdLogger(log.Default()), http.NewServeMux(), NewScope("server"), NewPipeline(filters...))
}

// NewServeMuxWith creates a ServeMux with custom settings.
func NewServeMuxWith(logger Logger, baseMux *http.ServeMux, root *Scope, pipe *Pipeline, opts ...DispatcherOption) *ServeMux {
	m := &ServeMux{
		logs:   logger,
		root:   root,
		pipe:   pipe,
		mux:    baseMux,
		routes: map[string]route{},
	}
	m.dispatcher = NewDispatcher(pipe, m, logger, opts...)

	return m
}

// Scope returns the root configuration scope, routes registered without a scope use it.
func (m *ServeMux) Scope() *Scope { return m.root }

// Pipeline returns the filter pipeline of the mux.
func (m *ServeMux) Pipeline() *Pipeline { return m.pipe }

// Use allows providing of middleware.
func (m *ServeMux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.buffered = append(m.middlewares.buffered, mw...)
}

// HandleFunc handles the request given the pattern using a function.
func (m *ServeMux) HandleFunc(pattern string, handler HandlerFunc, scope ...*Scope) {
	m.Handle(pattern, handler, scope...)
}

// HandleStd registers a standard library [http.Handler] for the given pattern. Middleware
// registered via [ServeMux.Use] is applied.
func (m *ServeMux) HandleStd(pattern string, handler http.Handler, scope ...*Scope) {
	m.Handle(pattern, FromStd(handler), scope...)
}

// Handle handles the request given a handler. The optional scope selects the configuration of the route, the root
// scope is used when it is omitted.
func (m *ServeMux) Handle(pattern string, handler Handler, scope ...*Scope) {
	m.handle(pattern, Wrap(handler, m.middlewares.buffered...), m.scopeOf(scope))
}

// ServeHTTP makes the server mux implement the http.Handler interface.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// Route implements [Router]: it finds the route for the request as if a client had sent it. A path the standard
// library mux would redirect (a missing trailing slash, an unclean path) has no route.
func (m *ServeMux) Route(r *http.Request) (Handler, *Scope, bool) {
	h, pattern := m.mux.Handler(r)
	if reflect.TypeOf(h) == redirectType {
		return nil, nil, false
	}

	rt, ok := m.routes[pattern]
	if !ok {
		return nil, nil, false
	}

	return rt.handler, rt.scope, true
}

func (m *ServeMux) handle(pattern string, handler Handler, scope *Scope) {
	m.middlewares.captured = true
	m.routes[pattern] = route{handler: handler, scope: scope}
	m.mux.Handle(pattern, m.dispatcher.Serve(handler, scope))
}

func (m *ServeMux) scopeOf(scope []*Scope) *Scope {
	if len(scope) > 0 && scope[0] != nil {
		return scope[0]
	}

	return m.root
}

func (m *ServeMux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("bsplice: cannot call Use() after calling Handle")
	}
}
