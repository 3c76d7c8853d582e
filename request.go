package bsplice

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Subrequester starts nested requests whose output is spliced into the output of their parent, at the position the
// parent's stream had reached when the nested request was started. It must not block on the nested request.
type Subrequester interface {
	Subrequest(parent *Request, locator string) error
}

// Request is the pipeline's view of one logical request: the main request a client sent, or a nested request
// started on behalf of it.
type Request struct {
	std    *http.Request
	main   *Request
	parent *Request
	scope  *Scope
	pipe   *Pipeline
	subs   Subrequester
	logs   Logger

	status     int
	header     http.Header
	headerOnly bool
	ext        map[*Key]any

	node   *node
	stream *stream        // shared with all nested requests of the same main request
	group  *errgroup.Group // nested requests of a main request, nil on nested requests
}

// NewRequest creates a main request that is not connected to a client; its output is discarded. It is meant for
// driving filters directly, e.g. from tests. Use [ServeMux] to serve real clients.
func NewRequest(std *http.Request, scope *Scope, subs Subrequester) *Request {
	return newMainRequest(std, nil, scope, NewPipeline(), subs, nopLogger{})
}

func newMainRequest(std *http.Request, w http.ResponseWriter, scope *Scope, pipe *Pipeline, subs Subrequester, logs Logger) *Request {
	if scope == nil {
		scope = NewScope("")
	}

	r := &Request{
		std:        std,
		scope:      scope,
		pipe:       pipe,
		subs:       subs,
		logs:       logs,
		header:     http.Header{},
		headerOnly: std.Method == http.MethodHead,
		node:       &node{},
		group:      &errgroup.Group{},
	}
	r.main = r
	r.stream = newStream(w, r.node)

	return r
}

// newChild creates a nested request and reserves its place in the parent's output at the current position.
func (r *Request) newChild(std *http.Request, scope *Scope) *Request {
	c := &Request{
		std:    std,
		main:   r.main,
		parent: r,
		scope:  scope,
		pipe:   r.pipe,
		subs:   r.subs,
		logs:   r.logs,
		header: http.Header{},
		stream: r.stream,
	}
	c.node = r.stream.insert(r.node)

	return c
}

// Std returns the underlying standard library request.
func (r *Request) Std() *http.Request { return r.std }

// Context returns the request's context.
func (r *Request) Context() context.Context { return r.std.Context() }

// IsMain reports whether this is the request the client sent, as opposed to a nested one.
func (r *Request) IsMain() bool { return r.main == r }

// Main returns the main request, which is r itself for a main request.
func (r *Request) Main() *Request { return r.main }

// Parent returns the request that started this nested request, nil for a main request.
func (r *Request) Parent() *Request { return r.parent }

// Scope returns the configuration scope the request is served in.
func (r *Request) Scope() *Scope { return r.scope }

// Status returns the response status code. It is valid once the header stages run.
func (r *Request) Status() int { return r.status }

// SetStatus sets the response status code.
func (r *Request) SetStatus(code int) { r.status = code }

// Header returns the outgoing response header. Header stages may modify it before it reaches the output.
func (r *Request) Header() http.Header { return r.header }

// ContentType returns the outgoing Content-Type header.
func (r *Request) ContentType() string { return r.header.Get("Content-Type") }

// HeaderOnly reports whether the response carries no body, e.g. for HEAD requests.
func (r *Request) HeaderOnly() bool { return r.headerOnly }

// ClearContentLength removes the outgoing Content-Length, the response will be framed by the server.
func (r *Request) ClearContentLength() { r.header.Del("Content-Length") }

// ClearAcceptRanges removes the outgoing Accept-Ranges, the response can no longer be served in byte ranges.
func (r *Request) ClearAcceptRanges() { r.header.Del("Accept-Ranges") }

// Subrequest starts a nested request for the locator. It returns as soon as the nested request is accepted.
func (r *Request) Subrequest(locator string) error {
	if r.subs == nil {
		return ErrNoSubrequester
	}

	return r.subs.Subrequest(r, locator)
}

// SetExt attaches v to the request under key k. Slots are private to the component owning the key.
func SetExt[T any](r *Request, k *Key, v T) {
	if r.ext == nil {
		r.ext = map[*Key]any{}
	}
	r.ext[k] = v
}

// Ext returns the value attached under k, if any.
func Ext[T any](r *Request, k *Key) (v T, ok bool) {
	raw, ok := r.ext[k]
	if !ok {
		return v, false
	}

	v, ok = raw.(T)

	return v, ok
}

// Config returns the configuration resolved for the request's scope under k, or the zero value when nothing was
// resolved.
func Config[T any](r *Request, k *Key) (v T) {
	raw, ok := r.scope.config(k)
	if !ok {
		return v
	}

	v, _ = raw.(T)

	return v
}
