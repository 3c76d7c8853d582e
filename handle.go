package bsplice

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Handler produces the content of a request. It mirrors http.Handler but returns an error: when nothing was written
// yet the error is turned into an error response, afterwards it is logged.
type Handler interface {
	ServeContent(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// HandlerFunc allow casting a function to implement [Handler].
type HandlerFunc func(context.Context, http.ResponseWriter, *http.Request) error

// ServeContent implements the [Handler] interface.
func (f HandlerFunc) ServeContent(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return f(ctx, w, r)
}

// FromStd converts a standard library handler, it never returns an error.
func FromStd(h http.Handler) Handler {
	return HandlerFunc(func(_ context.Context, w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	})
}

// runHandler feeds the output of h through the pipeline of r, including the final end-of-stream delivery.
func runHandler(r *Request, h Handler) error {
	w := newResponseWriter(r)

	if err := h.ServeContent(r.Context(), w, r.Std()); err != nil {
		if !r.IsMain() {
			return errors.Wrap(err, "serve nested content")
		}

		r.logs.LogUnhandledServeError(err)
		if !w.HeaderSent() {
			w.renderError(err)
		}
	}

	if err := w.close(); err != nil {
		return errors.Wrap(err, "close response")
	}

	return nil
}
