package bsplice

import (
	"bytes"
	"net/http"
)

// ResponseWriter implements http.ResponseWriter on top of the pipeline. The header stages run when the first byte
// is written (or when the handler returns without writing), every Write is forwarded as one delivery and returning
// from the handler delivers the end of the stream.
type ResponseWriter struct {
	r      *Request
	top    Stages
	status int
	sent   bool
	closed bool
	err    error
}

func newResponseWriter(r *Request) *ResponseWriter {
	return &ResponseWriter{r: r, top: r.pipe.Top()}
}

// Header returns the header that will be handed to the header stages.
func (w *ResponseWriter) Header() http.Header { return w.r.header }

// WriteHeader records the status code. Like the standard library, only the first call has an effect.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.sent || w.status != 0 {
		return
	}

	w.status = code
}

// Write forwards a copy of p as one delivery.
func (w *ResponseWriter) Write(p []byte) (int, error) {
	if err := w.sendHeader(p); err != nil {
		return 0, err
	}

	if len(p) == 0 {
		return 0, nil
	}

	if err := w.forward(NewChain(&Buffer{Data: bytes.Clone(p)})); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Flush asks the output to push everything written so far to the client.
func (w *ResponseWriter) Flush() {
	if err := w.sendHeader(nil); err != nil {
		return
	}

	_ = w.forward(NewChain(&Buffer{Flush: true}))
}

// HeaderSent reports whether the header stages already ran.
func (w *ResponseWriter) HeaderSent() bool { return w.sent }

func (w *ResponseWriter) forward(in Chain) error {
	if w.err != nil {
		return w.err
	}

	if err := w.top.Body.FilterBody(w.r, in); Failed(err) {
		w.err = err
	}

	return w.err
}

func (w *ResponseWriter) sendHeader(sniff []byte) error {
	if w.sent {
		return w.err
	}
	w.sent = true

	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.r.status = w.status

	h := w.r.header
	if h.Get("Content-Type") == "" && h.Get("Content-Encoding") == "" && len(sniff) > 0 {
		h.Set("Content-Type", http.DetectContentType(sniff))
	}

	if !bodyAllowed(w.status) {
		w.r.headerOnly = true
	}

	if err := w.top.Header.FilterHeader(w.r); Failed(err) {
		w.err = err
	}

	return w.err
}

// close delivers the end of the stream, it is called once the handler returned.
func (w *ResponseWriter) close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	if err := w.sendHeader(nil); err != nil {
		return err
	}

	return w.forward(NewChain(LastBuffer()))
}

// renderError replaces the response with a plain text error, it is only possible while nothing was sent.
func (w *ResponseWriter) renderError(err error) {
	code := statusOf(err)

	for k := range w.r.header {
		delete(w.r.header, k)
	}

	w.r.header.Set("Content-Type", "text/plain; charset=utf-8")
	w.r.header.Set("X-Content-Type-Options", "nosniff")
	w.status = 0
	w.WriteHeader(code)
	_, _ = w.Write([]byte(http.StatusText(code) + "\n"))
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}

	return true
}
