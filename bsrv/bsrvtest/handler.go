package bsrvtest

import (
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bsplice"
)

// CallHandler serves req with handler behind the given filters and returns the recorded response. Nested
// requests started by the filters are routed to handler as well.
func CallHandler(handler bsplice.HandlerFunc, req *http.Request, filters ...bsplice.Filter) *httptest.ResponseRecorder {
	mux := bsplice.NewServeMuxWith(
		bsplice.NewStdLogger(nil), http.NewServeMux(), bsplice.NewScope("test"), bsplice.NewPipeline(filters...))
	mux.HandleFunc("/", handler)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	return rec
}
