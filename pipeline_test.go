package bsplice_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advdv/bsplice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upperFilter only has a body stage.
type upperFilter struct{}

func (upperFilter) Name() string { return "upper" }

func (upperFilter) Wrap(next bsplice.Stages) bsplice.Stages {
	return bsplice.Stages{Body: bsplice.BodyFilterFunc(func(r *bsplice.Request, in bsplice.Chain) error {
		for _, b := range in {
			b.Data = bytes.ToUpper(b.Data)
		}

		return next.Body.FilterBody(r, in)
	})}
}

// tagFilter marks the header and every data buffer with its name.
type tagFilter string

func (f tagFilter) Name() string { return string(f) }

func (f tagFilter) Wrap(next bsplice.Stages) bsplice.Stages {
	return bsplice.Stages{
		Header: bsplice.HeaderFilterFunc(func(r *bsplice.Request) error {
			r.Header().Add("X-Order", string(f))
			return next.Header.FilterHeader(r)
		}),
		Body: bsplice.BodyFilterFunc(func(r *bsplice.Request, in bsplice.Chain) error {
			for _, b := range in {
				if len(b.Data) > 0 {
					b.Data = append(b.Data, "|"+string(f)...)
				}
			}

			return next.Body.FilterBody(r, in)
		}),
	}
}

// trailerFilter holds back the end of the stream and sends its own content in front of it.
type trailerFilter string

func (f trailerFilter) Name() string { return "trailer" }

func (f trailerFilter) Wrap(next bsplice.Stages) bsplice.Stages {
	return bsplice.Stages{Body: bsplice.BodyFilterFunc(func(r *bsplice.Request, in bsplice.Chain) error {
		if !in.HasLast() {
			return next.Body.FilterBody(r, in)
		}

		for _, b := range in {
			b.Last = false
		}
		if err := next.Body.FilterBody(r, append(in, bsplice.Text(string(f)))); err != nil {
			return err
		}

		return bsplice.SendLast(r, next.Body)
	})}
}

func TestPipelineOrder(t *testing.T) {
	mux, _ := newTestMux(t, tagFilter("a"), tagFilter("b"), upperFilter{})
	mux.HandleFunc("GET /", func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		fmt.Fprint(w, "x")
		fmt.Fprint(w, "y")
		return nil
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, []string{"a", "b"}, rec.Header().Values("X-Order"))
	assert.Equal(t, "X|A|BY|A|B", rec.Body.String())
	assert.Equal(t, []string{"a", "b", "upper"}, mux.Pipeline().Names())
}

func TestPipelineMissingStageFallsThrough(t *testing.T) {
	mux, _ := newTestMux(t, upperFilter{})
	mux.HandleFunc("GET /", func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, "quiet")
		return nil
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "QUIET", rec.Body.String())
}

func TestSendLast(t *testing.T) {
	mux, logs := newTestMux(t, trailerFilter("</html>"))
	mux.HandleFunc("GET /", func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		fmt.Fprint(w, "<html>")
		return nil
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "<html></html>", rec.Body.String())
	assert.Equal(t, int64(0), logs.NumLogUnterminatedStream)
}

func TestNamesIsACopy(t *testing.T) {
	p := bsplice.NewPipeline(tagFilter("a"))
	names := p.Names()
	names[0] = "changed"

	require.Equal(t, []string{"a"}, p.Names())
}

func TestEmptyPipelineWritesThrough(t *testing.T) {
	mux, _ := newTestMux(t)
	mux.HandleFunc("GET /", func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		fmt.Fprint(w, strings.Repeat("a", 3))
		return nil
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "aaa", rec.Body.String())
	assert.Empty(t, mux.Pipeline().Names())
}
