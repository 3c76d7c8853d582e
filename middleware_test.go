package bsplice_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advdv/bsplice"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapWithoutMiddleware(t *testing.T) {
	hdlr1 := bsplice.HandlerFunc(func(context.Context, http.ResponseWriter, *http.Request) error { return nil })

	hdlr2 := bsplice.Wrap(hdlr1)
	assert.Equal(t, fmt.Sprint(hdlr1), fmt.Sprint(hdlr2)) // compare addrs
}

func TestWrapOrder(t *testing.T) {
	var res string
	hdlr1 := bsplice.HandlerFunc(func(ctx context.Context, _ http.ResponseWriter, r *http.Request) error {
		res += fmt.Sprintf("inner %v", ctx.Value("foo"))

		assert.Equal(t, ctx.Value("foo"), r.Context().Value("foo"))

		dl1, ok1 := ctx.Deadline()
		dl2, ok2 := r.Context().Deadline()
		assert.Equal(t, dl1, dl2)
		assert.Equal(t, ok1, ok2)

		return errors.New("inner error")
	})

	named := func(name string) bsplice.Middleware {
		return func(n bsplice.Handler) bsplice.Handler {
			return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				res += name + "("
				err := n.ServeContent(ctx, w, r)
				res += ")" + name

				return fmt.Errorf("%s(%w)", name, err)
			})
		}
	}

	withFoo := func(n bsplice.Handler) bsplice.Handler {
		return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ctx = context.WithValue(ctx, "foo", "bar") //nolint:staticcheck

			return n.ServeContent(ctx, w, r.WithContext(ctx))
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ctx)

	err := bsplice.Wrap(hdlr1, named("3"), named("2"), named("1"), withFoo).ServeContent(ctx, rec, req)
	assert.Equal(t, "3(2(1(inner bar)1)2)3", res)
	require.EqualError(t, err, `3(2(1(inner error)))`)
}

// recoverer turns a panic into an error.
func recoverer(next bsplice.Handler) bsplice.Handler {
	return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
		defer func() {
			if e := recover(); e != nil {
				err = errors.Newf("recovered: %v", e)
			}
		}()

		return next.ServeContent(ctx, w, r)
	})
}

func TestMiddlewareRecoveredPanicRendered(t *testing.T) {
	mux, logs := newTestMux(t)
	mux.Use(recoverer)
	mux.HandleFunc("GET /", func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("X-Foo", "bar")
		panic("some panic")
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.Header{
		"Content-Type":           {"text/plain; charset=utf-8"},
		"X-Content-Type-Options": {"nosniff"},
	}, rec.Header())
	assert.Equal(t, "Internal Server Error\n", rec.Body.String())
	assert.Equal(t, int64(1), logs.NumLogUnhandledServeError)
}

func TestMiddlewareOutputIsFiltered(t *testing.T) {
	mux, _ := newTestMux(t, upperFilter{})
	mux.Use(func(next bsplice.Handler) bsplice.Handler {
		return bsplice.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			fmt.Fprint(w, "mw ")
			return next.ServeContent(ctx, w, r)
		})
	})
	mux.HandleFunc("GET /", pathHandler("handler"))

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "MW HANDLER:/", rec.Body.String())
}
