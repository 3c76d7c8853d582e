package bsplice

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
)

// Fragment is content fetched from outside the server.
type Fragment struct {
	Body        []byte
	ContentType string
}

// Source fetches the content for locators of one URL scheme, e.g. "https" or "s3".
type Source interface {
	Fetch(ctx context.Context, loc *url.URL) (*Fragment, error)
}

// SourceFunc allow casting a function to implement [Source].
type SourceFunc func(ctx context.Context, loc *url.URL) (*Fragment, error)

// Fetch implements the [Source] interface.
func (f SourceFunc) Fetch(ctx context.Context, loc *url.URL) (*Fragment, error) { return f(ctx, loc) }

// SourceName names the source that serves a locator: its URL scheme, or "internal" for a path of this server.
func SourceName(loc *url.URL) string {
	if loc.Scheme == "" {
		return "internal"
	}
	return loc.Scheme
}

// sourceHandler serves a fragment as the body of a nested request.
func sourceHandler(src Source, loc *url.URL) Handler {
	return HandlerFunc(func(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
		frag, err := src.Fetch(ctx, loc)
		if err != nil {
			return errors.Wrapf(err, "fetch %s", loc.Redacted())
		}

		if frag.ContentType != "" {
			w.Header().Set("Content-Type", frag.ContentType)
		}

		if _, err := w.Write(frag.Body); err != nil {
			return errors.Wrap(err, "write fragment")
		}

		return nil
	})
}
