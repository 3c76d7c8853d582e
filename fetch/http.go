package fetch

import (
	"context"
	"net/http"
	"net/url"

	"github.com/advdv/bsplice"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
)

// HTTP fetches fragments from http and https origins.
type HTTP struct {
	transport http.RoundTripper
}

// NewHTTP creates the source. The transport is usually instrumented for tracing, nil uses http.DefaultTransport.
func NewHTTP(t http.RoundTripper) *HTTP {
	if t == nil {
		t = http.DefaultTransport
	}

	return &HTTP{transport: t}
}

// Fetch implements [bsplice.Source]. Only a 200 response is a fragment.
func (h *HTTP) Fetch(ctx context.Context, loc *url.URL) (*bsplice.Fragment, error) {
	var (
		body   []byte
		header = http.Header{}
	)

	err := requests.URL(loc.String()).
		Transport(h.transport).
		Accept("text/html,*/*;q=0.8").
		CheckStatus(http.StatusOK).
		CopyHeaders(header).
		Handle(func(res *http.Response) (err error) {
			body, err = readBody(res.Body)
			return err
		}).
		Fetch(ctx)

	switch {
	case requests.HasStatusErr(err, http.StatusNotFound):
		return nil, bsplice.NewError(bsplice.CodeNotFound, errors.Wrap(err, "fragment not found"))
	case err != nil:
		return nil, errors.Wrap(err, "get fragment")
	}

	return &bsplice.Fragment{Body: body, ContentType: header.Get("Content-Type")}, nil
}
