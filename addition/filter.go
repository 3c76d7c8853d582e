package addition

import (
	"net/http"
	"strings"

	"github.com/advdv/bsplice"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const htmlType = "text/html"

// Filter adds the output of nested requests before and after the body of html responses.
type Filter struct {
	logs *zap.Logger
}

// New creates the filter. A nil logger disables logging.
func New(logs *zap.Logger) *Filter {
	if logs == nil {
		logs = zap.NewNop()
	}

	return &Filter{logs: logs.Named("addition")}
}

// Name implements [bsplice.Filter].
func (f *Filter) Name() string { return "addition" }

// ConfigKey implements [bsplice.ConfigResolver].
func (f *Filter) ConfigKey() *bsplice.Key { return key }

// ResolveConfig implements [bsplice.ConfigResolver].
func (f *Filter) ResolveConfig(s *bsplice.Scope) any { return Resolve(s) }

// Wrap implements [bsplice.Filter].
func (f *Filter) Wrap(next bsplice.Stages) bsplice.Stages {
	return bsplice.Stages{
		Header: bsplice.HeaderFilterFunc(func(r *bsplice.Request) error {
			return f.filterHeader(r, next.Header)
		}),
		Body: bsplice.BodyFilterFunc(func(r *bsplice.Request, in bsplice.Chain) error {
			return f.filterBody(r, in, next.Body)
		}),
	}
}

func (f *Filter) filterHeader(r *bsplice.Request, next bsplice.HeaderFilter) error {
	if r.Status() != http.StatusOK || !r.IsMain() {
		return next.FilterHeader(r)
	}

	if !isHTML(r.ContentType()) {
		return next.FilterHeader(r)
	}

	conf := bsplice.Config[Config](r, key)
	if !conf.Enabled() {
		return next.FilterHeader(r)
	}

	bsplice.SetExt(r, key, &State{})

	// the length changes and byte offsets no longer match the resource
	r.ClearContentLength()
	r.ClearAcceptRanges()

	return next.FilterHeader(r)
}

func (f *Filter) filterBody(r *bsplice.Request, in bsplice.Chain, next bsplice.BodyFilter) error {
	if in.Empty() || r.HeaderOnly() {
		return next.FilterBody(r, in)
	}

	st, ok := StateOf(r)
	if !ok {
		return next.FilterBody(r, in)
	}

	conf := bsplice.Config[Config](r, key)

	if !st.BeforeBodySent {
		st.BeforeBodySent = true

		if conf.BeforeBody != "" {
			if err := r.Subrequest(conf.BeforeBody); err != nil {
				return errors.Wrapf(err, "add before body %q", conf.BeforeBody)
			}

			f.logs.Debug("before body started",
				zap.String("locator", conf.BeforeBody), zap.String("path", r.Std().URL.Path))
		}
	}

	// hold back the end of the stream, the after body still has to follow
	last := false
	for _, b := range in {
		if b.Last {
			b.Last = false
			last = true
		}
	}

	err := next.FilterBody(r, in)
	if bsplice.Failed(err) || !last || st.AfterBodySent || conf.AfterBody == "" {
		return err
	}

	if err := r.Subrequest(conf.AfterBody); err != nil {
		return errors.Wrapf(err, "add after body %q", conf.AfterBody)
	}

	st.AfterBodySent = true
	f.logs.Debug("after body started",
		zap.String("locator", conf.AfterBody), zap.String("path", r.Std().URL.Path))

	return bsplice.SendLast(r, next)
}

// isHTML compares the prefix only, parameters such as the charset may follow.
func isHTML(contentType string) bool {
	return len(contentType) >= len(htmlType) && strings.EqualFold(contentType[:len(htmlType)], htmlType)
}

var (
	_ bsplice.Filter         = (*Filter)(nil)
	_ bsplice.ConfigResolver = (*Filter)(nil)
)
