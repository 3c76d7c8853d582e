package bsplice

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Mount mounts a Handler on a sub-path pattern. The mounted handler receives
// requests with the mount prefix stripped from the path.
func (m *ServeMux) Mount(pattern string, handler Handler, scope ...*Scope) {
	method, path := splitMethodPattern(pattern)

	stripped := stripPrefix(strings.TrimSuffix(path, "/"), handler)
	wrapped := Wrap(stripped, m.middlewares.buffered...)
	sc := m.scopeOf(scope)

	exact := method + strings.TrimSuffix(path, "/")
	subtree := exact + "/"

	if exact != method {
		m.handle(exact, wrapped, sc)
	}
	m.handle(subtree, wrapped, sc)
}

// MountStd mounts a standard library [http.Handler] on a sub-path pattern, e.g. an http.FileServer. Middleware
// registered via [ServeMux.Use] is applied and sees the original path.
func (m *ServeMux) MountStd(pattern string, handler http.Handler, scope ...*Scope) {
	m.Mount(pattern, FromStd(handler), scope...)
}

func splitMethodPattern(pattern string) (method, path string) {
	if idx := strings.LastIndex(pattern, "/"); idx > 0 {
		prefix := pattern[:idx]
		if spaceIdx := strings.Index(prefix, " "); spaceIdx >= 0 {
			return pattern[:spaceIdx+1], pattern[spaceIdx+1:]
		}
	}

	return "", pattern
}

func stripPrefix(prefix string, handler Handler) Handler {
	return HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p := strings.TrimPrefix(r.URL.Path, prefix)
		if p == "" {
			p = "/"
		}

		rp := ""
		if r.URL.RawPath != "" {
			rp = strings.TrimPrefix(r.URL.RawPath, prefix)
			if rp == "" {
				rp = "/"
			}
		}

		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = p
		r2.URL.RawPath = rp

		return handler.ServeContent(ctx, w, r2)
	})
}
