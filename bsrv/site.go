package bsrv

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"

	"github.com/advdv/bsplice"
	"github.com/advdv/bsplice/addition"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v2"
)

// Site describes the locations the server serves and what is added to their html pages. Every location is a
// configuration scope nested in the scope of the location (or site) that contains it, unset additions are
// inherited from there and an explicitly empty one turns the inherited addition off:
//
//	add_before_body: /fragments/header.html
//	add_after_body: s3://site-fragments/footer.html
//	locations:
//	  - pattern: /fragments/
//	    root: ./site/fragments
//	  - pattern: /docs/
//	    root: ./site/docs
//	    add_after_body: ""
//	  - pattern: GET /banner.html
//	    text: <p>Free shipping this week</p>
type Site struct {
	BeforeBody *string    `yaml:"add_before_body"`
	AfterBody  *string    `yaml:"add_after_body"`
	Locations  []Location `yaml:"locations"`
}

// Location is one route of the site. It serves the files below Root, or the inline Text, or nothing at all when it
// only groups nested locations.
type Location struct {
	Pattern     string     `yaml:"pattern"`
	Root        string     `yaml:"root"`
	Text        string     `yaml:"text"`
	ContentType string     `yaml:"content_type"`
	BeforeBody  *string    `yaml:"add_before_body"`
	AfterBody   *string    `yaml:"add_after_body"`
	Locations   []Location `yaml:"locations"`
}

// LoadSite reads and validates the site configuration at path.
func LoadSite(path string) (*Site, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read site config")
	}

	return ParseSite(b)
}

// ParseSite decodes and validates a site configuration. Unknown keys are an error.
func ParseSite(b []byte) (*Site, error) {
	var s Site
	if err := yaml.UnmarshalStrict(b, &s); err != nil {
		return nil, errors.Wrap(err, "decode site config")
	}

	if err := validateLocations(s.Locations, map[string]bool{}); err != nil {
		return nil, err
	}

	return &s, nil
}

func validateLocations(locs []Location, seen map[string]bool) error {
	for _, loc := range locs {
		switch {
		case loc.Pattern == "":
			return errors.New("location without pattern")
		case seen[loc.Pattern]:
			return errors.Newf("location %q: pattern defined twice", loc.Pattern)
		case loc.Root != "" && loc.Text != "":
			return errors.Newf("location %q: root and text are exclusive", loc.Pattern)
		case loc.ContentType != "" && loc.Text == "":
			return errors.Newf("location %q: content_type requires text", loc.Pattern)
		}
		seen[loc.Pattern] = true

		if err := validateLocations(loc.Locations, seen); err != nil {
			return err
		}
	}

	return nil
}

// Apply sets the site wide additions on the root scope of the mux and registers every location.
func (s *Site) Apply(m *Mux) {
	if s.BeforeBody != nil {
		addition.SetBeforeBody(m.Scope(), *s.BeforeBody)
	}
	if s.AfterBody != nil {
		addition.SetAfterBody(m.Scope(), *s.AfterBody)
	}

	for _, loc := range s.Locations {
		loc.apply(m, m.Scope())
	}
}

// Sources returns the sorted names of the fragment sources the site adds content from, e.g. "internal" or "s3".
// Locators that do not parse are left out; they fail when a page is served.
func (s *Site) Sources() []string {
	var names []string
	var walk func(before, after *string, locs []Location)
	walk = func(before, after *string, locs []Location) {
		for _, locator := range []*string{before, after} {
			if locator == nil || *locator == "" {
				continue
			}
			if loc, err := url.Parse(*locator); err == nil {
				names = append(names, bsplice.SourceName(loc))
			}
		}
		for _, loc := range locs {
			walk(loc.BeforeBody, loc.AfterBody, loc.Locations)
		}
	}
	walk(s.BeforeBody, s.AfterBody, s.Locations)

	names = lo.Uniq(names)
	slices.Sort(names)

	return names
}

func (loc Location) apply(m *Mux, parent *bsplice.Scope) {
	scope := parent.Child(loc.Pattern)
	addition.Set(scope, addition.Settings{BeforeBody: loc.BeforeBody, AfterBody: loc.AfterBody})

	switch {
	case loc.Root != "":
		m.MountStd(loc.Pattern, http.FileServer(http.Dir(loc.Root)), scope)
	case loc.Text != "":
		m.Handle(loc.Pattern, textHandler(loc.Text, loc.ContentType), scope)
	}

	for _, child := range loc.Locations {
		child.apply(m, scope)
	}
}

func textHandler(text, contentType string) bsplice.Handler {
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}

	return bsplice.HandlerFunc(func(_ context.Context, w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", contentType)
		if _, err := io.WriteString(w, text); err != nil {
			return errors.Wrap(err, "write text")
		}

		return nil
	})
}
