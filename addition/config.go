package addition

import "github.com/advdv/bsplice"

var key = bsplice.NewKey("addition")

// Settings are the explicit addition settings of one scope. A nil field is not set and inherits the value of the
// enclosing scope; a set empty string turns the inherited injection off.
type Settings struct {
	BeforeBody *string
	AfterBody  *string
}

// Config is the resolved addition configuration of a scope. Empty locators are absent.
type Config struct {
	BeforeBody string
	AfterBody  string
}

// Enabled reports whether anything is added at all.
func (c Config) Enabled() bool {
	return c.BeforeBody != "" || c.AfterBody != ""
}

// Merge applies the explicit settings of a child scope over the resolved configuration of its parent.
func Merge(parent Config, child Settings) Config {
	conf := parent
	if child.BeforeBody != nil {
		conf.BeforeBody = *child.BeforeBody
	}
	if child.AfterBody != nil {
		conf.AfterBody = *child.AfterBody
	}

	return conf
}

// Resolve merges the settings of s over those of all its ancestors.
func Resolve(s *bsplice.Scope) Config {
	if s == nil {
		return Config{}
	}

	own, _ := bsplice.Setting[Settings](s, key)

	return Merge(Resolve(s.Parent()), own)
}

// SetBeforeBody sets the locator of the content added before the body in scope s.
func SetBeforeBody(s *bsplice.Scope, locator string) {
	own, _ := bsplice.Setting[Settings](s, key)
	own.BeforeBody = &locator
	s.Set(key, own)
}

// SetAfterBody sets the locator of the content added after the body in scope s.
func SetAfterBody(s *bsplice.Scope, locator string) {
	own, _ := bsplice.Setting[Settings](s, key)
	own.AfterBody = &locator
	s.Set(key, own)
}

// Set replaces the addition settings of scope s.
func Set(s *bsplice.Scope, settings Settings) {
	s.Set(key, settings)
}
