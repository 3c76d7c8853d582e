package bsplice

import (
	"strings"
	"sync"
)

// Key identifies the owner of a per-request extension slot or of a per-scope configuration value. Keys are compared
// by identity, create one per component with [NewKey].
type Key struct{ name string }

// NewKey creates a new key, name is only used for debugging.
func NewKey(name string) *Key { return &Key{name: name} }

func (k *Key) String() string { return k.name }

// Scope is one level of the configuration hierarchy, e.g. the server or a location within it. Settings are set on a
// scope while the configuration is being built; filters resolve them into their final configuration, taking the
// ancestors into account, when a route is registered in the scope.
type Scope struct {
	name   string
	parent *Scope

	mu       sync.Mutex
	own      map[*Key]any
	resolved map[*Key]any
}

// NewScope creates a root scope.
func NewScope(name string) *Scope {
	return &Scope{name: name, own: map[*Key]any{}, resolved: map[*Key]any{}}
}

// Child creates a scope that inherits from s.
func (s *Scope) Child(name string) *Scope {
	c := NewScope(name)
	c.parent = s

	return c
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Name returns the slash separated names of the scope and its ancestors.
func (s *Scope) Name() string {
	var parts []string
	for c := s; c != nil; c = c.parent {
		parts = append([]string{c.name}, parts...)
	}

	return strings.Join(parts, "/")
}

// Set stores the explicit setting for the key in this scope.
func (s *Scope) Set(k *Key, v any) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.own[k] = v

	return s
}

// Own returns the setting explicitly stored in this scope, ancestors are not consulted.
func (s *Scope) Own(k *Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.own[k]

	return v, ok
}

// Setting is the typed variant of [Scope.Own].
func Setting[T any](s *Scope, k *Key) (v T, ok bool) {
	raw, ok := s.Own(k)
	if !ok {
		return v, false
	}

	v, ok = raw.(T)

	return v, ok
}

func (s *Scope) resolve(k *Key, fn func(*Scope) any) any {
	if v, ok := s.config(k); ok {
		return v
	}

	v := fn(s) // may read s.own, so not under the lock

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.resolved[k]; ok {
		return prev
	}
	s.resolved[k] = v

	return v
}

func (s *Scope) config(k *Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.resolved[k]

	return v, ok
}
