// Package naming allocates the global variable names under which compiled
// units publish their exports once module linkage has been removed.
package naming

import (
	"strings"
	"sync"
)

// DefaultPrefix is the namespace marker prepended to every allocated name.
const DefaultPrefix = "__webextManifest__"

// Allocator maps unit identifiers to global names. A name, once handed out,
// is never reassigned or reused for another identifier. One Allocator lives
// for exactly one build.
type Allocator struct {
	prefix string

	mu     sync.Mutex
	byUnit map[string]string
	taken  map[string]string // name -> unit
}

// New returns an empty Allocator. An empty prefix selects DefaultPrefix.
func New(prefix string) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Allocator{
		prefix: prefix,
		byUnit: make(map[string]string),
		taken:  make(map[string]string),
	}
}

// Allocate returns the global name for unitID, allocating one on first use.
// It is safe for concurrent use.
func (a *Allocator) Allocate(unitID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if name, ok := a.byUnit[unitID]; ok {
		return name
	}
	name := a.prefix + sanitize(unitID) + "__"
	for {
		owner, ok := a.taken[name]
		if !ok || owner == unitID {
			break
		}
		name += "_"
	}
	a.byUnit[unitID] = name
	a.taken[name] = unitID
	return name
}

// Bindings returns a copy of every allocation made so far.
func (a *Allocator) Bindings() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]string, len(a.byUnit))
	for k, v := range a.byUnit {
		out[k] = v
	}
	return out
}

// sanitize replaces every rune outside [A-Za-z0-9_] with a single underscore.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isIdentRune(r, true) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isIdentRune(r rune, allowDigit bool) bool {
	switch {
	case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return allowDigit
	}
	return false
}

// IsIdentifier reports whether s matches ^[A-Za-z_][A-Za-z0-9_]*$, which is
// a valid JavaScript identifier that needs no escaping.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !isIdentRune(r, i > 0) {
			return false
		}
	}
	return true
}
