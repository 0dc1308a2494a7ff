// Package normalisers converts markup submissions into the plain prose the
// detection layers operate on.
package normalisers

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry implements NormaliserRegistry with priority-based selection.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry creates a registry with the built-in formats registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextNormaliser{})
	r.Register(&MarkdownNormaliser{})
	r.Register(&HTMLNormaliser{})
	return r
}

// Register adds a normaliser.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, normaliser)
}

// Get returns the highest priority normaliser for mimeType, or nil.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	matches := r.GetAll(mimeType)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// GetAll returns every normaliser matching mimeType, highest priority first.
func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Normaliser
	for _, n := range r.normalisers {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			matches = append(matches, n)
		}
	}

	// stable so equal priorities keep registration order
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})
	return matches
}

// List returns all registered MIME types, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, t := range n.SupportedTypes() {
			seen[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Normalise runs content through the best normaliser for mimeType. Content
// without a type, or with a type nothing handles, is returned unchanged.
func Normalise(reg driven.NormaliserRegistry, content, mimeType string) string {
	if reg == nil || strings.TrimSpace(mimeType) == "" {
		return content
	}
	n := reg.Get(mimeType)
	if n == nil {
		return content
	}
	return n.Normalise(content, mimeType)
}

// matchesMIMEType reports whether mimeType is covered by supported.
// Parameters such as charset are ignored; "text/*" and "*/*" are wildcards.
func matchesMIMEType(supported []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	for _, s := range supported {
		s = strings.ToLower(strings.TrimSpace(s))
		switch {
		case s == mimeType, s == "*/*":
			return true
		case strings.HasSuffix(s, "/*") && strings.HasPrefix(mimeType, s[:len(s)-1]):
			return true
		}
	}
	return false
}
