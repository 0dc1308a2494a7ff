package detection

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// MatcherKind is the closed set of matching layers
type MatcherKind int

const (
	KindFingerprint MatcherKind = iota
	KindNGram
	KindSemantic
)

// Layer returns the report name of the layer
func (k MatcherKind) Layer() domain.Layer {
	switch k {
	case KindFingerprint:
		return domain.LayerFingerprint
	case KindNGram:
		return domain.LayerNGram
	default:
		return domain.LayerSemantic
	}
}

// Degradable reports whether a failure of this layer downgrades the check
// to a partial result instead of failing it
func (k MatcherKind) Degradable() bool {
	return k == KindSemantic
}

func (k MatcherKind) String() string {
	return string(k.Layer())
}

// Matcher finds raw matches between a segmented document and a corpus.
// Implementations must treat both inputs as read-only.
type Matcher interface {
	Kind() MatcherKind
	Match(ctx context.Context, seg *Segments, corpus *Corpus) ([]domain.Match, error)
}

// Registry holds the matchers of the pipeline, one per kind
type Registry struct {
	mu       sync.RWMutex
	matchers map[MatcherKind]Matcher
}

// NewRegistry creates a registry holding the given matchers
func NewRegistry(matchers ...Matcher) *Registry {
	r := &Registry{matchers: make(map[MatcherKind]Matcher)}
	for _, m := range matchers {
		r.Register(m)
	}
	return r
}

// Register adds a matcher, replacing any registered for the same kind
func (r *Registry) Register(m Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers[m.Kind()] = m
}

// Get returns the matcher of the given kind, or nil
func (r *Registry) Get(kind MatcherKind) Matcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matchers[kind]
}

// All returns the registered matchers ordered by kind
func (r *Registry) All() []Matcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Matcher, 0, len(r.matchers))
	for _, m := range r.matchers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Kind() < out[j].Kind()
	})
	return out
}
