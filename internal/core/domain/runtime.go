package domain

import (
	"sync"
	"time"
)

// RuntimeConfig tracks which backends and capabilities are available.
// Backends are fixed at startup; embedding availability can change when
// the provider is reconfigured. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	StoreBackend string // "postgres", "sqlite" or "memory"
	CacheBackend string // "redis" or "memory"

	embeddingAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(storeBackend, cacheBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		StoreBackend: storeBackend,
		CacheBackend: cacheBackend,
	}
}

// EmbeddingAvailable returns whether an embedding provider is configured
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// CanRunSemantic returns true if the semantic layer can run
func (c *RuntimeConfig) CanRunSemantic() bool {
	return c.EmbeddingAvailable()
}

// EnabledLayers returns the layers a check will attempt
func (c *RuntimeConfig) EnabledLayers() []Layer {
	layers := []Layer{LayerFingerprint, LayerNGram}
	if c.CanRunSemantic() {
		layers = append(layers, LayerSemantic)
	}
	return layers
}

// SemanticStatus describes the embedding provider as recent checks saw it
type SemanticStatus struct {
	Available           bool       `json:"available"`
	Model               string     `json:"model,omitempty"`
	Dimensions          int        `json:"dimensions,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}
