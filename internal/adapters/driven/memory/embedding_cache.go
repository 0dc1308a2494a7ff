package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

// EmbeddingCache is a size and TTL bounded in-process embedding cache
type EmbeddingCache struct {
	lru *expirable.LRU[string, []float32]
}

// NewEmbeddingCache creates a cache of at most size entries living ttl each
func NewEmbeddingCache(size int, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{lru: expirable.NewLRU[string, []float32](size, nil, ttl)}
}

func (c *EmbeddingCache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	for _, k := range keys {
		if vec, ok := c.lru.Get(k); ok {
			out[k] = vec
		}
	}
	return out, nil
}

func (c *EmbeddingCache) SetMany(ctx context.Context, entries map[string][]float32) error {
	for k, vec := range entries {
		c.lru.Add(k, vec)
	}
	return nil
}

func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of live entries
func (c *EmbeddingCache) Len() int {
	return c.lru.Len()
}
