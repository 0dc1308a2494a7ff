package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven/mocks"
)

// fakeCache is an in-memory shared embedding cache
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	failGet bool
	gets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]float32)}
}

func (c *fakeCache) GetMany(ctx context.Context, keys []string) (map[string][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, errors.New("cache unavailable")
	}
	out := make(map[string][]float32)
	for _, k := range keys {
		if v, ok := c.entries[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *fakeCache) SetMany(ctx context.Context, entries map[string][]float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.entries[k] = v
	}
	return nil
}

func (c *fakeCache) Ping(ctx context.Context) error {
	return nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("passage number %d", i)
	}
	return out
}

func TestEmbedder_Batches(t *testing.T) {
	provider := mocks.NewMockEmbeddingService()
	e := NewEmbedder(DefaultEmbedderConfig(), nil, nil)

	vectors, err := e.Embed(context.Background(), provider, texts(200))
	require.NoError(t, err)
	require.Len(t, vectors, 200)

	calls := append([]int(nil), provider.Calls...)
	sort.Ints(calls)
	assert.Equal(t, []int{8, 96, 96}, calls)
}

func TestEmbedder_PreservesOrderAndDeduplicates(t *testing.T) {
	provider := mocks.NewMockEmbeddingService()
	provider.Register("alpha", provider.Basis(10))
	provider.Register("beta", provider.Basis(20))
	e := NewEmbedder(DefaultEmbedderConfig(), nil, nil)

	vectors, err := e.Embed(context.Background(), provider, []string{"alpha", "beta", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, provider.Basis(10), vectors[0])
	assert.Equal(t, provider.Basis(20), vectors[1])
	assert.Equal(t, provider.Basis(10), vectors[2])
	assert.Equal(t, []int{2}, provider.Calls)
}

func TestEmbedder_LocalCache(t *testing.T) {
	provider := mocks.NewMockEmbeddingService()
	e := NewEmbedder(DefaultEmbedderConfig(), nil, nil)

	_, err := e.Embed(context.Background(), provider, []string{"alpha", "beta"})
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), provider, []string{"beta", "gamma"})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, provider.Calls)
}

func TestEmbedder_SharedCache(t *testing.T) {
	provider := mocks.NewMockEmbeddingService()
	cache := newFakeCache()

	first := NewEmbedder(DefaultEmbedderConfig(), cache, nil)
	_, err := first.Embed(context.Background(), provider, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Len(t, cache.entries, 2)

	// a second process shares the cache but not the local LRU
	second := NewEmbedder(DefaultEmbedderConfig(), cache, nil)
	_, err = second.Embed(context.Background(), provider, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.CallCount())
}

func TestEmbedder_SharedCacheFailureFallsBackToProvider(t *testing.T) {
	provider := mocks.NewMockEmbeddingService()
	cache := newFakeCache()
	cache.failGet = true

	e := NewEmbedder(DefaultEmbedderConfig(), cache, nil)
	vectors, err := e.Embed(context.Background(), provider, []string{"alpha"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 1, provider.CallCount())
}

func TestEmbedder_ProviderError(t *testing.T) {
	provider := mocks.NewMockEmbeddingService()
	provider.SetFailAll(errors.New("rate limited"))
	e := NewEmbedder(DefaultEmbedderConfig(), nil, nil)

	_, err := e.Embed(context.Background(), provider, []string{"alpha"})
	require.Error(t, err)
}

func TestEmbedder_NilProvider(t *testing.T) {
	e := NewEmbedder(DefaultEmbedderConfig(), nil, nil)
	_, err := e.Embed(context.Background(), nil, []string{"alpha"})
	require.Error(t, err)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("m", "text"), CacheKey("m", "text"))
	assert.NotEqual(t, CacheKey("m1", "text"), CacheKey("m2", "text"))
	assert.NotEqual(t, CacheKey("m", "text a"), CacheKey("m", "text b"))
}
