package detection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// EmbedderConfig bounds provider batching and the in-process cache
type EmbedderConfig struct {
	// BatchSize is the maximum number of texts per provider call
	BatchSize int
	// Concurrency is the number of provider calls in flight per request
	Concurrency int
	CacheSize   int
	CacheTTL    time.Duration
}

// DefaultEmbedderConfig returns the default batching and cache bounds
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		BatchSize:   96,
		Concurrency: 2,
		CacheSize:   10000,
		CacheTTL:    24 * time.Hour,
	}
}

// Embedder turns texts into vectors through the embedding provider.
// Vectors are cached by content hash in process and, when configured, in a
// shared cache, so identical text is embedded once across checks.
// Cache misses are sent in bounded batches on a bounded pool.
type Embedder struct {
	cfg    EmbedderConfig
	local  *expirable.LRU[string, []float32]
	shared driven.EmbeddingCache
	logger *slog.Logger
}

// NewEmbedder creates an embedder. shared may be nil.
func NewEmbedder(cfg EmbedderConfig, shared driven.EmbeddingCache, logger *slog.Logger) *Embedder {
	def := DefaultEmbedderConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		cfg:    cfg,
		local:  expirable.NewLRU[string, []float32](cfg.CacheSize, nil, cfg.CacheTTL),
		shared: shared,
		logger: logger,
	}
}

// CacheKey identifies the embedding of text under a model
func CacheKey(model, text string) string {
	return domain.ContentHash(model + "\x00" + text)
}

// Embed returns one vector per text, in order
func (e *Embedder) Embed(ctx context.Context, provider driven.EmbeddingService, texts []string) ([][]float32, error) {
	if provider == nil {
		return nil, domain.ErrServiceUnavailable
	}

	model := provider.Model()
	keys := make([]string, len(texts))
	found := make(map[string][]float32, len(texts))
	var pending []string
	for i, text := range texts {
		keys[i] = CacheKey(model, text)
		if _, seen := found[keys[i]]; seen {
			continue
		}
		if vec, ok := e.local.Get(keys[i]); ok {
			found[keys[i]] = vec
			continue
		}
		found[keys[i]] = nil
		pending = append(pending, keys[i])
	}

	if len(pending) > 0 && e.shared != nil {
		cached, err := e.shared.GetMany(ctx, pending)
		if err != nil {
			e.logger.Warn("embedding cache read failed", "error", err)
		}
		for k, vec := range cached {
			found[k] = vec
			e.local.Add(k, vec)
		}
	}

	// collect one text per missing key
	var missKeys, missTexts []string
	queued := make(map[string]bool)
	for i, k := range keys {
		if found[k] == nil && !queued[k] {
			queued[k] = true
			missKeys = append(missKeys, k)
			missTexts = append(missTexts, texts[i])
		}
	}

	if len(missTexts) > 0 {
		vectors, err := e.embedBatches(ctx, provider, missTexts)
		if err != nil {
			return nil, err
		}
		fresh := make(map[string][]float32, len(missKeys))
		for i, k := range missKeys {
			found[k] = vectors[i]
			fresh[k] = vectors[i]
			e.local.Add(k, vectors[i])
		}
		if e.shared != nil {
			if err := e.shared.SetMany(ctx, fresh); err != nil {
				e.logger.Warn("embedding cache write failed", "error", err)
			}
		}
	}

	out := make([][]float32, len(texts))
	for i, k := range keys {
		out[i] = found[k]
	}
	return out, nil
}

func (e *Embedder) embedBatches(ctx context.Context, provider driven.EmbeddingService, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		g.Go(func() error {
			vectors, err := provider.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return &domain.ProviderError{
					Provider: provider.Model(),
					Err:      fmt.Errorf("expected %d embeddings, got %d", end-start, len(vectors)),
				}
			}
			for i, vec := range vectors {
				if len(vec) == 0 {
					return &domain.ProviderError{Provider: provider.Model(), Err: fmt.Errorf("empty embedding at %d", start+i)}
				}
				out[start+i] = vec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ChunkTexts returns the trimmed text of every chunk
func ChunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = strings.TrimSpace(c.Text)
	}
	return texts
}
