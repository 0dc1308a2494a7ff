package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/util"
)

// Ensure ResilientEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*ResilientEmbedding)(nil)

// defaultRetryBase is the first backoff between provider attempts
const defaultRetryBase = 200 * time.Millisecond

// ResilientEmbedding throttles and retries calls to another
// EmbeddingService. Only transient provider errors are retried.
type ResilientEmbedding struct {
	next     driven.EmbeddingService
	limiter  *rate.Limiter
	attempts int
	base     time.Duration
}

// NewResilientEmbedding wraps next. rps <= 0 disables throttling and
// attempts <= 0 means a single attempt.
func NewResilientEmbedding(next driven.EmbeddingService, rps float64, attempts int) *ResilientEmbedding {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return &ResilientEmbedding{
		next:     next,
		limiter:  limiter,
		attempts: max(1, attempts),
		base:     defaultRetryBase,
	}
}

func (r *ResilientEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := util.Retry(ctx, r.attempts, r.base, domain.IsTransient, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		vecs, err := r.next.Embed(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	})
	return out, err
}

func (r *ResilientEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := r.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (r *ResilientEmbedding) Dimensions() int {
	return r.next.Dimensions()
}

func (r *ResilientEmbedding) Model() string {
	return r.next.Model()
}

func (r *ResilientEmbedding) HealthCheck(ctx context.Context) error {
	return r.next.HealthCheck(ctx)
}

func (r *ResilientEmbedding) Close() error {
	return r.next.Close()
}
