package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// flakyEmbedding fails with the queued errors before succeeding
type flakyEmbedding struct {
	*LocalEmbedding
	errs  []error
	calls int
}

func (f *flakyEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.LocalEmbedding.Embed(ctx, texts)
}

func transient() error {
	return &domain.ProviderError{Provider: "test", Err: errors.New("429"), Transient: true}
}

func newResilient(next *flakyEmbedding, attempts int) *ResilientEmbedding {
	r := NewResilientEmbedding(next, 0, attempts)
	r.base = time.Millisecond
	return r
}

func TestResilientEmbedding_RetriesTransient(t *testing.T) {
	next := &flakyEmbedding{LocalEmbedding: NewLocalEmbedding(8), errs: []error{transient(), transient()}}
	r := newResilient(next, 3)

	vecs, err := r.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, next.calls)
}

func TestResilientEmbedding_GivesUp(t *testing.T) {
	next := &flakyEmbedding{LocalEmbedding: NewLocalEmbedding(8), errs: []error{transient(), transient(), transient()}}
	r := newResilient(next, 2)

	_, err := r.Embed(context.Background(), []string{"hello"})
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 2, next.calls)
}

func TestResilientEmbedding_PermanentNotRetried(t *testing.T) {
	permanent := &domain.ProviderError{Provider: "test", Err: errors.New("401")}
	next := &flakyEmbedding{LocalEmbedding: NewLocalEmbedding(8), errs: []error{permanent}}
	r := newResilient(next, 5)

	_, err := r.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 1, next.calls)
}

func TestResilientEmbedding_Throttles(t *testing.T) {
	next := &flakyEmbedding{LocalEmbedding: NewLocalEmbedding(8)}
	r := NewResilientEmbedding(next, 20, 1)

	start := time.Now()
	for range 3 {
		_, err := r.EmbedQuery(context.Background(), "x")
		require.NoError(t, err)
	}
	// burst of 20 admits the first calls without waiting
	assert.Less(t, time.Since(start), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Embed(ctx, []string{"x"})
	assert.Error(t, err)
}

func TestResilientEmbedding_Delegates(t *testing.T) {
	r := NewResilientEmbedding(NewLocalEmbedding(8), 0, 0)
	assert.Equal(t, 8, r.Dimensions())
	assert.Equal(t, localModel, r.Model())
	assert.NoError(t, r.HealthCheck(context.Background()))
	assert.NoError(t, r.Close())
}
