package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

func TestRegistry(t *testing.T) {
	fp := NewFingerprintMatcher(0.98)
	sh := NewShingleMatcher(0.65)
	r := NewRegistry(sh, fp)

	assert.Same(t, fp, r.Get(KindFingerprint))
	assert.Same(t, sh, r.Get(KindNGram))
	assert.Nil(t, r.Get(KindSemantic))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, KindFingerprint, all[0].Kind())
	assert.Equal(t, KindNGram, all[1].Kind())

	replacement := NewShingleMatcher(0.5)
	r.Register(replacement)
	assert.Same(t, replacement, r.Get(KindNGram))
	assert.Len(t, r.All(), 2)
}

func TestMatcherKind(t *testing.T) {
	assert.Equal(t, domain.LayerFingerprint, KindFingerprint.Layer())
	assert.Equal(t, domain.LayerNGram, KindNGram.Layer())
	assert.Equal(t, domain.LayerSemantic, KindSemantic.Layer())
	assert.Equal(t, "semantic", KindSemantic.String())

	assert.False(t, KindFingerprint.Degradable())
	assert.False(t, KindNGram.Degradable())
	assert.True(t, KindSemantic.Degradable())
}

func TestIndexCache_ReusesCorpusPerVersion(t *testing.T) {
	cache, err := NewIndexCache(4)
	require.NoError(t, err)

	corpus := corpusOf(t, &domain.Source{ID: "src", Title: "Source", Text: join(words("w", 30))})
	snap := &domain.CorpusSnapshot{Version: corpus.Version, Params: testParams, Sources: []*domain.Source{corpus.Source("src")}}

	first := cache.Get(snap, testParams)
	second := cache.Get(snap, testParams)
	assert.Same(t, first, second)
	assert.Equal(t, 1, first.Len())

	other := cache.Get(snap, domain.CorpusParams{ShingleSize: 3, FingerprintWindow: 8})
	assert.NotSame(t, first, other)
}
