package detection

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

var testParams = domain.CorpusParams{ShingleSize: 5, FingerprintWindow: 8}

// words returns n distinct tokens with the given prefix
func words(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func join(parts ...[]string) string {
	var all []string
	for _, p := range parts {
		all = append(all, p...)
	}
	return strings.Join(all, " ")
}

func segment(t *testing.T, text string, size, stride int) *Segments {
	t.Helper()
	c, err := NewChunker(size, stride)
	require.NoError(t, err)
	return c.Split(mustDoc(t, text))
}

// corpusOf appends the sources to an in-memory store and indexes the snapshot
func corpusOf(t *testing.T, sources ...*domain.Source) *Corpus {
	t.Helper()
	store := memory.NewCorpusStore(testParams)
	for _, src := range sources {
		src.Fingerprints = Fingerprints(src.Text, testParams.FingerprintWindow)
		src.Shingles = Shingles(src.Text, testParams.ShingleSize)
		_, err := store.Append(context.Background(), src)
		require.NoError(t, err)
	}
	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	return BuildCorpus(snap, testParams)
}
