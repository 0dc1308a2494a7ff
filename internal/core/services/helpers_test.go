package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-originality/internal/detection"
	"github.com/custodia-labs/sercha-originality/internal/normalisers"
	"github.com/custodia-labs/sercha-originality/internal/runtime"
)

var testParams = domain.CorpusParams{ShingleSize: 5, FingerprintWindow: 8}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// words returns n distinct space-separated tokens with the given prefix
func words(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(out, " ")
}

// checkFixture wires the check and corpus services over in-memory adapters
type checkFixture struct {
	store    *memory.CorpusStore
	vectors  *memory.VectorIndex
	lock     *memory.Lock
	queue    *memory.TaskQueue
	provider *mocks.MockEmbeddingService
	services *runtime.Services
	corpus   driving.CorpusService
	check    driving.CheckService
}

func newCheckFixture(withProvider bool) *checkFixture {
	vectors := memory.NewVectorIndex()
	f := &checkFixture{
		store:    memory.NewCorpusStore(testParams).WithVectorIndex(vectors),
		vectors:  vectors,
		lock:     memory.NewLock(),
		queue:    memory.NewTaskQueue(16),
		provider: mocks.NewMockEmbeddingService(),
		services: runtime.NewServices(domain.NewRuntimeConfig("memory", "memory")),
	}
	if withProvider {
		f.services.SetEmbeddingService(f.provider)
	}

	logger := quietLogger()
	embedder := detection.NewEmbedder(detection.DefaultEmbedderConfig(), nil, logger)
	indexes, _ := detection.NewIndexCache(4)
	formats := normalisers.DefaultRegistry()
	f.corpus = NewCorpusService(f.store, f.lock, f.queue, embedder, f.services, formats, testParams, logger)
	f.check = NewCheckService(f.store, f.vectors, embedder, indexes, f.services, formats, domain.DefaultCheckOptions(), logger)
	return f
}

func (f *checkFixture) addSource(t testing.TB, id, text string) *domain.Source {
	t.Helper()
	src, err := f.corpus.AddSource(context.Background(), domain.NewSourceRequest{ID: id, Title: "Title " + id, Text: text})
	require.NoError(t, err)
	return src
}

// chunkText returns the trimmed text of chunk i of text under the default chunking
func chunkText(text string, i int) (string, error) {
	doc, err := domain.NewDocument(text, "")
	if err != nil {
		return "", err
	}
	opts := domain.DefaultCheckOptions()
	c, err := detection.NewChunker(opts.ChunkSize, opts.Stride)
	if err != nil {
		return "", err
	}
	seg := c.Split(doc)
	if i >= len(seg.Chunks) {
		return "", fmt.Errorf("document has %d chunks", len(seg.Chunks))
	}
	return strings.TrimSpace(seg.Chunks[i].Text), nil
}
