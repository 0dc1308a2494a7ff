package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-originality/internal/detection"
	"github.com/custodia-labs/sercha-originality/internal/normalisers"
)

func TestCorpusService_AddSource(t *testing.T) {
	f := newCheckFixture(true)
	text := words("s", 30)

	src, err := f.corpus.AddSource(context.Background(), domain.NewSourceRequest{ID: "src-1", Title: "Source", URL: "https://example.org/s", Text: text})
	require.NoError(t, err)

	assert.Equal(t, int64(1), src.Version)
	assert.False(t, src.CreatedAt.IsZero())
	assert.Equal(t, detection.Fingerprints(text, testParams.FingerprintWindow), src.Fingerprints)
	assert.Equal(t, detection.Shingles(text, testParams.ShingleSize), src.Shingles)
	assert.Len(t, src.Embedding, f.provider.Dimensions())
	assert.Equal(t, 1, f.vectors.Len())
	assert.False(t, f.lock.IsHeld(ingestLockName))

	stored, err := f.corpus.GetSource(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, "Source", stored.Title)

	stats, err := f.corpus.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Version)
	assert.Equal(t, 1, stats.SourceCount)
	assert.Equal(t, int64(30), stats.TotalWords)
}

func TestCorpusService_AddSourceAssignsID(t *testing.T) {
	f := newCheckFixture(false)

	src, err := f.corpus.AddSource(context.Background(), domain.NewSourceRequest{Title: "Untitled", Text: words("s", 10)})
	require.NoError(t, err)
	assert.NotEmpty(t, src.ID)
	assert.Empty(t, src.Embedding)
	assert.Zero(t, f.vectors.Len())
}

func TestCorpusService_AddSourceVersionsIncrease(t *testing.T) {
	f := newCheckFixture(false)

	first := f.addSource(t, "a", words("a", 10))
	second := f.addSource(t, "b", words("b", 10))
	assert.Equal(t, first.Version+1, second.Version)
}

func TestCorpusService_AddSourceErrors(t *testing.T) {
	f := newCheckFixture(false)
	f.addSource(t, "dup", words("s", 10))

	_, err := f.corpus.AddSource(context.Background(), domain.NewSourceRequest{ID: "dup", Title: "Again", Text: words("s", 10)})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = f.corpus.AddSource(context.Background(), domain.NewSourceRequest{Title: "", Text: "text"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.corpus.AddSource(context.Background(), domain.NewSourceRequest{Title: "Empty"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCorpusService_ProviderFailureStillIngests(t *testing.T) {
	f := newCheckFixture(true)
	f.provider.SetFailAll(context.DeadlineExceeded)

	src := f.addSource(t, "src-1", words("s", 20))
	assert.Empty(t, src.Embedding)
	assert.Zero(t, f.vectors.Len())
	assert.NotEmpty(t, src.Fingerprints)
}

func TestCorpusService_IngestLockHeld(t *testing.T) {
	f := newCheckFixture(false)
	ok, err := f.lock.Acquire(context.Background(), ingestLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.corpus.AddSource(context.Background(), domain.NewSourceRequest{Title: "Blocked", Text: words("s", 10)})
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)
}

func TestCorpusService_IngestLockLifecycle(t *testing.T) {
	f := newCheckFixture(false)
	lock := mocks.NewMockLock()
	embedder := detection.NewEmbedder(detection.DefaultEmbedderConfig(), nil, quietLogger())
	corpus := NewCorpusService(f.store, lock, f.queue, embedder, f.services, normalisers.DefaultRegistry(), testParams, quietLogger())
	ctx := context.Background()

	_, err := corpus.AddSource(ctx, domain.NewSourceRequest{Title: "First", Text: words("a", 20)})
	require.NoError(t, err)
	assert.Equal(t, []string{"acquire:" + ingestLockName, "release:" + ingestLockName}, lock.Calls())

	// a busy lock is retried before giving up
	lock.Hold(ingestLockName, time.Minute)
	_, err = corpus.AddSource(ctx, domain.NewSourceRequest{Title: "Second", Text: words("b", 20)})
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)
	assert.Equal(t, 1+ingestLockAttempts, lock.Count("acquire", ingestLockName))

	// backend errors are not retried
	lock = mocks.NewMockLock()
	lock.AcquireErr = errors.New("lock backend down")
	corpus = NewCorpusService(f.store, lock, f.queue, embedder, f.services, normalisers.DefaultRegistry(), testParams, quietLogger())
	_, err = corpus.AddSource(ctx, domain.NewSourceRequest{Title: "Third", Text: words("c", 20)})
	require.Error(t, err)
	assert.Equal(t, 1, lock.Count("acquire", ingestLockName))
	assert.Zero(t, lock.Count("release", ingestLockName))
}

func TestCorpusService_EnqueueSource(t *testing.T) {
	f := newCheckFixture(false)

	task, err := f.corpus.EnqueueSource(context.Background(), domain.NewSourceRequest{Title: "Queued", Text: words("q", 10)})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskTypeIngestSource, task.Type)

	dequeued, err := f.queue.DequeueWithTimeout(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, dequeued)
	req := dequeued.SourceRequest()
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "Queued", req.Title)
	assert.Equal(t, words("q", 10), req.Text)

	_, err = f.corpus.EnqueueSource(context.Background(), domain.NewSourceRequest{Title: "No text"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCorpusService_GetSourceNotFound(t *testing.T) {
	f := newCheckFixture(false)
	_, err := f.corpus.GetSource(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusService_AddSourceNormalisesMarkup(t *testing.T) {
	f := newCheckFixture(false)
	text := words("s", 30)

	src, err := f.corpus.AddSource(context.Background(), domain.NewSourceRequest{
		Title:       "Page",
		Text:        "<html><head><script>var tracked = true;</script></head><body><p>" + text + "</p></body></html>",
		ContentType: "text/html; charset=utf-8",
	})
	require.NoError(t, err)
	assert.Equal(t, text, src.Text)
	assert.Equal(t, detection.Fingerprints(text, testParams.FingerprintWindow), src.Fingerprints)

	_, err = f.corpus.AddSource(context.Background(), domain.NewSourceRequest{
		Title:       "Empty page",
		Text:        "<script>only()</script>",
		ContentType: "text/html",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
