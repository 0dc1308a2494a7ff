package detection

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

var _ Matcher = (*SemanticMatcher)(nil)

// queryConcurrency bounds the vector index queries in flight per check
const queryConcurrency = 4

// SemanticMatcher finds paraphrases by cosine similarity between chunk
// embeddings and source embeddings. It is the only layer that performs
// network I/O.
type SemanticMatcher struct {
	embedder  *Embedder
	provider  driven.EmbeddingService
	index     driven.VectorIndex
	threshold float64
	topK      int
}

// NewSemanticMatcher creates the paraphrase layer
func NewSemanticMatcher(embedder *Embedder, provider driven.EmbeddingService, index driven.VectorIndex, threshold float64, topK int) *SemanticMatcher {
	return &SemanticMatcher{
		embedder:  embedder,
		provider:  provider,
		index:     index,
		threshold: threshold,
		topK:      topK,
	}
}

func (m *SemanticMatcher) Kind() MatcherKind {
	return KindSemantic
}

func (m *SemanticMatcher) Match(ctx context.Context, seg *Segments, corpus *Corpus) ([]domain.Match, error) {
	if len(seg.Chunks) == 0 || corpus.Len() == 0 {
		return nil, nil
	}

	vectors, err := m.embedder.Embed(ctx, m.provider, ChunkTexts(seg.Chunks))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	hits, err := queryAll(ctx, m.index, vectors, m.topK, corpus.Version)
	if err != nil {
		return nil, err
	}

	var out []domain.Match
	for i, chunk := range seg.Chunks {
		for _, hit := range hits[i] {
			if hit.Similarity < m.threshold {
				continue
			}
			src := corpus.Source(hit.SourceID)
			if src == nil {
				continue
			}
			similarity := domain.Clamp01(hit.Similarity)
			startByte, endByte := seg.ByteSpan(chunk.StartWord, chunk.EndWord)
			out = append(out, domain.Match{
				Source:      src.Ref(),
				Similarity:  similarity,
				MatchType:   domain.MatchTypeParaphrase,
				MatchedText: seg.Document.Text[startByte:endByte],
				Confidence:  ParaphraseConfidence(similarity, m.threshold),
				ChunkID:     chunk.ID,
				StartWord:   chunk.StartWord,
				EndWord:     chunk.EndWord,
				StartByte:   startByte,
				EndByte:     endByte,
				Layer:       KindSemantic.Layer(),
			})
		}
	}
	return out, nil
}

// ParaphraseConfidence rescales a similarity at or above threshold into
// [0.5, 1]: a hit at the threshold is a coin flip, a perfect hit is certain.
func ParaphraseConfidence(similarity, threshold float64) float64 {
	if threshold >= 1 {
		return 1
	}
	return domain.Clamp01(0.5 + 0.5*(similarity-threshold)/(1-threshold))
}

// queryAll runs one top-k query per vector on a bounded pool
func queryAll(ctx context.Context, index driven.VectorIndex, vectors [][]float32, topK int, asOf int64) ([][]driven.VectorHit, error) {
	out := make([][]driven.VectorHit, len(vectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(queryConcurrency)
	for i, vec := range vectors {
		g.Go(func() error {
			hits, err := index.Query(gctx, vec, topK, asOf)
			if err != nil {
				return fmt.Errorf("query vector index: %w", err)
			}
			out[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
