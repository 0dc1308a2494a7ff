package ai

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/detection"
)

// Ensure LocalEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*LocalEmbedding)(nil)

const (
	localModel             = "local-hashing-v1"
	defaultLocalDimensions = 512
)

// LocalEmbedding is an in-process feature hashing embedder. Unigrams and
// bigrams of normalised words are hashed into a fixed number of signed
// buckets and the result is L2 normalised. It captures vocabulary overlap
// only, so it suits offline use and development rather than true
// paraphrase detection.
type LocalEmbedding struct {
	dimensions int
}

// NewLocalEmbedding creates a hashing embedder with the given dimensions
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = defaultLocalDimensions
	}
	return &LocalEmbedding{dimensions: dimensions}
}

func (e *LocalEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *LocalEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(query), nil
}

func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedding) Model() string {
	return localModel
}

func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

func (e *LocalEmbedding) Close() error {
	return nil
}

func (e *LocalEmbedding) vector(text string) []float32 {
	vec := make([]float64, e.dimensions)
	prev := ""
	for _, w := range detection.Tokenize(text) {
		word := detection.NormalizeWord(w.Text)
		if word == "" {
			continue
		}
		e.add(vec, word, 1)
		if prev != "" {
			e.add(vec, prev+" "+word, 0.5)
		}
		prev = word
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dimensions)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// add hashes feature into a bucket, the top bit choosing the sign
func (e *LocalEmbedding) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(e.dimensions))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
