package detection

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// MaxCitationSuggestions caps the suggestions of one request
const MaxCitationSuggestions = 10

// minClaimWords is the shortest sentence considered a claim
const minClaimWords = 5

// uncoveredFraction is the share of a chunk's words that must be free of
// matches for the chunk to be considered for a suggestion
const uncoveredFraction = 0.5

var claimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bresearch\s+(shows|indicates|suggests|demonstrates)\b`),
	regexp.MustCompile(`(?i)\bstudies\s+(have\s+)?(shown|demonstrated|found|revealed|show|suggest)\b`),
	regexp.MustCompile(`(?i)\bevidence\s+(suggests|shows|indicates)\b`),
	regexp.MustCompile(`(?i)\baccording\s+to\b`),
	regexp.MustCompile(`(?i)\bit\s+(is|has\s+been)\s+(shown|demonstrated|proven|reported|established)\b`),
	regexp.MustCompile(`(?i)\bexperiments\s+(show|demonstrate|indicate|reveal)\b`),
	regexp.MustCompile(`(?i)\b(researchers|scientists)\s+(found|discovered|reported)\b`),
}

var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

// FindClaim returns the first claim-like sentence of text, or ""
func FindClaim(text string) string {
	for _, sentence := range splitSentences(text) {
		if len(strings.Fields(sentence)) < minClaimWords {
			continue
		}
		for _, p := range claimPatterns {
			if p.MatchString(sentence) {
				return sentence
			}
		}
	}
	return ""
}

func splitSentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}

// CitationSuggester proposes sources for passages that resemble a source
// without being flagged as copied
type CitationSuggester struct {
	embedder   *Embedder
	provider   driven.EmbeddingService
	index      driven.VectorIndex
	low        float64
	high       float64
	topK       int
	claimsOnly bool
}

// NewCitationSuggester creates a suggester emitting similarities in [low, high)
func NewCitationSuggester(embedder *Embedder, provider driven.EmbeddingService, index driven.VectorIndex, low, high float64, topK int, claimsOnly bool) *CitationSuggester {
	return &CitationSuggester{
		embedder:   embedder,
		provider:   provider,
		index:      index,
		low:        low,
		high:       high,
		topK:       topK,
		claimsOnly: claimsOnly,
	}
}

// Suggest returns suggestions for chunks mostly free of matches, best first
func (c *CitationSuggester) Suggest(ctx context.Context, seg *Segments, corpus *Corpus, matches []domain.Match) ([]domain.CitationSuggestion, error) {
	if corpus.Len() == 0 {
		return nil, nil
	}

	covered := make([]bool, seg.WordCount())
	for _, m := range matches {
		for i := max(m.StartWord, 0); i < min(m.EndWord, len(covered)); i++ {
			covered[i] = true
		}
	}

	var candidates []domain.Chunk
	var claims []string
	for _, chunk := range seg.Chunks {
		free := 0
		for i := chunk.StartWord; i < chunk.EndWord; i++ {
			if !covered[i] {
				free++
			}
		}
		if float64(free) < uncoveredFraction*float64(chunk.WordCount()) {
			continue
		}
		claim := FindClaim(chunk.Text)
		if c.claimsOnly && claim == "" {
			continue
		}
		candidates = append(candidates, chunk)
		claims = append(claims, claim)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	vectors, err := c.embedder.Embed(ctx, c.provider, ChunkTexts(candidates))
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	hits, err := queryAll(ctx, c.index, vectors, c.topK, corpus.Version)
	if err != nil {
		return nil, err
	}

	var out []domain.CitationSuggestion
	for i, chunk := range candidates {
		for _, hit := range hits[i] {
			src := corpus.Source(hit.SourceID)
			if src == nil {
				continue
			}
			// hits are ordered best first; only the best resolvable one counts
			if hit.Similarity >= c.low && hit.Similarity < c.high {
				out = append(out, domain.CitationSuggestion{
					ChunkID:    chunk.ID,
					Source:     src.Ref(),
					Similarity: domain.Clamp01(hit.Similarity),
					Claim:      claims[i],
					ChunkText:  strings.TrimSpace(chunk.Text),
					StartByte:  chunk.StartByte,
					EndByte:    chunk.EndByte,
				})
			}
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > MaxCitationSuggestions {
		out = out[:MaxCitationSuggestions]
	}
	return out, nil
}
