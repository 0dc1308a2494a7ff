package detection

import (
	"context"
	"slices"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

var _ Matcher = (*ShingleMatcher)(nil)

// ShingleMatcher finds near-duplicates by Jaccard similarity of k-word
// shingle sets. Each chunk is compared only against sources sharing at least
// one shingle with it, and against the source window of the chunk's length
// that holds the most shared shingles, so long sources are not penalised
// for their unrelated text.
type ShingleMatcher struct {
	threshold float64
}

// NewShingleMatcher creates the near-duplicate layer
func NewShingleMatcher(threshold float64) *ShingleMatcher {
	return &ShingleMatcher{threshold: threshold}
}

func (m *ShingleMatcher) Kind() MatcherKind {
	return KindNGram
}

func (m *ShingleMatcher) Match(ctx context.Context, seg *Segments, corpus *Corpus) ([]domain.Match, error) {
	k := corpus.Params.ShingleSize
	shingles := WindowHashes(seg.Hashes, k)
	if len(shingles) == 0 || corpus.Len() == 0 {
		return nil, nil
	}

	var out []domain.Match
	for _, chunk := range seg.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		first, last := chunk.StartWord, chunk.EndWord-k
		if last < first {
			continue
		}
		out = append(out, m.matchChunk(seg, corpus, chunk, shingles[first:last+1], first)...)
	}
	return out, nil
}

func (m *ShingleMatcher) matchChunk(seg *Segments, corpus *Corpus, chunk domain.Chunk, shingles []uint64, offset int) []domain.Match {
	k := corpus.Params.ShingleSize
	set := make(map[uint64]struct{}, len(shingles))
	for _, h := range shingles {
		set[h] = struct{}{}
	}

	// candidate sources and the positions where they share a shingle
	candidates := make(map[int32][]int32)
	for h := range set {
		for _, post := range corpus.shingles[h] {
			candidates[post.source] = append(candidates[post.source], post.pos)
		}
	}

	var out []domain.Match
	for _, si := range sortedKeys(candidates) {
		srcShingles := corpus.sourceShingles[si]
		window := bestWindow(candidates[si], len(shingles), len(srcShingles))
		windowSet := make(map[uint64]struct{}, window.end-window.start)
		for _, h := range srcShingles[window.start:window.end] {
			windowSet[h] = struct{}{}
		}

		shared := 0
		for h := range set {
			if _, ok := windowSet[h]; ok {
				shared++
			}
		}
		union := len(set) + len(windowSet) - shared
		if union == 0 {
			continue
		}
		similarity := float64(shared) / float64(union)
		if similarity < m.threshold {
			continue
		}

		// span from the first to the last shared shingle of the chunk
		start, end := -1, -1
		for i, h := range shingles {
			if _, ok := windowSet[h]; ok {
				if start < 0 {
					start = offset + i
				}
				end = offset + i + k
			}
		}
		end = min(end, chunk.EndWord)

		startByte, endByte := seg.ByteSpan(start, end)
		out = append(out, domain.Match{
			Source:      corpus.source(si).Ref(),
			Similarity:  domain.Clamp01(similarity),
			MatchType:   domain.MatchTypeNearDuplicate,
			MatchedText: seg.Document.Text[startByte:endByte],
			Confidence:  domain.Clamp01(similarity),
			ChunkID:     chunk.ID,
			StartWord:   start,
			EndWord:     end,
			StartByte:   startByte,
			EndByte:     endByte,
			Layer:       KindNGram.Layer(),
		})
	}
	return out
}

type shingleWindow struct {
	start, end int
}

// bestWindow picks the source window of length n holding the most hit
// positions. Sources no longer than n are compared whole.
func bestWindow(hits []int32, n, sourceLen int) shingleWindow {
	if sourceLen <= n {
		return shingleWindow{start: 0, end: sourceLen}
	}

	positions := slices.Clone(hits)
	slices.Sort(positions)
	positions = slices.Compact(positions)

	bestStart, bestCount := int(positions[0]), 0
	lo := 0
	for hi := range positions {
		for positions[hi]-positions[lo] >= int32(n) {
			lo++
		}
		if count := hi - lo + 1; count > bestCount {
			bestCount = count
			bestStart = int(positions[lo])
		}
	}

	start := min(bestStart, sourceLen-n)
	return shingleWindow{start: start, end: start + n}
}
