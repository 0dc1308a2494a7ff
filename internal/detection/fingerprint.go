package detection

import (
	"cmp"
	"context"
	"slices"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

var _ Matcher = (*FingerprintMatcher)(nil)

// FingerprintMatcher finds verbatim and trivially edited copies by looking
// up rolling window hashes in the corpus postings.
//
// Hits against one source are grouped by diagonal (document position minus
// source position). A run along a diagonal tolerates one edited word, which
// removes exactly window hashes. A run whose hit ratio reaches the threshold
// becomes one Exact match; otherwise each unbroken stretch of at least
// window hits is reported on its own.
type FingerprintMatcher struct {
	threshold float64
}

// NewFingerprintMatcher creates the exact-copy layer
func NewFingerprintMatcher(threshold float64) *FingerprintMatcher {
	return &FingerprintMatcher{threshold: threshold}
}

func (m *FingerprintMatcher) Kind() MatcherKind {
	return KindFingerprint
}

type diagonal struct {
	source int32
	offset int32
}

func (m *FingerprintMatcher) Match(ctx context.Context, seg *Segments, corpus *Corpus) ([]domain.Match, error) {
	window := corpus.Params.FingerprintWindow
	windows := WindowHashes(seg.Hashes, window)
	if len(windows) == 0 || corpus.Len() == 0 {
		return nil, nil
	}

	hits := make(map[diagonal][]int32)
	for p, h := range windows {
		if p%512 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for _, post := range corpus.fingerprints[h] {
			d := diagonal{source: post.source, offset: int32(p) - post.pos}
			hits[d] = append(hits[d], int32(p))
		}
	}

	keys := make([]diagonal, 0, len(hits))
	for d := range hits {
		keys = append(keys, d)
	}
	slices.SortFunc(keys, func(a, b diagonal) int {
		if c := cmp.Compare(a.source, b.source); c != 0 {
			return c
		}
		return cmp.Compare(a.offset, b.offset)
	})

	var out []domain.Match
	for _, d := range keys {
		src := corpus.source(d.source)
		for _, r := range m.runs(hits[d], window) {
			out = append(out, exactMatch(seg, src, r.start, r.end+window, r.similarity))
		}
	}
	return out, nil
}

type windowRun struct {
	start, end int // first and last window position
	similarity float64
}

// runs splits sorted window positions of one diagonal into reportable runs
func (m *FingerprintMatcher) runs(positions []int32, window int) []windowRun {
	var out []windowRun
	maxGap := int32(window + 1)

	from := 0
	for i := 1; i <= len(positions); i++ {
		if i < len(positions) && positions[i]-positions[i-1] <= maxGap {
			continue
		}
		group := positions[from:i]
		from = i

		span := int(group[len(group)-1]-group[0]) + 1
		similarity := float64(len(group)) / float64(span)
		if span >= window && similarity >= m.threshold {
			out = append(out, windowRun{start: int(group[0]), end: int(group[len(group)-1]), similarity: similarity})
			continue
		}
		out = append(out, consecutiveRuns(group, window)...)
	}
	return out
}

// consecutiveRuns returns every unbroken stretch of at least window positions
func consecutiveRuns(group []int32, window int) []windowRun {
	var out []windowRun
	from := 0
	for i := 1; i <= len(group); i++ {
		if i < len(group) && group[i] == group[i-1]+1 {
			continue
		}
		if i-from >= window {
			out = append(out, windowRun{start: int(group[from]), end: int(group[i-1]), similarity: 1})
		}
		from = i
	}
	return out
}

func exactMatch(seg *Segments, src *domain.Source, start, end int, similarity float64) domain.Match {
	startByte, endByte := seg.ByteSpan(start, end)
	return domain.Match{
		Source:      src.Ref(),
		Similarity:  domain.Clamp01(similarity),
		MatchType:   domain.MatchTypeExact,
		MatchedText: seg.Document.Text[startByte:endByte],
		Confidence:  1.0,
		ChunkID:     seg.ChunkFor(start),
		StartWord:   start,
		EndWord:     end,
		StartByte:   startByte,
		EndByte:     endByte,
		Layer:       KindFingerprint.Layer(),
	}
}
