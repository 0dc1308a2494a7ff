package detection

import (
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// minFragmentWords drops slivers left over after trimming a match
const minFragmentWords = 3

// stitchSeparator joins the texts of matches stitched across a gap
const stitchSeparator = " ... "

// Aggregator reconciles the raw matches of all layers into one list in which
// no two matches against the same source overlap by more than the allowed
// fraction of the shorter span.
type Aggregator struct {
	maxOverlap float64
	stitchGap  int
}

// NewAggregator creates an aggregator. maxOverlap is relative to the shorter
// of two spans; stitchGap is the largest word gap bridged between two
// matches of the same type and source.
func NewAggregator(maxOverlap float64, stitchGap int) *Aggregator {
	return &Aggregator{maxOverlap: maxOverlap, stitchGap: stitchGap}
}

// span is a match under construction with the word ranges that carry its text
type span struct {
	m      domain.Match
	pieces [][2]int
}

var precedenceOrder = []domain.MatchType{
	domain.MatchTypeExact,
	domain.MatchTypeNearDuplicate,
	domain.MatchTypeParaphrase,
}

// Aggregate merges, stitches and trims raw matches. Per source, matches are
// resolved in precedence order Exact > NearDuplicate > Paraphrase: a lower
// match overlapping a kept one beyond the allowed fraction keeps only the
// words the kept one does not cover. The result is ordered by position.
func (a *Aggregator) Aggregate(seg *Segments, raw []domain.Match) []domain.Match {
	bySource := make(map[string][]domain.Match)
	for _, m := range raw {
		if m.Len() <= 0 || !m.MatchType.IsValid() {
			continue
		}
		bySource[m.Source.ID] = append(bySource[m.Source.ID], m)
	}

	sourceIDs := make([]string, 0, len(bySource))
	for id := range bySource {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)

	var out []domain.Match
	for _, id := range sourceIDs {
		byType := make(map[domain.MatchType][]domain.Match)
		for _, m := range bySource[id] {
			byType[m.MatchType] = append(byType[m.MatchType], m)
		}

		var kept []span
		for _, t := range precedenceOrder {
			for _, s := range a.consolidate(byType[t]) {
				kept = append(kept, a.trim(s, kept)...)
			}
		}
		for _, s := range kept {
			out = append(out, render(seg, s))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		x, y := out[i], out[j]
		if x.StartWord != y.StartWord {
			return x.StartWord < y.StartWord
		}
		if x.Source.ID != y.Source.ID {
			return x.Source.ID < y.Source.ID
		}
		if x.MatchType != y.MatchType {
			return x.MatchType.Precedence() > y.MatchType.Precedence()
		}
		return x.EndWord < y.EndWord
	})
	return out
}

// consolidate merges same-type matches of one source. Heavily overlapping
// matches are one finding and keep the higher confidence; matches that touch,
// overlap slightly or sit within the stitch gap are stitched with a
// length-weighted confidence and similarity.
func (a *Aggregator) consolidate(matches []domain.Match) []span {
	if len(matches) == 0 {
		return nil
	}
	sorted := append([]domain.Match(nil), matches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartWord != sorted[j].StartWord {
			return sorted[i].StartWord < sorted[j].StartWord
		}
		if sorted[i].EndWord != sorted[j].EndWord {
			return sorted[i].EndWord < sorted[j].EndWord
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var out []span
	cur := newSpan(sorted[0])
	for _, next := range sorted[1:] {
		if next.StartWord > cur.m.EndWord+a.stitchGap {
			out = append(out, cur)
			cur = newSpan(next)
			continue
		}

		if a.exceedsOverlap(cur.m, next) {
			cur.m.Confidence = max(cur.m.Confidence, next.Confidence)
			cur.m.Similarity = max(cur.m.Similarity, next.Similarity)
		} else {
			wc, wn := float64(cur.m.Len()), float64(next.Len())
			cur.m.Confidence = (cur.m.Confidence*wc + next.Confidence*wn) / (wc + wn)
			cur.m.Similarity = (cur.m.Similarity*wc + next.Similarity*wn) / (wc + wn)
		}
		cur.m.EndWord = max(cur.m.EndWord, next.EndWord)
		cur.pieces = append(cur.pieces, [2]int{next.StartWord, next.EndWord})
	}
	return append(out, cur)
}

// trim removes from s every range covered by a kept span it overlaps beyond
// the allowed fraction, and returns the pieces that remain
func (a *Aggregator) trim(s span, kept []span) []span {
	var out []span
	queue := []span{s}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		conflict := -1
		for i := range kept {
			if a.exceedsOverlap(p.m, kept[i].m) {
				conflict = i
				break
			}
		}
		if conflict < 0 {
			out = append(out, p)
			continue
		}

		k := kept[conflict].m
		if p.m.StartWord < k.StartWord {
			left := p.clip(p.m.StartWord, k.StartWord)
			if left.m.Len() >= minFragmentWords {
				queue = append(queue, left)
			}
		}
		if p.m.EndWord > k.EndWord {
			right := p.clip(k.EndWord, p.m.EndWord)
			if right.m.Len() >= minFragmentWords {
				queue = append(queue, right)
			}
		}
	}
	return out
}

// exceedsOverlap reports whether a and b overlap by more than the allowed
// fraction of the shorter span
func (a *Aggregator) exceedsOverlap(x, y domain.Match) bool {
	ov := x.Overlap(y)
	if ov == 0 {
		return false
	}
	shorter := min(x.Len(), y.Len())
	return float64(ov)/float64(shorter) > a.maxOverlap
}

func newSpan(m domain.Match) span {
	return span{m: m, pieces: [][2]int{{m.StartWord, m.EndWord}}}
}

// clip narrows the span to [start, end); the chunk is re-derived on render
func (s span) clip(start, end int) span {
	c := span{m: s.m, pieces: s.pieces}
	c.m.StartWord, c.m.EndWord = start, end
	c.m.ChunkID = ""
	return c
}

// render fills the text and byte offsets of a finished span
func render(seg *Segments, s span) domain.Match {
	m := s.m
	m.StartByte, m.EndByte = seg.ByteSpan(m.StartWord, m.EndWord)
	if m.ChunkID == "" {
		m.ChunkID = seg.ChunkFor(m.StartWord)
	}
	m.Similarity = domain.Clamp01(m.Similarity)
	m.Confidence = domain.Clamp01(m.Confidence)

	// clip pieces to the span and join them, bridging gaps with a separator
	var ranges [][2]int
	for _, p := range s.pieces {
		from, to := max(p[0], m.StartWord), min(p[1], m.EndWord)
		if from < to {
			ranges = append(ranges, [2]int{from, to})
		}
	}
	if len(ranges) == 0 {
		ranges = [][2]int{{m.StartWord, m.EndWord}}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })

	var merged [][2]int
	for _, r := range ranges {
		if n := len(merged); n > 0 && r[0] <= merged[n-1][1] {
			merged[n-1][1] = max(merged[n-1][1], r[1])
			continue
		}
		merged = append(merged, r)
	}

	parts := make([]string, len(merged))
	for i, r := range merged {
		parts[i] = seg.Slice(r[0], r[1])
	}
	m.MatchedText = strings.Join(parts, stitchSeparator)
	return m
}
