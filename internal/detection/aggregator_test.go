package detection

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

func rawMatch(source string, t domain.MatchType, start, end int, sim, conf float64) domain.Match {
	return domain.Match{
		Source:     domain.SourceRef{ID: source, Title: source},
		MatchType:  t,
		StartWord:  start,
		EndWord:    end,
		Similarity: sim,
		Confidence: conf,
	}
}

func span2(m domain.Match) [2]int {
	return [2]int{m.StartWord, m.EndWord}
}

func TestAggregator_PrecedenceTrimsLowerType(t *testing.T) {
	seg := segment(t, join(words("w", 100)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeParaphrase, 0, 50, 0.8, 0.6),
		rawMatch("src", domain.MatchTypeExact, 10, 30, 1, 1),
	})
	require.Len(t, out, 3)

	assert.Equal(t, domain.MatchTypeParaphrase, out[0].MatchType)
	assert.Equal(t, [2]int{0, 10}, span2(out[0]))
	assert.Equal(t, seg.Slice(0, 10), out[0].MatchedText)

	assert.Equal(t, domain.MatchTypeExact, out[1].MatchType)
	assert.Equal(t, [2]int{10, 30}, span2(out[1]))

	assert.Equal(t, domain.MatchTypeParaphrase, out[2].MatchType)
	assert.Equal(t, [2]int{30, 50}, span2(out[2]))
	assert.Equal(t, seg.ChunkFor(30), out[2].ChunkID)
}

func TestAggregator_DropsSlivers(t *testing.T) {
	seg := segment(t, join(words("w", 60)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeNearDuplicate, 0, 22, 0.7, 0.7),
		rawMatch("src", domain.MatchTypeExact, 2, 22, 1, 1),
	})
	require.Len(t, out, 1)
	assert.Equal(t, domain.MatchTypeExact, out[0].MatchType)
}

func TestAggregator_SmallOverlapKeepsBoth(t *testing.T) {
	seg := segment(t, join(words("w", 100)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeExact, 0, 20, 1, 1),
		rawMatch("src", domain.MatchTypeNearDuplicate, 15, 60, 0.7, 0.7),
	})
	require.Len(t, out, 2)
	assert.Equal(t, [2]int{0, 20}, span2(out[0]))
	assert.Equal(t, [2]int{15, 60}, span2(out[1]))
}

func TestAggregator_StitchesAcrossSmallGap(t *testing.T) {
	seg := segment(t, join(words("w", 100)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeExact, 0, 20, 1, 1),
		rawMatch("src", domain.MatchTypeExact, 22, 32, 0.7, 0.7),
	})
	require.Len(t, out, 1)

	m := out[0]
	assert.Equal(t, [2]int{0, 32}, span2(m))
	assert.InDelta(t, 0.9, m.Confidence, 1e-9)
	assert.InDelta(t, 0.9, m.Similarity, 1e-9)
	assert.Equal(t, seg.Slice(0, 20)+" ... "+seg.Slice(22, 32), m.MatchedText)
}

func TestAggregator_HeavyOverlapUnion(t *testing.T) {
	seg := segment(t, join(words("w", 100)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeNearDuplicate, 0, 50, 0.8, 0.8),
		rawMatch("src", domain.MatchTypeNearDuplicate, 10, 60, 0.9, 0.9),
	})
	require.Len(t, out, 1)

	m := out[0]
	assert.Equal(t, [2]int{0, 60}, span2(m))
	assert.InDelta(t, 0.9, m.Confidence, 1e-9)
	assert.Equal(t, seg.Slice(0, 60), m.MatchedText)
	assert.NotContains(t, m.MatchedText, stitchSeparator)
}

func TestAggregator_SourcesAreIndependent(t *testing.T) {
	seg := segment(t, join(words("w", 100)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src-b", domain.MatchTypeParaphrase, 0, 20, 0.8, 0.6),
		rawMatch("src-a", domain.MatchTypeExact, 0, 20, 1, 1),
	})
	require.Len(t, out, 2)
	assert.Equal(t, "src-a", out[0].Source.ID)
	assert.Equal(t, "src-b", out[1].Source.ID)
}

func TestAggregator_FarApartStaySeparate(t *testing.T) {
	seg := segment(t, join(words("w", 100)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeExact, 40, 50, 1, 1),
		rawMatch("src", domain.MatchTypeExact, 0, 10, 1, 1),
	})
	require.Len(t, out, 2)
	assert.Equal(t, [2]int{0, 10}, span2(out[0]))
	assert.Equal(t, [2]int{40, 50}, span2(out[1]))
}

func TestAggregator_SkipsEmptyAndInvalid(t *testing.T) {
	seg := segment(t, join(words("w", 20)), 50, 10)
	agg := NewAggregator(0.5, 3)

	out := agg.Aggregate(seg, []domain.Match{
		rawMatch("src", domain.MatchTypeExact, 5, 5, 1, 1),
		rawMatch("src", domain.MatchType("bogus"), 0, 10, 1, 1),
	})
	assert.Empty(t, out)
}

func TestAggregator_OverlapInvariant(t *testing.T) {
	const total = 200
	seg := segment(t, join(words("w", total)), 50, 10)
	agg := NewAggregator(0.5, 3)
	rng := rand.New(rand.NewPCG(7, 11))
	types := []domain.MatchType{domain.MatchTypeExact, domain.MatchTypeNearDuplicate, domain.MatchTypeParaphrase}
	sources := []string{"src-a", "src-b", "src-c"}

	for range 200 {
		var raw []domain.Match
		rawCovered := make(map[string][]bool)
		for range 1 + rng.IntN(12) {
			start := rng.IntN(total - 1)
			end := start + 1 + rng.IntN(min(60, total-start))
			src := sources[rng.IntN(len(sources))]
			raw = append(raw, rawMatch(src, types[rng.IntN(len(types))], start, end, rng.Float64(), rng.Float64()))
			if rawCovered[src] == nil {
				rawCovered[src] = make([]bool, total)
			}
			for i := start; i < end; i++ {
				rawCovered[src][i] = true
			}
		}

		out := agg.Aggregate(seg, raw)
		for i, x := range out {
			require.Greater(t, x.Len(), 0)
			require.GreaterOrEqual(t, x.Confidence, 0.0)
			require.LessOrEqual(t, x.Confidence, 1.0)
			// stitching may bridge a gap of at most stitchGap words
			gap := 0
			for w := x.StartWord; w < x.EndWord; w++ {
				if rawCovered[x.Source.ID][w] {
					gap = 0
					continue
				}
				gap++
				require.LessOrEqual(t, gap, 3)
			}
			for _, y := range out[i+1:] {
				if x.Source.ID != y.Source.ID {
					continue
				}
				shorter := min(x.Len(), y.Len())
				require.LessOrEqual(t, float64(x.Overlap(y))/float64(shorter), 0.5,
					"matches %v and %v overlap too much", span2(x), span2(y))
			}
		}
	}
}
