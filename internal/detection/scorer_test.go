package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

func TestScorer_NoMatches(t *testing.T) {
	score, stats := NewScorer(20, 40).Score(nil, 100)
	assert.Equal(t, 100.0, score)
	assert.Equal(t, 100, stats.TotalWords)
	assert.Zero(t, stats.MatchedWords)
	assert.Empty(t, stats.MatchesByType)
}

func TestScorer_VerbatimSentence(t *testing.T) {
	matches := []domain.Match{rawMatch("src", domain.MatchTypeExact, 45, 65, 1, 1)}

	// 80 for coverage, minus 20 * 1.0 * 0.2 * 0.5
	score, stats := NewScorer(20, 40).Score(matches, 100)
	assert.Equal(t, 78.0, score)
	assert.Equal(t, 20, stats.MatchedWords)
	assert.Equal(t, 20.0, stats.MatchPercentage)
}

func TestScorer_TypeSeverity(t *testing.T) {
	s := NewScorer(20, 40)
	exact, _ := s.Score([]domain.Match{rawMatch("src", domain.MatchTypeExact, 0, 40, 1, 1)}, 100)
	near, _ := s.Score([]domain.Match{rawMatch("src", domain.MatchTypeNearDuplicate, 0, 40, 0.8, 0.8)}, 100)
	para, _ := s.Score([]domain.Match{rawMatch("src", domain.MatchTypeParaphrase, 0, 40, 0.8, 0.6)}, 100)

	assert.Equal(t, 52.0, exact)
	assert.Equal(t, 55.2, near)
	assert.Equal(t, 58.0, para)
}

func TestScorer_ConcentrationPenalisesLongRuns(t *testing.T) {
	s := NewScorer(20, 40)
	one, _ := s.Score([]domain.Match{rawMatch("src", domain.MatchTypeExact, 0, 40, 1, 1)}, 200)
	scattered, _ := s.Score([]domain.Match{
		rawMatch("src", domain.MatchTypeExact, 0, 10, 1, 1),
		rawMatch("src", domain.MatchTypeExact, 50, 60, 1, 1),
		rawMatch("src", domain.MatchTypeExact, 100, 110, 1, 1),
		rawMatch("src", domain.MatchTypeExact, 150, 160, 1, 1),
	}, 200)
	assert.Less(t, one, scattered)
}

func TestScorer_Bounds(t *testing.T) {
	s := NewScorer(20, 40)

	full, _ := s.Score([]domain.Match{rawMatch("src", domain.MatchTypeExact, 0, 100, 1, 1)}, 100)
	assert.Equal(t, 0.0, full)

	tiny, _ := s.Score([]domain.Match{rawMatch("src", domain.MatchTypeParaphrase, 0, 1, 0.76, 0.5)}, 100000)
	assert.Equal(t, 99.99, tiny)
}

func TestStatistics(t *testing.T) {
	matches := []domain.Match{
		rawMatch("src-a", domain.MatchTypeExact, 0, 20, 1, 1),
		rawMatch("src-a", domain.MatchTypeParaphrase, 15, 30, 0.8, 0.6),
		rawMatch("src-b", domain.MatchTypeNearDuplicate, 50, 60, 0.7, 0.7),
	}

	stats := Statistics(matches, 100)
	assert.Equal(t, 40, stats.MatchedWords)
	assert.Equal(t, 40.0, stats.MatchPercentage)
	assert.Equal(t, 2, stats.UniqueSources)
	assert.Equal(t, 1.0, stats.HighestSimilarity)
	assert.InDelta(t, 0.8333, stats.AverageSimilarity, 1e-9)
	assert.Equal(t, map[domain.MatchType]int{
		domain.MatchTypeExact:         1,
		domain.MatchTypeNearDuplicate: 1,
		domain.MatchTypeParaphrase:    1,
	}, stats.MatchesByType)
}
