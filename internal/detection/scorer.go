package detection

import (
	"math"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// maxScoreWithMatches caps the score of any document with a surviving match,
// so 100 is reserved for documents with none
const maxScoreWithMatches = 99.99

// typeWeights sets how severely each match type is penalised per word.
// Concentrated verbatim copying weighs more than dispersed paraphrase.
var typeWeights = map[domain.MatchType]float64{
	domain.MatchTypeExact:         1.0,
	domain.MatchTypeNearDuplicate: 0.6,
	domain.MatchTypeParaphrase:    0.25,
}

// Scorer turns aggregated matches into a bounded originality score
type Scorer struct {
	penaltyScale      float64
	concentrationSpan int
}

// NewScorer creates a scorer. The penalty of a match grows with its share of
// the document and with its length up to concentrationSpan words.
func NewScorer(penaltyScale float64, concentrationSpan int) *Scorer {
	return &Scorer{penaltyScale: penaltyScale, concentrationSpan: max(concentrationSpan, 1)}
}

// Score computes the originality score in [0, 100] and the match
// statistics. totalWords must be positive.
func (s *Scorer) Score(matches []domain.Match, totalWords int) (float64, domain.ReportStatistics) {
	stats := Statistics(matches, totalWords)
	if len(matches) == 0 {
		return 100, stats
	}

	total := float64(totalWords)
	base := 100 * (1 - float64(stats.MatchedWords)/total)

	var penalty float64
	for _, m := range matches {
		length := float64(m.Len())
		concentration := math.Min(1, length/float64(s.concentrationSpan))
		penalty += typeWeights[m.MatchType] * (length / total) * concentration
	}
	penalty *= s.penaltyScale

	score := round2(clamp(base-penalty, 0, 100))
	if score > maxScoreWithMatches {
		score = maxScoreWithMatches
	}
	return score, stats
}

// Statistics summarises matches against a document of totalWords words.
// Words covered by several matches count once.
func Statistics(matches []domain.Match, totalWords int) domain.ReportStatistics {
	stats := domain.ReportStatistics{
		TotalWords:    totalWords,
		MatchesByType: make(map[domain.MatchType]int),
	}
	if len(matches) == 0 || totalWords <= 0 {
		return stats
	}

	covered := make([]bool, totalWords)
	sources := make(map[string]struct{})
	var simSum float64
	for _, m := range matches {
		for i := max(m.StartWord, 0); i < min(m.EndWord, totalWords); i++ {
			covered[i] = true
		}
		sources[m.Source.ID] = struct{}{}
		stats.MatchesByType[m.MatchType]++
		stats.HighestSimilarity = max(stats.HighestSimilarity, m.Similarity)
		simSum += m.Similarity
	}
	for _, c := range covered {
		if c {
			stats.MatchedWords++
		}
	}

	stats.UniqueSources = len(sources)
	stats.MatchPercentage = round2(100 * float64(stats.MatchedWords) / float64(totalWords))
	stats.AverageSimilarity = math.Round(simSum/float64(len(matches))*10000) / 10000
	return stats
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
