package domain

// MatchType classifies how a document span overlaps a source
type MatchType string

const (
	// MatchTypeExact is a verbatim copy found by the fingerprint layer
	MatchTypeExact MatchType = "exact"
	// MatchTypeNearDuplicate is a lightly edited copy found by the shingle layer
	MatchTypeNearDuplicate MatchType = "near_duplicate"
	// MatchTypeParaphrase is a reworded passage found by the semantic layer
	MatchTypeParaphrase MatchType = "paraphrase"
)

// Precedence orders match types when overlapping findings conflict.
// Higher wins.
func (t MatchType) Precedence() int {
	switch t {
	case MatchTypeExact:
		return 3
	case MatchTypeNearDuplicate:
		return 2
	case MatchTypeParaphrase:
		return 1
	default:
		return 0
	}
}

// IsValid returns true if the match type is known
func (t MatchType) IsValid() bool {
	return t.Precedence() > 0
}

// Match is a span of the document found to overlap a source.
// Word and byte ranges are half-open and refer to the whole document.
type Match struct {
	Source      SourceRef `json:"source"`
	Similarity  float64   `json:"similarity"`
	MatchType   MatchType `json:"match_type"`
	MatchedText string    `json:"matched_text"`
	Confidence  float64   `json:"confidence"`
	ChunkID     string    `json:"chunk_id"`
	StartWord   int       `json:"start_word"`
	EndWord     int       `json:"end_word"`
	StartByte   int       `json:"start_byte"`
	EndByte     int       `json:"end_byte"`
	Layer       Layer     `json:"layer"`
}

// Len returns the span length in words
func (m Match) Len() int {
	return m.EndWord - m.StartWord
}

// Overlap returns the number of words shared by the spans of m and o
func (m Match) Overlap(o Match) int {
	start := max(m.StartWord, o.StartWord)
	end := min(m.EndWord, o.EndWord)
	if end <= start {
		return 0
	}
	return end - start
}

// Clamp01 bounds v to the closed interval [0, 1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
