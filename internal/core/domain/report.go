package domain

import (
	"time"

	"github.com/google/uuid"
)

// Layer names a matching layer of the detection pipeline
type Layer string

const (
	LayerFingerprint Layer = "fingerprint"
	LayerNGram       Layer = "ngram"
	LayerSemantic    Layer = "semantic"
)

// LayerState is the outcome of one layer for one check
type LayerState string

const (
	LayerStateRan      LayerState = "ran"
	LayerStateSkipped  LayerState = "skipped"
	LayerStateTimedOut LayerState = "timed_out"
	LayerStateFailed   LayerState = "failed"
)

// LayerStatus records what a layer did during a check
type LayerStatus struct {
	Layer   Layer      `json:"layer"`
	State   LayerState `json:"state"`
	Matches int        `json:"matches"`
}

// ReportStatus is complete when every layer ran and partial otherwise
type ReportStatus string

const (
	ReportStatusComplete ReportStatus = "complete"
	ReportStatusPartial  ReportStatus = "partial"
)

// ScoreConfidence qualifies how much of the pipeline backed a score
type ScoreConfidence string

const (
	ConfidenceHigh   ScoreConfidence = "high"
	ConfidenceMedium ScoreConfidence = "medium"
)

// ReportStatistics summarises the matches of a report
type ReportStatistics struct {
	TotalWords        int               `json:"total_words"`
	MatchedWords      int               `json:"matched_words"`
	MatchPercentage   float64           `json:"match_percentage"`
	UniqueSources     int               `json:"unique_sources"`
	MatchesByType     map[MatchType]int `json:"matches_by_type"`
	HighestSimilarity float64           `json:"highest_similarity"`
	AverageSimilarity float64           `json:"average_similarity"`
}

// CitationSuggestion flags a passage that resembles a source below the
// paraphrase threshold and likely deserves a citation.
type CitationSuggestion struct {
	ChunkID    string    `json:"chunk_id"`
	Source     SourceRef `json:"source"`
	Similarity float64   `json:"similarity"`
	Claim      string    `json:"claim,omitempty"`
	ChunkText  string    `json:"chunk_text"`
	StartByte  int       `json:"start_byte"`
	EndByte    int       `json:"end_byte"`
}

// PlagiarismReport is the result of checking one document against one
// corpus snapshot. Identical inputs produce identical reports.
type PlagiarismReport struct {
	DocumentID         string               `json:"document_id"`
	Language           string               `json:"language"`
	OriginalityScore   float64              `json:"originality_score"`
	PlagiarismDetected bool                 `json:"plagiarism_detected"`
	Matches            []Match              `json:"matches"`
	Confidence         ScoreConfidence      `json:"confidence"`
	Status             ReportStatus         `json:"status"`
	Degraded           bool                 `json:"degraded"`
	Warnings           []string             `json:"warnings"`
	Layers             []LayerStatus        `json:"layers"`
	Statistics         ReportStatistics     `json:"statistics"`
	Citations          []CitationSuggestion `json:"citations"`
	CorpusVersion      int64                `json:"corpus_version"`
}

// MarkPartial records a warning and flags the report as degraded
func (r *PlagiarismReport) MarkPartial(warning string) {
	r.Warnings = append(r.Warnings, warning)
	r.Degraded = true
	r.Status = ReportStatusPartial
}

// CheckRequest is the input of a check or citation suggestion call
type CheckRequest struct {
	Text     string          `json:"text"`
	Language string          `json:"language,omitempty"`
	Options  *CheckOverrides `json:"options,omitempty"`
	OwnerID  string          `json:"-"`

	// ContentType names the markup of Text (text/html, text/markdown).
	// Empty means plain text, analysed as submitted.
	ContentType string `json:"content_type,omitempty"`
}

// CheckRecord is a persisted report with its owner
type CheckRecord struct {
	ID         string            `json:"id"`
	OwnerID    string            `json:"owner_id"`
	Report     *PlagiarismReport `json:"report"`
	TextLength int               `json:"text_length"`
	WordCount  int               `json:"word_count"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CheckSummary is the history view of a CheckRecord
type CheckSummary struct {
	ID                 string    `json:"id"`
	DocumentID         string    `json:"document_id"`
	OriginalityScore   float64   `json:"originality_score"`
	PlagiarismDetected bool      `json:"plagiarism_detected"`
	MatchCount         int       `json:"match_count"`
	Degraded           bool      `json:"degraded"`
	WordCount          int       `json:"word_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewCheckRecord wraps a report for persistence
func NewCheckRecord(ownerID string, report *PlagiarismReport, textLength int) *CheckRecord {
	return &CheckRecord{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Report:     report,
		TextLength: textLength,
		WordCount:  report.Statistics.TotalWords,
		CreatedAt:  time.Now().UTC(),
	}
}

// Summary returns the history view of the record
func (c *CheckRecord) Summary() CheckSummary {
	return CheckSummary{
		ID:                 c.ID,
		DocumentID:         c.Report.DocumentID,
		OriginalityScore:   c.Report.OriginalityScore,
		PlagiarismDetected: c.Report.PlagiarismDetected,
		MatchCount:         len(c.Report.Matches),
		Degraded:           c.Report.Degraded,
		WordCount:          c.WordCount,
		CreatedAt:          c.CreatedAt,
	}
}
