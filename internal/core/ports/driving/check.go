package driving

import (
	"context"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// CheckService runs plagiarism checks against the reference corpus
type CheckService interface {
	// Check runs every enabled detection layer over the request text and
	// returns the originality report. A semantic layer failure downgrades
	// the report to partial instead of failing the check.
	Check(ctx context.Context, req domain.CheckRequest) (*domain.PlagiarismReport, error)

	// SuggestCitations returns sources the text resembles without copying,
	// restricted to passages that read as claims
	SuggestCitations(ctx context.Context, req domain.CheckRequest) ([]domain.CitationSuggestion, error)
}
