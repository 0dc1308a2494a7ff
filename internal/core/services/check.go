package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-originality/internal/detection"
	"github.com/custodia-labs/sercha-originality/internal/normalisers"
	"github.com/custodia-labs/sercha-originality/internal/runtime"
)

// Ensure checkService implements CheckService
var _ driving.CheckService = (*checkService)(nil)

// checkService orchestrates the detection layers for one document
type checkService struct {
	corpus   driven.CorpusStore
	vectors  driven.VectorIndex
	embedder *detection.Embedder
	indexes  *detection.IndexCache
	services *runtime.Services // Dynamic embedding provider
	formats  driven.NormaliserRegistry
	defaults domain.CheckOptions
	logger   *slog.Logger
}

// NewCheckService creates a new CheckService.
// The embedding provider is read from services on every check, so it can be
// reconfigured at runtime; without one the semantic layer is skipped.
// Typed submissions are converted to plain text through formats.
func NewCheckService(
	corpus driven.CorpusStore,
	vectors driven.VectorIndex,
	embedder *detection.Embedder,
	indexes *detection.IndexCache,
	services *runtime.Services,
	formats driven.NormaliserRegistry,
	defaults domain.CheckOptions,
	logger *slog.Logger,
) driving.CheckService {
	if logger == nil {
		logger = slog.Default()
	}
	return &checkService{
		corpus:   corpus,
		vectors:  vectors,
		embedder: embedder,
		indexes:  indexes,
		services: services,
		formats:  formats,
		defaults: defaults,
		logger:   logger,
	}
}

// layerResult is what one detection layer hands to the join point
type layerResult struct {
	kind    detection.MatcherKind
	matches []domain.Match
	err     error
}

// Check runs every enabled detection layer over the request text
func (s *checkService) Check(ctx context.Context, req domain.CheckRequest) (*domain.PlagiarismReport, error) {
	opts := req.Options.Apply(s.defaults)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	text := normalisers.Normalise(s.formats, req.Text, req.ContentType)
	doc, err := domain.NewDocument(text, req.Language)
	if err != nil {
		return nil, err
	}

	chunker, err := detection.NewChunker(opts.ChunkSize, opts.Stride)
	if err != nil {
		return nil, err
	}
	seg := chunker.Split(doc)
	if seg.WordCount() < opts.MinWords {
		return nil, domain.NewInvalidInput("text", fmt.Sprintf("must contain at least %d words", opts.MinWords))
	}

	snap, err := s.corpus.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorpusUnavailable, err)
	}
	corpus := s.indexes.Get(snap, domain.CorpusParams{
		ShingleSize:       opts.ShingleSize,
		FingerprintWindow: opts.FingerprintWindow,
	})

	report := &domain.PlagiarismReport{
		DocumentID:    doc.ID,
		Language:      doc.Language,
		Status:        domain.ReportStatusComplete,
		Matches:       []domain.Match{},
		Warnings:      []string{},
		Citations:     []domain.CitationSuggestion{},
		CorpusVersion: snap.Version,
	}

	provider := s.services.EmbeddingService()
	registry := detection.NewRegistry(
		detection.NewFingerprintMatcher(opts.ExactThreshold),
		detection.NewShingleMatcher(opts.NearDuplicateThreshold),
	)
	semanticState := domain.LayerStateRan
	switch {
	case opts.SkipSemantic:
		semanticState = domain.LayerStateSkipped
		report.MarkPartial("semantic layer skipped: disabled for this check")
	case provider == nil:
		semanticState = domain.LayerStateSkipped
		report.MarkPartial("semantic layer skipped: no embedding provider configured")
	default:
		registry.Register(detection.NewSemanticMatcher(s.embedder, provider, s.vectors, opts.ParaphraseThreshold, opts.TopK))
	}

	// the semantic layer gets its own deadline; the lexical layers only stop
	// when the caller's context does
	semCtx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	results, states, err := s.runLayers(ctx, semCtx, registry, seg, corpus)
	if err != nil {
		return nil, err
	}
	if semanticState == domain.LayerStateRan {
		semanticState = states[detection.KindSemantic]
		s.services.RecordSemanticOutcome(semanticState, layerError(results, detection.KindSemantic))
	}

	var raw []domain.Match
	counts := make(map[detection.MatcherKind]int)
	for _, r := range results {
		if r.err != nil {
			continue
		}
		raw = append(raw, r.matches...)
		counts[r.kind] = len(r.matches)
	}

	switch semanticState {
	case domain.LayerStateTimedOut:
		report.MarkPartial(fmt.Sprintf("semantic layer timed out after %s; results are lexical only", opts.Timeout()))
	case domain.LayerStateFailed:
		report.MarkPartial("semantic layer failed: embedding provider unavailable; results are lexical only")
	}

	report.Layers = []domain.LayerStatus{
		{Layer: domain.LayerFingerprint, State: domain.LayerStateRan, Matches: counts[detection.KindFingerprint]},
		{Layer: domain.LayerNGram, State: domain.LayerStateRan, Matches: counts[detection.KindNGram]},
		{Layer: domain.LayerSemantic, State: semanticState, Matches: counts[detection.KindSemantic]},
	}

	matches := detection.NewAggregator(opts.MaxOverlapFraction, opts.StitchGap).Aggregate(seg, raw)
	score, stats := detection.NewScorer(opts.PenaltyScale, opts.ConcentrationSpan).Score(matches, seg.WordCount())
	if matches != nil {
		report.Matches = matches
	}
	report.OriginalityScore = score
	report.Statistics = stats
	report.PlagiarismDetected = score < opts.PlagiarismThreshold

	report.Confidence = domain.ConfidenceMedium
	if semanticState == domain.LayerStateRan {
		report.Confidence = domain.ConfidenceHigh

		suggester := detection.NewCitationSuggester(s.embedder, provider, s.vectors,
			opts.CitationLowThreshold, opts.ParaphraseThreshold, opts.TopK, opts.ClaimsOnly)
		citations, err := suggester.Suggest(semCtx, seg, corpus, matches)
		if err != nil {
			s.logger.Warn("citation suggestion failed", "document_id", doc.ID, "error", err)
			report.Warnings = append(report.Warnings, "citation suggestions unavailable")
		} else if citations != nil {
			report.Citations = citations
		}
	}

	s.logger.Info("check completed",
		"document_id", doc.ID,
		"words", seg.WordCount(),
		"chunks", len(seg.Chunks),
		"corpus_version", snap.Version,
		"matches", len(report.Matches),
		"score", report.OriginalityScore,
		"status", report.Status,
	)
	return report, nil
}

// SuggestCitations runs a check restricted to claim-like passages and
// returns its citation suggestions
func (s *checkService) SuggestCitations(ctx context.Context, req domain.CheckRequest) ([]domain.CitationSuggestion, error) {
	var overrides domain.CheckOverrides
	if req.Options != nil {
		overrides = *req.Options
	}
	overrides.ClaimsOnly = domain.Opt(true)
	req.Options = &overrides

	report, err := s.Check(ctx, req)
	if err != nil {
		return nil, err
	}
	if report.Confidence != domain.ConfidenceHigh {
		return nil, fmt.Errorf("citation suggestions need the semantic layer: %w", domain.ErrServiceUnavailable)
	}
	return report.Citations, nil
}

// layerError returns the error kind's layer ended with, if any
func layerError(results []layerResult, kind detection.MatcherKind) error {
	for _, r := range results {
		if r.kind == kind {
			return r.err
		}
	}
	return nil
}

// runLayers starts every registered matcher and joins them. Lexical layer
// errors are fatal; a degradable layer that fails or misses its deadline is
// reported in the returned states and its results are dropped.
func (s *checkService) runLayers(
	ctx, semCtx context.Context,
	registry *detection.Registry,
	seg *detection.Segments,
	corpus *detection.Corpus,
) ([]layerResult, map[detection.MatcherKind]domain.LayerState, error) {
	matchers := registry.All()
	out := make(chan layerResult, len(matchers))
	pending := make(map[detection.MatcherKind]bool, len(matchers))

	for _, m := range matchers {
		pending[m.Kind()] = true
		layerCtx := ctx
		if m.Kind().Degradable() {
			layerCtx = semCtx
		}
		go func() {
			matches, err := m.Match(layerCtx, seg, corpus)
			out <- layerResult{kind: m.Kind(), matches: matches, err: err}
		}()
	}

	states := make(map[detection.MatcherKind]domain.LayerState, len(matchers))
	var results []layerResult
	deadline := semCtx.Done()
	for len(pending) > 0 {
		select {
		case r := <-out:
			if !pending[r.kind] {
				continue
			}
			delete(pending, r.kind)
			if r.err == nil {
				states[r.kind] = domain.LayerStateRan
				results = append(results, r)
				continue
			}
			if !r.kind.Degradable() {
				return nil, nil, fmt.Errorf("%s layer: %w", r.kind, r.err)
			}
			states[r.kind] = degradedState(semCtx, r.err)
			s.logger.Warn("detection layer degraded", "layer", r.kind.String(), "state", states[r.kind], "error", r.err)
			results = append(results, r)

		case <-deadline:
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			deadline = nil
			// stop waiting for degradable layers; their late results are dropped
			for kind := range pending {
				if kind.Degradable() {
					delete(pending, kind)
					states[kind] = domain.LayerStateTimedOut
					s.logger.Warn("detection layer timed out", "layer", kind.String())
				}
			}
		}
	}
	return results, states, nil
}

// degradedState classifies the failure of a degradable layer
func degradedState(semCtx context.Context, err error) domain.LayerState {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(semCtx.Err(), context.DeadlineExceeded) {
		return domain.LayerStateTimedOut
	}
	return domain.LayerStateFailed
}
