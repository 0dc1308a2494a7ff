package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Services holds the embedding provider the semantic layer uses and what
// recent checks observed about it. The provider can be replaced while
// checks are in flight; each check reads it once.
type Services struct {
	mu     sync.RWMutex
	config *domain.RuntimeConfig
	now    func() time.Time

	embeddingService driven.EmbeddingService

	// semantic layer outcomes since the provider was set
	failures    int
	lastError   string
	lastFailure time.Time
}

// NewServices creates a Services registry without a provider
func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{
		config: config,
		now:    time.Now,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// EmbeddingService returns the current provider, or nil
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embeddingService
}

// SetEmbeddingService swaps the provider, closing the previous one, and
// clears the recorded failures.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil && s.embeddingService != svc {
		_ = s.embeddingService.Close()
	}

	s.embeddingService = svc
	s.failures = 0
	s.lastError = ""
	s.lastFailure = time.Time{}
	s.config.SetEmbeddingAvailable(svc != nil)
}

// ValidateAndSetEmbedding installs svc after a successful health check.
// A failing provider is closed and the current one is kept.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// RecordSemanticOutcome notes how the semantic layer ended for one check.
// Skipped layers say nothing about the provider and are ignored.
func (s *Services) RecordSemanticOutcome(state domain.LayerState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch state {
	case domain.LayerStateRan:
		s.failures = 0
	case domain.LayerStateFailed, domain.LayerStateTimedOut:
		s.failures++
		s.lastFailure = s.now()
		s.lastError = string(state)
		if err != nil {
			s.lastError = err.Error()
		}
	}
}

// SemanticStatus reports the provider and its recent failures
func (s *Services) SemanticStatus() domain.SemanticStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.SemanticStatus{
		Available:           s.embeddingService != nil,
		ConsecutiveFailures: s.failures,
		LastError:           s.lastError,
	}
	if s.embeddingService != nil {
		status.Model = s.embeddingService.Model()
		status.Dimensions = s.embeddingService.Dimensions()
	}
	if !s.lastFailure.IsZero() {
		at := s.lastFailure
		status.LastFailureAt = &at
	}
	return status
}

// Close shuts down the provider
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embeddingService != nil {
		_ = s.embeddingService.Close()
		s.embeddingService = nil
	}
	s.config.SetEmbeddingAvailable(false)
	return nil
}
