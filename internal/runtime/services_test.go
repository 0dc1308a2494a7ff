package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// mockEmbeddingService is a mock implementation for testing
type mockEmbeddingService struct {
	healthCheckErr error
	closed         bool
}

func (m *mockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return 384
}

func (m *mockEmbeddingService) Model() string {
	return "test-model"
}

func (m *mockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

func newTestServices() (*Services, *domain.RuntimeConfig) {
	config := domain.NewRuntimeConfig("memory", "memory")
	return NewServices(config), config
}

func TestNewServices(t *testing.T) {
	services, config := newTestServices()

	if services == nil {
		t.Fatal("expected non-nil services")
	}
	if services.Config() != config {
		t.Error("expected config to match")
	}
}

func TestServices_EmbeddingService(t *testing.T) {
	services, config := newTestServices()

	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service initially")
	}
	if config.CanRunSemantic() {
		t.Error("expected semantic layer to be disabled initially")
	}

	mock := &mockEmbeddingService{}
	services.SetEmbeddingService(mock)

	if services.EmbeddingService() == nil {
		t.Error("expected non-nil embedding service after set")
	}
	if !config.CanRunSemantic() {
		t.Error("expected semantic layer to be enabled")
	}
	if got := len(config.EnabledLayers()); got != 3 {
		t.Errorf("expected 3 enabled layers, got %d", got)
	}

	services.SetEmbeddingService(nil)
	if services.EmbeddingService() != nil {
		t.Error("expected nil embedding service after clearing")
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable")
	}
	if !mock.closed {
		t.Error("expected old service to be closed")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	services, _ := newTestServices()
	ctx := context.Background()

	t.Run("successful validation", func(t *testing.T) {
		mock := &mockEmbeddingService{}
		if err := services.ValidateAndSetEmbedding(ctx, mock); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if services.EmbeddingService() == nil {
			t.Error("expected embedding service to be set")
		}
	})

	t.Run("failed validation", func(t *testing.T) {
		current := services.EmbeddingService()
		mock := &mockEmbeddingService{healthCheckErr: errors.New("connection failed")}
		if err := services.ValidateAndSetEmbedding(ctx, mock); err == nil {
			t.Error("expected error")
		}
		if !mock.closed {
			t.Error("expected failed service to be closed")
		}
		if services.EmbeddingService() != current {
			t.Error("expected previous service to be kept")
		}
	})

	t.Run("nil service", func(t *testing.T) {
		if err := services.ValidateAndSetEmbedding(ctx, nil); err != nil {
			t.Errorf("unexpected error for nil service: %v", err)
		}
		if services.EmbeddingService() != nil {
			t.Error("expected embedding service to be cleared")
		}
	})
}

func TestServices_Close(t *testing.T) {
	services, config := newTestServices()

	mock := &mockEmbeddingService{}
	services.SetEmbeddingService(mock)

	if err := services.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !mock.closed {
		t.Error("expected embedding service to be closed")
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable after close")
	}
}

func TestServices_ReplaceService_ClosesOld(t *testing.T) {
	services, _ := newTestServices()

	old := &mockEmbeddingService{}
	replacement := &mockEmbeddingService{}

	services.SetEmbeddingService(old)
	services.SetEmbeddingService(replacement)

	if !old.closed {
		t.Error("expected old service to be closed when replaced")
	}
	if replacement.closed {
		t.Error("expected new service to remain open")
	}
}

func TestServices_SetSameServiceKeepsItOpen(t *testing.T) {
	services, _ := newTestServices()

	mock := &mockEmbeddingService{}
	services.SetEmbeddingService(mock)
	services.SetEmbeddingService(mock)

	if mock.closed {
		t.Error("expected service to remain open when set twice")
	}
}

func TestServices_SemanticStatus(t *testing.T) {
	services, _ := newTestServices()
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	services.now = func() time.Time { return at }

	status := services.SemanticStatus()
	if status.Available || status.Model != "" || status.LastFailureAt != nil {
		t.Errorf("expected an empty status without a provider, got %+v", status)
	}

	services.SetEmbeddingService(&mockEmbeddingService{})
	services.RecordSemanticOutcome(domain.LayerStateFailed, errors.New("rate limited"))
	services.RecordSemanticOutcome(domain.LayerStateTimedOut, nil)
	services.RecordSemanticOutcome(domain.LayerStateSkipped, nil)

	status = services.SemanticStatus()
	if !status.Available || status.Model != "test-model" || status.Dimensions != 384 {
		t.Errorf("unexpected provider fields %+v", status)
	}
	if status.ConsecutiveFailures != 2 {
		t.Errorf("expected 2 failures, got %d", status.ConsecutiveFailures)
	}
	if status.LastError != string(domain.LayerStateTimedOut) {
		t.Errorf("expected the timeout recorded last, got %q", status.LastError)
	}
	if status.LastFailureAt == nil || !status.LastFailureAt.Equal(at) {
		t.Errorf("unexpected failure time %v", status.LastFailureAt)
	}

	services.RecordSemanticOutcome(domain.LayerStateRan, nil)
	if n := services.SemanticStatus().ConsecutiveFailures; n != 0 {
		t.Errorf("a successful run must reset failures, got %d", n)
	}
}

func TestServices_SetEmbeddingServiceClearsFailures(t *testing.T) {
	services, _ := newTestServices()
	services.SetEmbeddingService(&mockEmbeddingService{})
	services.RecordSemanticOutcome(domain.LayerStateFailed, errors.New("down"))

	services.SetEmbeddingService(&mockEmbeddingService{})

	status := services.SemanticStatus()
	if status.ConsecutiveFailures != 0 || status.LastError != "" || status.LastFailureAt != nil {
		t.Errorf("expected a fresh status for a new provider, got %+v", status)
	}
}
