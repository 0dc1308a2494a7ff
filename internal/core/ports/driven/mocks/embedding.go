package mocks

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

// MockEmbeddingService is a deterministic EmbeddingService for testing.
// Every distinct text gets its own basis vector, so unrelated texts have
// cosine similarity 0. Tests place texts at chosen vectors with Register to
// model paraphrases.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	registered map[string][]float32
	assigned   map[string]int
	next       int

	failAll error
	delay   time.Duration

	// Calls records the batch sizes of every Embed call
	Calls []int
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 256,
		model:      "mock-embedding-model",
		registered: make(map[string][]float32),
		assigned:   make(map[string]int),
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	delay := m.delay
	m.Calls = append(m.Calls, len(texts))
	if m.failAll != nil {
		err := m.failAll
		m.mu.Unlock()
		return nil, err
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := m.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failAll
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// vectorFor returns the registered vector or the text's own basis vector
func (m *MockEmbeddingService) vectorFor(text string) []float32 {
	key := strings.TrimSpace(text)
	if vec, ok := m.registered[key]; ok {
		return append([]float32(nil), vec...)
	}
	idx, ok := m.assigned[key]
	if !ok {
		idx = m.next % m.dimensions
		m.assigned[key] = idx
		m.next++
	}
	vec := make([]float32, m.dimensions)
	vec[idx] = 1
	return vec
}

// Helper methods for testing

// Register fixes the vector returned for text
func (m *MockEmbeddingService) Register(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[strings.TrimSpace(text)] = vec
}

// Basis returns the unit vector along axis i. Unregistered texts are
// assigned axes counting up from 0, so tests register on high axes.
func (m *MockEmbeddingService) Basis(i int) []float32 {
	vec := make([]float32, m.dimensions)
	vec[i%m.dimensions] = 1
	return vec
}

// Blend returns a unit vector whose cosine with Basis(i) is cos, the rest of
// its weight lying along axis j
func (m *MockEmbeddingService) Blend(i, j int, cos float64) []float32 {
	vec := make([]float32, m.dimensions)
	vec[i%m.dimensions] = float32(cos)
	vec[j%m.dimensions] = float32(math.Sqrt(1 - cos*cos))
	return vec
}

// SetFailAll makes every call fail with err until reset with nil
func (m *MockEmbeddingService) SetFailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// SetDelay makes every Embed call wait d or until its context is done
func (m *MockEmbeddingService) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// CallCount returns the number of Embed calls so far
func (m *MockEmbeddingService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
