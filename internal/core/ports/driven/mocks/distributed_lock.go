package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockLock is an in-memory DistributedLock that records every call.
// Set AcquireErr or PingErr to simulate a failing backend.
type MockLock struct {
	mu     sync.Mutex
	expiry map[string]time.Time
	calls  []string
	now    func() time.Time

	AcquireErr error
	PingErr    error
}

// NewMockLock creates an unlocked MockLock.
func NewMockLock() *MockLock {
	return &MockLock{
		expiry: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *MockLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "acquire:"+name)

	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	if exp, ok := m.expiry[name]; ok && m.now().Before(exp) {
		return false, nil
	}
	m.expiry[name] = m.now().Add(ttl)
	return true, nil
}

func (m *MockLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "release:"+name)
	delete(m.expiry, name)
	return nil
}

func (m *MockLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "extend:"+name)

	exp, ok := m.expiry[name]
	if !ok || !m.now().Before(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.expiry[name] = m.now().Add(ttl)
	return nil
}

func (m *MockLock) Ping(ctx context.Context) error {
	return m.PingErr
}

// Hold marks name as held by another instance for ttl.
func (m *MockLock) Hold(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiry[name] = m.now().Add(ttl)
}

// Calls returns the recorded calls as "op:name" strings, oldest first.
func (m *MockLock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Count returns how many times op ("acquire", "release", "extend") was
// called for name.
func (m *MockLock) Count(op, name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == op+":"+name {
			n++
		}
	}
	return n
}
