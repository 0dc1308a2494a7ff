package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local DistributedLock with TTL expiry. It coordinates
// goroutines of a single instance only.
type Lock struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLock creates an empty lock table
func NewLock() *Lock {
	return &Lock{locks: make(map[string]time.Time)}
}

func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[name]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[name] = time.Now().Add(ttl)
	return true, nil
}

func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, name)
	return nil
}

func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[name]
	if !held || time.Now().After(expiry) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.locks[name] = time.Now().Add(ttl)
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return nil
}

// IsHeld reports whether the named lock is currently held
func (l *Lock) IsHeld(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, held := l.locks[name]
	return held && time.Now().Before(expiry)
}
