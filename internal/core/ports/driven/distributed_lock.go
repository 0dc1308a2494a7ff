package driven

import (
	"context"
	"time"
)

// DistributedLock serialises work across instances: corpus ingestion, so
// versions become visible in order, and the retention scheduler cycle.
type DistributedLock interface {
	// Acquire takes the named lock for at most ttl. It reports false without
	// error when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops the lock. Releasing a lock that expired or is held
	// elsewhere is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a lock this instance holds.
	// Backends without expiry (postgres advisory locks) only check ownership.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	Ping(ctx context.Context) error
}
