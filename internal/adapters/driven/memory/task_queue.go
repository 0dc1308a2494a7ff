package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*TaskQueue)(nil)

// TaskQueue is a buffered in-process queue
type TaskQueue struct {
	mu         sync.Mutex
	ready      chan *domain.Task
	processing map[string]*domain.Task
	failed     int64
	closed     bool
}

// NewTaskQueue creates a queue holding up to capacity pending tasks
func NewTaskQueue(capacity int) *TaskQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &TaskQueue{
		ready:      make(chan *domain.Task, capacity),
		processing: make(map[string]*domain.Task),
	}
}

func (q *TaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return fmt.Errorf("queue closed")
	}

	select {
	case q.ready <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *TaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	timer := time.NewTimer(time.Duration(timeout) * time.Second)
	defer timer.Stop()

	for {
		select {
		case task := <-q.ready:
			if wait := time.Until(task.ScheduledFor); wait > 0 {
				// not due yet: requeue and keep waiting
				go q.requeueAfter(task, wait)
				continue
			}
			q.mu.Lock()
			task.MarkProcessing()
			q.processing[task.ID] = task
			q.mu.Unlock()
			return task, nil
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *TaskQueue) requeueAfter(task *domain.Task, wait time.Duration) {
	time.Sleep(wait)
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if !closed {
		q.ready <- task
	}
}

func (q *TaskQueue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.processing[taskID]; !ok {
		return domain.ErrNotFound
	}
	delete(q.processing, taskID)
	return nil
}

func (q *TaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	task, ok := q.processing[taskID]
	if !ok {
		q.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(q.processing, taskID)

	if !task.CanRetry() {
		task.MarkFailed(reason)
		q.failed++
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	task.Retry(reason)
	return q.Enqueue(ctx, task)
}

func (q *TaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return &driven.QueueStats{
		PendingCount:    int64(len(q.ready)),
		ProcessingCount: int64(len(q.processing)),
		FailedCount:     q.failed,
	}, nil
}

func (q *TaskQueue) Ping(ctx context.Context) error {
	return nil
}

func (q *TaskQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
