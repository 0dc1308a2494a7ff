package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

func newTestQueue(t *testing.T) (*TaskQueue, func(score float64, id string)) {
	t.Helper()
	mr, client := setupTestRedis(t)
	q, err := NewTaskQueue(context.Background(), client, "worker-test")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	reschedule := func(score float64, id string) {
		if _, err := mr.ZAdd(scheduledTasks, score, id); err != nil {
			t.Fatalf("failed to reschedule: %v", err)
		}
	}
	return q, reschedule
}

func ingestTask(id string) *domain.Task {
	return domain.NewIngestSourceTask(domain.NewSourceRequest{ID: id, Title: "Title " + id, Text: "some source text"})
}

func TestTaskQueue_GroupCreationIdempotent(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	if _, err := NewTaskQueue(ctx, client, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewTaskQueue(ctx, client, "b"); err != nil {
		t.Fatalf("second queue should reuse the group: %v", err)
	}
}

func TestTaskQueue_EnqueueDequeueAck(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := ingestTask("s1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Errorf("expected 1 pending, got %d", stats.PendingCount)
	}

	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID || got.Status != domain.TaskStatusProcessing || got.Attempts != 1 {
		t.Errorf("unexpected task state: %+v", got)
	}
	if got.SourceRequest().Title != "Title s1" {
		t.Errorf("payload lost: %+v", got.Payload)
	}

	stats, err = q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || stats.ProcessingCount != 1 {
		t.Errorf("expected 0 pending and 1 processing, got %+v", stats)
	}

	if err := q.Ack(ctx, got.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	stats, err = q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 || stats.ProcessingCount != 0 {
		t.Errorf("expected empty queue, got %+v", stats)
	}
}

func TestTaskQueue_DequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	got, err := q.DequeueWithTimeout(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no task, got %+v", got)
	}
}

func TestTaskQueue_NackRetries(t *testing.T) {
	q, reschedule := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, ingestTask("s1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil || got == nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := q.Nack(ctx, got.ID, "embedding provider down"); err != nil {
		t.Fatalf("nack: %v", err)
	}

	// the retry waits out its backoff
	again, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if again != nil {
		t.Fatal("expected retry to be delayed")
	}

	reschedule(0, got.ID)
	again, err = q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if again == nil {
		t.Fatal("expected due retry to be delivered")
	}
	if again.Attempts != 2 || again.Error != "embedding provider down" {
		t.Errorf("unexpected retry state: %+v", again)
	}
}

func TestTaskQueue_NackExhausted(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := ingestTask("s1")
	task.MaxAttempts = 1
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil || got == nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := q.Nack(ctx, got.ID, "bad input"); err != nil {
		t.Fatalf("nack: %v", err)
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.FailedCount != 1 || stats.PendingCount != 0 {
		t.Errorf("expected 1 failed and nothing pending, got %+v", stats)
	}
}

func TestTaskQueue_DelayedEnqueue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	task := ingestTask("s1")
	task.ScheduledFor = time.Now().Add(time.Hour)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 0)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got != nil {
		t.Error("expected delayed task to wait")
	}
}

func TestTaskQueue_AckUnknown(t *testing.T) {
	q, _ := newTestQueue(t)

	err := q.Ack(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
