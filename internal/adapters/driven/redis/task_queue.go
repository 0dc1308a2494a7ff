package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

const (
	taskStream     = "originality:tasks"
	taskGroup      = "originality:workers"
	scheduledTasks = "originality:scheduled"
	failedCounter  = "originality:tasks:failed"
	taskKeyPrefix  = "originality:task:"

	consumerPrefix = "worker-"

	// claimTimeout is how long a delivered task may go unacknowledged
	// before another worker takes it over
	claimTimeout = 5 * time.Minute

	// taskTTL bounds how long task records outlive their processing
	taskTTL = 24 * time.Hour
)

// Verify interface compliance
var _ driven.TaskQueue = (*TaskQueue)(nil)

// TaskQueue implements TaskQueue using Redis Streams with a consumer group.
// Task bodies live in plain keys; the stream carries only IDs. Delayed
// retries wait in a sorted set until due.
type TaskQueue struct {
	client       redis.UniversalClient
	consumerName string
}

// NewTaskQueue creates the consumer group if needed. consumerName should be
// unique per worker instance.
func NewTaskQueue(ctx context.Context, client redis.UniversalClient, consumerName string) (*TaskQueue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		consumerName = consumerPrefix + strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	err := client.XGroupCreateMkStream(ctx, taskStream, taskGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &TaskQueue{client: client, consumerName: consumerName}, nil
}

func (q *TaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
		if task.ScheduledFor.After(time.Now()) {
			pipe.ZAdd(ctx, scheduledTasks, redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
		} else {
			pipe.XAdd(ctx, streamArgs(task))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout waits up to timeout seconds for a task. A timeout of
// zero polls once without blocking. Returns nil, nil when nothing arrives.
func (q *TaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// best effort; a failure only delays retries
	_ = q.promoteScheduled(ctx)

	if task, err := q.claimAbandoned(ctx); err == nil && task != nil {
		return task, nil
	}

	block := time.Duration(timeout) * time.Second
	if timeout <= 0 {
		block = -1
	}
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    taskGroup,
		Consumer: q.consumerName,
		Streams:  []string{taskStream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read task stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.deliver(ctx, streams[0].Messages[0])
}

func (q *TaskQueue) Ack(ctx context.Context, taskID string) error {
	task, msgID, err := q.load(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted()
	data, _ := json.Marshal(task)

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if msgID != "" {
			pipe.XAck(ctx, taskStream, taskGroup, msgID)
			pipe.XDel(ctx, taskStream, msgID)
		}
		pipe.Set(ctx, taskKeyPrefix+taskID, data, taskTTL)
		pipe.Del(ctx, taskKeyPrefix+taskID+":msg")
		return nil
	})
	if err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Nack schedules a retry with backoff, or fails the task when its attempts
// are exhausted
func (q *TaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	task, msgID, err := q.load(ctx, taskID)
	if err != nil {
		return err
	}

	retry := task.CanRetry()
	if retry {
		task.Retry(reason)
	} else {
		task.MarkFailed(reason)
	}
	data, _ := json.Marshal(task)

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if msgID != "" {
			pipe.XAck(ctx, taskStream, taskGroup, msgID)
			pipe.XDel(ctx, taskStream, msgID)
		}
		pipe.Set(ctx, taskKeyPrefix+taskID, data, taskTTL)
		pipe.Del(ctx, taskKeyPrefix+taskID+":msg")
		if retry {
			pipe.ZAdd(ctx, scheduledTasks, redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
		} else {
			pipe.Incr(ctx, failedCounter)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

func (q *TaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	pending, err := q.client.XPending(ctx, taskStream, taskGroup).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pending summary: %w", err)
	}
	if pending != nil {
		stats.ProcessingCount = pending.Count
	}

	length, err := q.client.XLen(ctx, taskStream).Result()
	if err != nil {
		return nil, fmt.Errorf("stream length: %w", err)
	}
	scheduled, err := q.client.ZCard(ctx, scheduledTasks).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduled count: %w", err)
	}
	// delivered entries stay in the stream until acked
	stats.PendingCount = length - stats.ProcessingCount + scheduled

	failed, err := q.client.Get(ctx, failedCounter).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed count: %w", err)
	}
	stats.FailedCount = failed
	return stats, nil
}

func (q *TaskQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared
func (q *TaskQueue) Close() error {
	return nil
}

// deliver marks the task behind msg as processing and remembers the
// message ID for the later Ack or Nack
func (q *TaskQueue) deliver(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, _ := msg.Values["task_id"].(string)
	task, err := q.get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		// body expired or message malformed
		q.client.XAck(ctx, taskStream, taskGroup, msg.ID)
		q.client.XDel(ctx, taskStream, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	data, _ := json.Marshal(task)
	_, err = q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL)
		pipe.Set(ctx, taskKeyPrefix+task.ID+":msg", msg.ID, taskTTL)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark task processing: %w", err)
	}
	return task, nil
}

// load returns a delivered task and its stream message ID
func (q *TaskQueue) load(ctx context.Context, taskID string) (*domain.Task, string, error) {
	task, err := q.get(ctx, taskID)
	if err != nil {
		return nil, "", err
	}
	if task == nil {
		return nil, "", fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	msgID, err := q.client.Get(ctx, taskKeyPrefix+taskID+":msg").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, "", fmt.Errorf("get message id: %w", err)
	}
	return task, msgID, nil
}

func (q *TaskQueue) get(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, nil
	}
	data, err := q.client.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// promoteScheduled moves due delayed tasks onto the stream
func (q *TaskQueue) promoteScheduled(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledTasks, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	for _, id := range due {
		// ZRem decides which worker promotes a task
		removed, err := q.client.ZRem(ctx, scheduledTasks, id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		task, err := q.get(ctx, id)
		if err != nil || task == nil {
			continue
		}
		if err := q.client.XAdd(ctx, streamArgs(task)).Err(); err != nil {
			return err
		}
	}
	return nil
}

// claimAbandoned takes over a task another consumer left unacknowledged
func (q *TaskQueue) claimAbandoned(ctx context.Context) (*domain.Task, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   taskStream,
		Group:    taskGroup,
		Consumer: q.consumerName,
		MinIdle:  claimTimeout,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return q.deliver(ctx, msgs[0])
}

func streamArgs(task *domain.Task) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: taskStream,
		Values: map[string]interface{}{
			"task_id": task.ID,
			"type":    string(task.Type),
		},
	}
}
