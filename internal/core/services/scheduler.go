package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

const schedulerLockName = "scheduler"

// Job is a recurring task the scheduler enqueues for the worker.
type Job struct {
	Name     string
	Interval time.Duration

	// NewTask builds the task for a run starting at now
	NewTask func(now time.Time) *domain.Task
}

// RetentionJob prunes check records older than retention every interval.
func RetentionJob(retention, interval time.Duration) Job {
	return Job{
		Name:     "report-retention",
		Interval: interval,
		NewTask: func(now time.Time) *domain.Task {
			return domain.NewPruneReportsTask(now.Add(-retention))
		},
	}
}

// Scheduler enqueues recurring jobs on the task queue.
// It runs on worker nodes.
//
// For multi-worker deployments, configure a DistributedLock so only one
// instance enqueues per cycle.
type Scheduler struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger
	now       func() time.Time

	// Internal state
	mu       sync.RWMutex
	jobs     []Job
	lastRun  map[string]time.Time
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	// Lock configuration
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	Jobs         []Job
	PollInterval time.Duration // How often to check for due jobs (default: 30s)
	LockTTL      time.Duration // TTL for the distributed lock (default: 60s)
	LockRequired bool          // Skip the cycle when the lock backend errors (always on when Lock is set)
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 60 * time.Second
	}

	return &Scheduler{
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       logger,
		now:          time.Now,
		jobs:         append([]Job(nil), cfg.Jobs...),
		lastRun:      make(map[string]time.Time),
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired || cfg.Lock != nil,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.taskQueue == nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler needs a task queue: %w", domain.ErrInvalidConfig)
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval, "jobs", len(s.jobs))

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name
	}
	return names
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start
	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// checkAndEnqueue enqueues every due job. With a distributed lock
// configured the cycle is skipped unless this instance holds it.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, schedulerLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), schedulerLockName); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	now := s.now()
	for _, job := range s.dueJobs(now) {
		if _, err := s.enqueue(ctx, job, now); err != nil {
			s.logger.Error("failed to enqueue scheduled job", "job", job.Name, "error", err)
		}
	}
}

// dueJobs returns the jobs that never ran or whose interval has elapsed
func (s *Scheduler) dueJobs(now time.Time) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Job
	for _, job := range s.jobs {
		last, ran := s.lastRun[job.Name]
		if !ran || now.Sub(last) >= job.Interval {
			due = append(due, job)
		}
	}
	return due
}

// enqueue submits one run of job and records it on success
func (s *Scheduler) enqueue(ctx context.Context, job Job, now time.Time) (*domain.Task, error) {
	task := job.NewTask(now)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastRun[job.Name] = now
	s.mu.Unlock()

	s.logger.Info("enqueued scheduled job",
		"job", job.Name,
		"task_id", task.ID,
		"task_type", task.Type,
	)
	return task, nil
}

// TriggerNow immediately enqueues the named job (ignoring its schedule).
func (s *Scheduler) TriggerNow(ctx context.Context, name string) (*domain.Task, error) {
	s.mu.RLock()
	var (
		job   Job
		found bool
	)
	for _, j := range s.jobs {
		if j.Name == name {
			job, found = j, true
			break
		}
	}
	s.mu.RUnlock()

	if !found {
		return nil, fmt.Errorf("scheduled job %s: %w", name, domain.ErrNotFound)
	}
	return s.enqueue(ctx, job, s.now())
}
