package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task
type TaskType string

const (
	// TaskTypeIngestSource adds one source to the corpus
	TaskTypeIngestSource TaskType = "ingest_source"

	// TaskTypePruneReports deletes check records past the retention window
	TaskTypePruneReports TaskType = "prune_reports"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers
type Task struct {
	ID   string   `json:"id"`
	Type TaskType `json:"type"`

	// Payload contains task-specific data
	// For ingest_source: {"source_id", "title", "url", "text", "content_type"}
	// For prune_reports: {"cutoff"} as RFC 3339
	Payload map[string]string `json:"payload"`

	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Error       string     `json:"error,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestSourceTask creates a task that adds req to the corpus
func NewIngestSourceTask(req NewSourceRequest) *Task {
	return NewTask(TaskTypeIngestSource, map[string]string{
		"source_id":    req.ID,
		"title":        req.Title,
		"url":          req.URL,
		"text":         req.Text,
		"content_type": req.ContentType,
	})
}

// SourceRequest rebuilds the ingest request from the payload
func (t *Task) SourceRequest() NewSourceRequest {
	if t.Payload == nil {
		return NewSourceRequest{}
	}
	return NewSourceRequest{
		ID:          t.Payload["source_id"],
		Title:       t.Payload["title"],
		URL:         t.Payload["url"],
		Text:        t.Payload["text"],
		ContentType: t.Payload["content_type"],
	}
}

// NewPruneReportsTask creates a task that deletes check records created
// before cutoff
func NewPruneReportsTask(cutoff time.Time) *Task {
	return NewTask(TaskTypePruneReports, map[string]string{
		"cutoff": cutoff.UTC().Format(time.RFC3339Nano),
	})
}

// PruneCutoff reads the cutoff of a prune_reports task
func (t *Task) PruneCutoff() (time.Time, error) {
	raw := t.Payload["cutoff"]
	if raw == "" {
		return time.Time{}, NewInvalidInput("cutoff", "missing from task payload")
	}
	cutoff, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, NewInvalidInput("cutoff", err.Error())
	}
	return cutoff, nil
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing updates the task to processing state
func (t *Task) MarkProcessing() {
	t.Status = TaskStatusProcessing
	t.UpdatedAt = time.Now()
	t.Attempts++
}

// MarkCompleted updates the task to completed state
func (t *Task) MarkCompleted() {
	t.Status = TaskStatusCompleted
	t.UpdatedAt = time.Now()
	t.Error = ""
}

// MarkFailed updates the task to failed state
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry resets the task for retry with exponential backoff
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	// 1s, 2s, 4s, ... capped at 5 minutes
	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}
