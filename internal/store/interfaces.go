package store

import (
	"context"
	"encoding/json"
	"time"

	"veracity/internal/tasks"
)

// JobStatus is what the queue knows about one analysis job. Result holds
// the assessment JSON once the job has completed.
type JobStatus struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	State       string          `json:"state"`
	Retried     int             `json:"retried"`
	LastError   string          `json:"last_error,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// JobClient enqueues analysis jobs and reports on them.
type JobClient interface {
	EnqueueAnalysis(ctx context.Context, p tasks.AnalysisPayload) (*JobStatus, error)
	GetJob(ctx context.Context, id string) (*JobStatus, error)
	Ping(ctx context.Context) error
	Close() error
}
