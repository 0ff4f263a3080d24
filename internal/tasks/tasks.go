package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"veracity/internal/verification"
)

// Task types and queues used with Asynq.
const (
	// TypeAnalyzeSubmission classifies and scores one submission.
	TypeAnalyzeSubmission = "analysis:submission"

	// QueueAnalysis is the queue analysis tasks go to when configured.
	QueueAnalysis = "analysis"
	// QueueDefault is used when the analysis queue is not configured.
	QueueDefault = "default"
)

// AnalysisPayload is the body of an analysis:submission task.
type AnalysisPayload struct {
	RequestID     string                  `json:"request_id"`
	Submission    verification.Submission `json:"submission"`
	Mode          string                  `json:"mode,omitempty"`
	FetchMetadata bool                    `json:"fetch_metadata"`
}

// NewAnalysisTask encodes p as an Asynq task.
func NewAnalysisTask(p AnalysisPayload, opts ...asynq.Option) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis payload: %w", err)
	}
	return asynq.NewTask(TypeAnalyzeSubmission, b, opts...), nil
}

// ParseAnalysisPayload decodes the task body.
func ParseAnalysisPayload(t *asynq.Task) (AnalysisPayload, error) {
	var p AnalysisPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to decode %s payload: %w", t.Type(), err)
	}
	return p, nil
}
