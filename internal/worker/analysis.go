package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"veracity/internal/consensus"
	"veracity/internal/engine"
	"veracity/internal/tasks"
	"veracity/internal/verification"
	"veracity/pkg/classifier"
)

// Assessor is the part of the engine the worker needs.
type Assessor interface {
	Assess(ctx context.Context, sub verification.Submission, mode consensus.Mode, fetchMetadata bool) (engine.Assessment, error)
}

// AnalysisDeps holds what HandleAnalysisJob needs.
type AnalysisDeps struct {
	Assessor Assessor
}

// RegisterHandlers wires every task type this worker serves.
func RegisterHandlers(mux *asynq.ServeMux, deps AnalysisDeps) {
	log.Infof("Registering %s handler", tasks.TypeAnalyzeSubmission)
	mux.HandleFunc(tasks.TypeAnalyzeSubmission, HandleAnalysisJob(deps))
}

// HandleAnalysisJob assesses one submission and writes the assessment JSON
// as the task result. Bad payloads are not retried. When every provider is
// down the job is retried, and on its last attempt the local fallback
// assessment is stored instead of failing.
func HandleAnalysisJob(deps AnalysisDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		p, err := tasks.ParseAnalysisPayload(t)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger := log.WithFields(log.Fields{"request_id": p.RequestID, "type": t.Type()})

		var mode consensus.Mode
		if p.Mode != "" {
			if mode, err = consensus.ParseMode(p.Mode); err != nil {
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
		}

		a, err := deps.Assessor.Assess(ctx, p.Submission, mode, p.FetchMetadata)
		switch {
		case err == nil:
		case errors.Is(err, consensus.ErrAllProvidersFailed):
			if !lastAttempt(ctx) {
				logger.Warnf("All providers failed, will retry: %v", err)
				return err
			}
			logger.Warn("All providers failed on final attempt, storing local fallback")
		case errors.Is(err, classifier.ErrInvalidInput), errors.Is(err, verification.ErrInvalidSubmission):
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		default:
			return fmt.Errorf("assess request %s: %w", p.RequestID, err)
		}

		body, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal assessment: %w", err)
		}
		if w := t.ResultWriter(); w != nil {
			if _, err := w.Write(body); err != nil {
				return fmt.Errorf("write result for %s: %w", p.RequestID, err)
			}
		}

		logger.WithFields(log.Fields{
			"category":     a.Classification.Category,
			"source":       a.Classification.Source,
			"verification": a.Verification.Total,
			"risk":         a.Risk.RiskLevel,
		}).Info("Analysis job complete")
		return nil
	}
}

func lastAttempt(ctx context.Context) bool {
	retried, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return true
	}
	return retried >= maxRetry
}
