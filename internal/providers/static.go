package providers

import (
	"context"
	"time"

	"veracity/pkg/classifier"
)

// Static returns a fixed result (or error), optionally after a delay. It is
// used in tests and for offline runs.
type Static struct {
	ProviderName string
	Result       classifier.Result
	Err          error
	Delay        time.Duration
}

func (s *Static) Name() string { return s.ProviderName }

func (s *Static) Classify(ctx context.Context, text string) (classifier.Result, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return classifier.Result{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return classifier.Result{}, s.Err
	}
	return s.Result, nil
}

var _ Provider = (*Static)(nil)
