package costtracker

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/internal/metrics"
)

// CostEvent represents a single provider usage event and its cost.
type CostEvent struct {
	Operation    string // e.g. "classification"
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	AmountUSD    float64
	Details      map[string]interface{}
}

// CostTracker provides methods to record and report costs.
type CostTracker interface {
	RecordCost(ctx context.Context, event CostEvent) error
	TotalCost(ctx context.Context) (float64, error)
}

// Estimate prices a call from token counts.
func Estimate(price config.PricingInfo, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*price.InputPerToken + float64(outputTokens)*price.OutputPerToken
}

// New returns an in-process tracker that keeps a running total and exports it
// to prometheus.
func New() CostTracker {
	return &memoryCostTracker{}
}

type memoryCostTracker struct {
	mu    sync.Mutex
	total float64
}

func (t *memoryCostTracker) RecordCost(ctx context.Context, event CostEvent) error {
	t.mu.Lock()
	t.total += event.AmountUSD
	t.mu.Unlock()

	metrics.ProviderCostUSD.WithLabelValues(event.Provider, event.Model).Add(event.AmountUSD)
	log.Debugf("Recorded provider usage: Provider=%s, Operation=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
		event.Provider, event.Operation, event.Model, event.InputTokens, event.OutputTokens, event.AmountUSD)
	return nil
}

func (t *memoryCostTracker) TotalCost(ctx context.Context) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total, nil
}

// Noop discards everything. Handy for tests and disabled pricing.
func Noop() CostTracker {
	return &noopCostTracker{}
}

type noopCostTracker struct{}

func (n *noopCostTracker) RecordCost(ctx context.Context, event CostEvent) error { return nil }
func (n *noopCostTracker) TotalCost(ctx context.Context) (float64, error)        { return 0, nil }
