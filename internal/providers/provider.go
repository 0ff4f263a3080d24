package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veracity/pkg/classifier"
)

// Provider is the capability every external classification source implements.
// Implementations translate their own response into the canonical
// classifier.Result and honour the deadline carried by ctx.
type Provider interface {
	Name() string
	Classify(ctx context.Context, text string) (classifier.Result, error)
}

// Reasons recorded on a ProviderError.
const (
	ReasonTimeout         = "timeout"
	ReasonCancelled       = "cancelled"
	ReasonError           = "error"
	ReasonUnknownProvider = "unknown_provider"
	ReasonNotConfigured   = "not_configured"
)

// ErrNotConfigured is returned by adapters built without credentials.
var ErrNotConfigured = errors.New("provider not configured")

// ProviderError records a single adapter failure. It is attached to results
// for diagnostics and never aborts a request on its own.
type ProviderError struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Reason, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError classifies err into a reason. ctx is the per-call context,
// used to tell a timeout from a caller cancellation.
func NewProviderError(ctx context.Context, name string, err error) *ProviderError {
	reason := ReasonError
	switch {
	case errors.Is(err, ErrNotConfigured):
		reason = ReasonNotConfigured
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		reason = ReasonCancelled
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ProviderError{Provider: name, Reason: reason, Message: msg, Err: err}
}

// Outcome is the result of one provider call: either Result or Err is set,
// never both.
type Outcome struct {
	Provider string
	Result   *classifier.Result
	Err      *ProviderError
	Elapsed  time.Duration
}

// Failed reports whether the call produced an error instead of a result.
func (o Outcome) Failed() bool { return o.Err != nil }

// Call invokes p under its own timeout and folds the answer into an Outcome.
// A zero timeout means "inherit the parent deadline only".
func Call(ctx context.Context, p Provider, text string, timeout time.Duration) Outcome {
	callCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	res, err := p.Classify(callCtx, text)
	elapsed := time.Since(start)

	// an adapter that ignores ctx still loses once the deadline has passed
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		return Outcome{Provider: p.Name(), Err: NewProviderError(callCtx, p.Name(), err), Elapsed: elapsed}
	}

	res.Source = p.Name()
	res.Normalize()
	return Outcome{Provider: p.Name(), Result: &res, Elapsed: elapsed}
}

// Set is an ordered collection of providers keyed by name.
type Set struct {
	order  []string
	byName map[string]Provider
}

func NewSet(ps ...Provider) *Set {
	s := &Set{byName: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		if p == nil {
			continue
		}
		if _, dup := s.byName[p.Name()]; dup {
			continue
		}
		s.order = append(s.order, p.Name())
		s.byName[p.Name()] = p
	}
	return s
}

// Get returns the named provider.
func (s *Set) Get(name string) (Provider, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byName[name]
	return p, ok
}

// All returns providers in call order.
func (s *Set) All() []Provider {
	if s == nil {
		return nil
	}
	out := make([]Provider, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

// Names returns provider names in call order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}
