package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"veracity/internal/config"
	"veracity/internal/metrics"
	"veracity/internal/providers"
	"veracity/pkg/classifier"
)

// Options controls provider calls and combination.
type Options struct {
	ProviderTimeout time.Duration
	OverallTimeout  time.Duration
	Boost           Boost
	// Priority breaks majority-vote ties. "local" may be listed.
	Priority []string
	// Combined lists the providers called in combined mode, in order.
	Combined []string
	// Escalation is the mode auto requests use when ShouldEscalate accepts the text.
	Escalation Mode
}

// OptionsFromConfig derives analyzer options from a config snapshot.
func OptionsFromConfig(cfg *config.Config) Options {
	escalation := Combined()
	if cfg.Analysis.Provider != "" {
		escalation = SingleProvider(cfg.Analysis.Provider)
	}
	return Options{
		ProviderTimeout: cfg.Analysis.ProviderTimeout,
		OverallTimeout:  cfg.Analysis.OverallTimeout,
		Boost:           Boost{Factor: cfg.Analysis.AgreementBoost, Ceiling: cfg.Analysis.AgreementBoostCeiling},
		Priority:        append([]string(nil), cfg.Analysis.Priority...),
		Combined:        cfg.EnabledProviders(),
		Escalation:      escalation,
	}
}

// Analyzer reconciles the lexical classifier with external providers.
// It holds no per-request state and is safe for concurrent use.
type Analyzer struct {
	lexical   *classifier.Lexical
	providers *providers.Set
	opts      Options
}

func NewAnalyzer(lexical *classifier.Lexical, set *providers.Set, opts Options) *Analyzer {
	if opts.Boost.Factor == 0 {
		opts.Boost = Boost{Factor: 1.2, Ceiling: 0.9}
	}
	if opts.Escalation.Kind == "" || opts.Escalation.Kind == KindAuto {
		opts.Escalation = Combined()
	}
	return &Analyzer{lexical: lexical, providers: set, opts: opts}
}

// Providers returns the provider set the analyzer calls.
func (a *Analyzer) Providers() *providers.Set { return a.providers }

// Options returns the analyzer's options.
func (a *Analyzer) Options() Options { return a.opts }

// Analyze classifies text under mode. Invalid input fails with
// classifier.ErrInvalidInput. In combined mode, when every configured
// provider failed, the local result is returned together with an error
// matching ErrAllProvidersFailed.
func (a *Analyzer) Analyze(ctx context.Context, text string, mode Mode) (Result, error) {
	local, err := a.lexical.Classify(text)
	if err != nil {
		return Result{}, fmt.Errorf("analyze: %w", err)
	}

	if mode.Kind == KindAuto {
		if ShouldEscalate(text) {
			mode = a.opts.Escalation
		} else {
			mode = LocalOnly()
		}
	}

	var res Result
	switch mode.Kind {
	case KindLocalOnly:
		res = fromLocal(local, SourceLocal, mode)
	case KindSingleProvider:
		res = a.single(ctx, text, local, mode)
	case KindCombined:
		res, err = a.combined(ctx, text, local, mode)
	default:
		return Result{}, fmt.Errorf("analyze: unknown mode %q", mode.Kind)
	}

	metrics.Classifications.WithLabelValues(string(mode.Kind), res.Source, string(res.Category)).Inc()
	if res.NeedsReview {
		metrics.Disagreements.Inc()
	}
	return res, err
}

func (a *Analyzer) single(ctx context.Context, text string, local classifier.Result, mode Mode) Result {
	var out providers.Outcome
	if p, ok := a.providers.Get(mode.Provider); ok {
		out = providers.Call(ctx, p, text, a.opts.ProviderTimeout)
	} else {
		out = unknownProvider(mode.Provider)
	}
	observe(out)

	if out.Failed() {
		res := fromLocal(local, SourceLocalFallback, mode)
		res.ProviderErrors = []providers.ProviderError{*out.Err}
		res.Cancelled = errors.Is(ctx.Err(), context.Canceled)
		return res
	}

	res := combineHybrid(local, *out.Result, a.opts.Boost)
	res.Mode = mode.String()
	return res
}

func (a *Analyzer) combined(ctx context.Context, text string, local classifier.Result, mode Mode) (Result, error) {
	names := a.opts.Combined
	if len(names) == 0 {
		return fromLocal(local, SourceLocal, mode), nil
	}

	outcomes := a.fanOut(ctx, text, names)

	var exts []classifier.Result
	var failures []providers.ProviderError
	for _, out := range outcomes {
		observe(out)
		if out.Failed() {
			failures = append(failures, *out.Err)
			continue
		}
		exts = append(exts, *out.Result)
	}
	cancelled := errors.Is(ctx.Err(), context.Canceled)

	var res Result
	switch len(exts) {
	case 0:
		res = fromLocal(local, SourceLocalFallback, mode)
	case 1:
		res = combineHybrid(local, exts[0], a.opts.Boost)
	default:
		res = combineMajority(local, exts, a.opts.Priority)
	}
	res.Mode = mode.String()
	res.ProviderErrors = failures
	res.Cancelled = cancelled

	if len(exts) == 0 && !cancelled {
		metrics.AllProvidersFailed.Inc()
		return res, &AllProvidersFailedError{Errors: failures}
	}
	return res, nil
}

// fanOut calls every named provider concurrently and returns one outcome per
// name, in order. It returns as soon as all calls settle or ctx (bounded by
// the overall timeout) is done; calls still running at that point are
// recorded as timed out or cancelled.
func (a *Analyzer) fanOut(ctx context.Context, text string, names []string) []providers.Outcome {
	if a.opts.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.OverallTimeout)
		defer cancel()
	}

	settled := make(chan settledOutcome, len(names))

	var g errgroup.Group
	g.SetLimit(len(names))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			p, ok := a.providers.Get(name)
			if !ok {
				settled <- settledOutcome{i, unknownProvider(name)}
				return nil
			}
			settled <- settledOutcome{i, providers.Call(ctx, p, text, a.opts.ProviderTimeout)}
			return nil
		})
	}

	outcomes := make([]providers.Outcome, len(names))
	done := make([]bool, len(names))
	for remaining := len(names); remaining > 0; remaining-- {
		select {
		case s := <-settled:
			outcomes[s.i] = s.out
			done[s.i] = true
		case <-ctx.Done():
			// keep anything that settled alongside the deadline
			for drained := false; !drained; {
				select {
				case s := <-settled:
					outcomes[s.i] = s.out
					done[s.i] = true
				default:
					drained = true
				}
			}
			for i, name := range names {
				if !done[i] {
					outcomes[i] = providers.Outcome{Provider: name, Err: providers.NewProviderError(ctx, name, ctx.Err())}
				}
			}
			return outcomes
		}
	}
	_ = g.Wait()
	return outcomes
}

type settledOutcome struct {
	i   int
	out providers.Outcome
}

func unknownProvider(name string) providers.Outcome {
	return providers.Outcome{
		Provider: name,
		Err: &providers.ProviderError{
			Provider: name,
			Reason:   providers.ReasonUnknownProvider,
			Message:  fmt.Sprintf("no provider named %q", name),
		},
	}
}

func observe(out providers.Outcome) {
	outcome := "ok"
	if out.Failed() {
		outcome = out.Err.Reason
		log.WithFields(log.Fields{
			"provider": out.Provider,
			"reason":   out.Err.Reason,
			"elapsed":  out.Elapsed,
		}).Warnf("Provider call failed: %s", out.Err.Message)
	}
	metrics.ProviderCalls.WithLabelValues(out.Provider, outcome).Inc()
	if out.Elapsed > 0 {
		metrics.ProviderLatency.WithLabelValues(out.Provider).Observe(out.Elapsed.Seconds())
	}
}
