package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/internal/consensus"
	"veracity/internal/costtracker"
	"veracity/internal/inputprocessor"
	"veracity/internal/metadata"
	"veracity/internal/providers"
	"veracity/internal/verification"
	"veracity/pkg/classifier"
)

// Assessment is the full verification record for one submission.
type Assessment struct {
	ID             string                      `json:"id"`
	Classification consensus.Result            `json:"classification"`
	Verification   verification.Score          `json:"verification"`
	Risk           verification.RiskAssessment `json:"risk"`
	Metadata       *metadata.PageMetadata      `json:"metadata,omitempty"`
	AssessedAt     time.Time                   `json:"assessed_at"`
}

// snapshot is everything built from one config. Requests take a snapshot
// once and use it throughout.
type snapshot struct {
	cfg      *config.Config
	mode     consensus.Mode
	lexical  *classifier.Lexical
	analyzer *consensus.Analyzer
	scorer   *verification.Scorer
	closers  []io.Closer
}

// Option customises an Engine.
type Option func(*Engine)

// WithProviders pins the provider set instead of building it from config.
func WithProviders(set *providers.Set) Option {
	return func(e *Engine) { e.fixedProviders = set }
}

// WithFetcher replaces the HTTP metadata fetcher.
func WithFetcher(f metadata.Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithCostTracker records provider spend.
func WithCostTracker(t costtracker.CostTracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// Engine exposes Classify, Score and Assess over the current config snapshot.
// A config swap rebuilds the analyzer and scorer; requests in flight keep
// the snapshot they started with.
type Engine struct {
	store          *config.Store
	fixedProviders *providers.Set
	fetcher        metadata.Fetcher
	tracker        costtracker.CostTracker

	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serialises rebuilds
}

// New builds an engine over store and subscribes it to config swaps.
func New(ctx context.Context, store *config.Store, opts ...Option) (*Engine, error) {
	e := &Engine{store: store, tracker: costtracker.Noop()}
	for _, opt := range opts {
		opt(e)
	}

	snap, err := e.build(ctx, store.Load())
	if err != nil {
		return nil, err
	}
	e.current.Store(snap)

	store.Subscribe(func(cfg *config.Config) {
		if err := e.rebuild(context.Background(), cfg); err != nil {
			log.Errorf("Failed to rebuild engine for new configuration: %v", err)
		}
	})
	return e, nil
}

func (e *Engine) build(ctx context.Context, cfg *config.Config) (*snapshot, error) {
	mode, err := consensus.FromConfig(cfg.Analysis)
	if err != nil {
		return nil, err
	}

	set := e.fixedProviders
	var closers []io.Closer
	if set == nil {
		set, closers, err = providers.FromConfig(ctx, cfg, e.tracker)
		if err != nil {
			return nil, fmt.Errorf("failed to build providers: %w", err)
		}
	}

	fetcher := e.fetcher
	if fetcher == nil {
		fetcher = metadata.NewHTTPFetcher(&http.Client{}, cfg.Verification.MetadataTimeout, cfg.Verification.UserAgent)
	}

	lexical := classifier.NewLexical(classifier.Options{
		MinConfidence: cfg.Analysis.MinConfidence,
		MinScore:      cfg.Analysis.MinScore,
		KeywordLimit:  cfg.Analysis.KeywordLimit,
	})

	opts := consensus.OptionsFromConfig(cfg)
	if e.fixedProviders != nil && len(cfg.Analysis.Providers) == 0 {
		// injected providers count as configured
		opts.Combined = set.Names()
	}

	return &snapshot{
		cfg:      cfg,
		mode:     mode,
		lexical:  lexical,
		analyzer: consensus.NewAnalyzer(lexical, set, opts),
		scorer:   verification.NewScorer(cfg.Verification.Rubric, fetcher),
		closers:  closers,
	}, nil
}

func (e *Engine) rebuild(ctx context.Context, cfg *config.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.build(ctx, cfg)
	if err != nil {
		return err
	}
	old := e.current.Swap(snap)
	log.Infof("Engine rebuilt: mode=%s providers=%v", snap.mode, snap.analyzer.Providers().Names())

	if old != nil && len(old.closers) > 0 {
		// give requests on the old snapshot time to finish
		grace := old.cfg.Analysis.OverallTimeout + time.Second
		time.AfterFunc(grace, func() { providers.CloseAll(old.closers) })
	}
	return nil
}

// Config returns the snapshot's configuration.
func (e *Engine) Config() *config.Config { return e.current.Load().cfg }

// DefaultMode is the configured consensus mode.
func (e *Engine) DefaultMode() consensus.Mode { return e.current.Load().mode }

// ProviderNames lists the providers the current analyzer can call.
func (e *Engine) ProviderNames() []string {
	return e.current.Load().analyzer.Providers().Names()
}

// Classify normalises text and runs it through the consensus analyzer. A
// zero mode means the configured default.
func (e *Engine) Classify(ctx context.Context, text string, mode consensus.Mode) (consensus.Result, error) {
	return e.classify(ctx, e.current.Load(), text, mode)
}

func (e *Engine) classify(ctx context.Context, snap *snapshot, text string, mode consensus.Mode) (consensus.Result, error) {
	if mode.Kind == "" {
		mode = snap.mode
	}
	clean, err := normalize(text)
	if err != nil {
		return consensus.Result{}, err
	}
	return snap.analyzer.Analyze(ctx, clean, mode)
}

// ClassifyBatch runs the lexical classifier alone over every text. A text
// that fails normalisation keeps its own error and is not classified.
func (e *Engine) ClassifyBatch(texts []string) []classifier.BatchItem {
	snap := e.current.Load()
	items := make([]classifier.BatchItem, len(texts))
	for i, t := range texts {
		clean, err := normalize(t)
		if err == nil {
			var res classifier.Result
			if res, err = snap.lexical.Classify(clean); err == nil {
				items[i].Result = &res
				continue
			}
		}
		items[i].Error = err.Error()
	}
	return items
}

// Score applies the verification rubric to already-gathered inputs.
func (e *Engine) Score(sub verification.Submission, cons *consensus.Result, md *metadata.PageMetadata) (verification.Score, verification.RiskAssessment) {
	return e.current.Load().scorer.Score(sub, cons, md)
}

// Assess classifies the submission content, fetches page metadata for its
// URL when fetchMetadata is set, and scores the result. When every external
// provider fails the assessment is still built from the local fallback and
// returned together with consensus.ErrAllProvidersFailed.
func (e *Engine) Assess(ctx context.Context, sub verification.Submission, mode consensus.Mode, fetchMetadata bool) (Assessment, error) {
	if err := sub.Validate(); err != nil {
		return Assessment{}, err
	}
	snap := e.current.Load()

	cons, classifyErr := e.classify(ctx, snap, sub.Content, mode)
	if classifyErr != nil && !errors.Is(classifyErr, consensus.ErrAllProvidersFailed) {
		return Assessment{}, classifyErr
	}

	var (
		score verification.Score
		risk  verification.RiskAssessment
		md    *metadata.PageMetadata
	)
	if fetchMetadata {
		var err error
		score, risk, md, err = snap.scorer.Verify(ctx, sub, &cons)
		if err != nil {
			return Assessment{}, err
		}
	} else {
		score, risk = snap.scorer.Score(sub, &cons, nil)
	}

	return Assessment{
		ID:             uuid.NewString(),
		Classification: cons,
		Verification:   score,
		Risk:           risk,
		Metadata:       md,
		AssessedAt:     time.Now().UTC(),
	}, classifyErr
}

// Close releases provider clients.
func (e *Engine) Close() error {
	if snap := e.current.Load(); snap != nil {
		providers.CloseAll(snap.closers)
	}
	return nil
}

func normalize(text string) (string, error) {
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return "", fmt.Errorf("%w: text is not valid UTF-8 text", classifier.ErrInvalidInput)
	}
	clean, err := inputprocessor.Normalize(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", classifier.ErrInvalidInput, err)
	}
	return clean, nil
}
