package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/internal/costtracker"
)

// Status describes one provider for status listings.
type Status struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Enabled    bool   `json:"enabled"`
}

// FromConfig builds every known adapter. Adapters without credentials are
// included but fail with ErrNotConfigured, so single-provider requests for
// them fall back to local. The returned closers release client resources.
func FromConfig(ctx context.Context, cfg *config.Config, tracker costtracker.CostTracker) (*Set, []io.Closer, error) {
	var closers []io.Closer

	gemini, err := NewGeminiFromConfig(ctx, cfg, tracker)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini: %w", err)
	}
	closers = append(closers, gemini)

	perspective, err := NewPerspectiveFromConfig(ctx, cfg)
	if err != nil {
		CloseAll(closers)
		return nil, nil, fmt.Errorf("perspective: %w", err)
	}

	httpClient := &http.Client{}
	set := NewSet(
		gemini,
		NewOpenAIFromConfig(cfg, tracker),
		perspective,
		NewHuggingFace(httpClient, cfg),
	)
	log.Debugf("Providers built: %v (enabled for combined mode: %v)", set.Names(), cfg.EnabledProviders())
	return set, closers, nil
}

// Statuses reports credential and combined-mode status for every known provider.
func Statuses(cfg *config.Config) []Status {
	enabled := make(map[string]bool)
	for _, n := range cfg.EnabledProviders() {
		enabled[n] = true
	}
	out := make([]Status, 0, len(config.KnownProviders()))
	for _, name := range config.KnownProviders() {
		out = append(out, Status{Name: name, Configured: cfg.HasCredentials(name), Enabled: enabled[name]})
	}
	return out
}

// CloseAll closes every closer, logging failures.
func CloseAll(closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warnf("Error closing provider client: %v", err)
		}
	}
}
