package config

import (
	"errors"
	"fmt"
	"strings"
)

/*
Validate checks every section the engine reads at request time:
- Analysis mode and provider names
- Timeouts, boost and insufficient-evidence thresholds
- Verification rubric weights
- Worker (only when redis is configured)
- Log level/format
- Pricing (if present)
*/
func (c *Config) Validate() error {
	known := map[string]bool{}
	for _, p := range KnownProviders() {
		known[p] = true
	}

	// Analysis config
	switch c.Analysis.Mode {
	case ModeLocalOnly, ModeCombined, ModeAuto:
	case ModeSingleProvider:
		if c.Analysis.Provider == "" {
			return errors.New("analysis.provider is required when analysis.mode is single_provider")
		}
	default:
		return fmt.Errorf("analysis.mode %q must be one of local_only, single_provider, combined, auto", c.Analysis.Mode)
	}
	if c.Analysis.Provider != "" && !known[c.Analysis.Provider] {
		return fmt.Errorf("analysis.provider %q is not a known provider (%s)", c.Analysis.Provider, strings.Join(KnownProviders(), ", "))
	}
	for _, p := range c.Analysis.Providers {
		if !known[p] {
			return fmt.Errorf("analysis.providers contains unknown provider %q", p)
		}
	}
	for _, p := range c.Analysis.Priority {
		if !known[p] && p != SourceLocal {
			return fmt.Errorf("analysis.priority contains unknown source %q", p)
		}
	}
	if c.Analysis.ProviderTimeout <= 0 {
		return errors.New("analysis.provider_timeout must be positive")
	}
	if c.Analysis.OverallTimeout < c.Analysis.ProviderTimeout {
		return fmt.Errorf("analysis.overall_timeout (%s) must not be shorter than provider_timeout (%s)", c.Analysis.OverallTimeout, c.Analysis.ProviderTimeout)
	}
	if c.Analysis.AgreementBoost < 1 {
		return errors.New("analysis.agreement_boost must be >= 1")
	}
	if c.Analysis.AgreementBoostCeiling <= 0 || c.Analysis.AgreementBoostCeiling > 1 {
		return errors.New("analysis.agreement_boost_ceiling must be in (0, 1]")
	}
	if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 1 {
		return errors.New("analysis.min_confidence must be in [0, 1]")
	}
	if c.Analysis.MinScore < 0 {
		return errors.New("analysis.min_score must be non-negative")
	}
	if c.Analysis.KeywordLimit <= 0 {
		return errors.New("analysis.keyword_limit must be positive")
	}

	// Verification config
	if c.Verification.MetadataTimeout <= 0 {
		return errors.New("verification.metadata_timeout must be positive")
	}
	r := c.Verification.Rubric
	weights := map[string]int{
		"url_pattern":     r.URLPattern,
		"verified_author": r.VerifiedAuthor,
		"profile_url":     r.ProfileURL,
		"content_quality": r.ContentQuality,
		"content_short":   r.ContentShort,
		"content_long":    r.ContentLong,
		"metadata_field":  r.MetadataField,
		"engagement":      r.Engagement,
	}
	for name, w := range weights {
		if w < 0 || w > 100 {
			return fmt.Errorf("verification.rubric.%s must be in [0, 100], got %d", name, w)
		}
	}
	if r.ContentShort > r.ContentQuality || r.ContentLong > r.ContentQuality {
		return errors.New("verification.rubric partial content credit cannot exceed content_quality")
	}

	// Worker config, only relevant with a queue backend
	if c.Redis.Address != "" {
		if c.Worker.Concurrency <= 0 {
			return errors.New("worker.concurrency must be a positive integer")
		}
		if len(c.Worker.Queues) == 0 {
			return errors.New("worker.queues must define at least one queue")
		}
		for name, priority := range c.Worker.Queues {
			if name == "" {
				return errors.New("worker.queues contains an empty queue name")
			}
			if priority <= 0 {
				return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
			}
		}
	}

	// Log config
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	// Pricing config (optional, but if present, must be valid)
	for provider, models := range c.Pricing {
		if provider == "" {
			return errors.New("pricing contains an empty provider name")
		}
		for model, price := range models {
			if model == "" {
				return fmt.Errorf("pricing for provider '%s' contains an empty model name", provider)
			}
			if price.InputPerToken < 0 || price.OutputPerToken < 0 {
				return fmt.Errorf("pricing for provider '%s', model '%s' has negative token cost", provider, model)
			}
		}
	}

	return nil
}
