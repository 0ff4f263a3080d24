package consensus

import (
	"veracity/internal/providers"
	"veracity/pkg/classifier"
)

// Source tags on a consensus result.
const (
	SourceLocal         = "local"
	SourceLocalFallback = "local_fallback"
	SourceHybrid        = "hybrid"
	SourceConsensus     = "consensus"
)

// Result is the final classification for one request. NeedsReview is set
// exactly when Agreement is false and at least one external source responded.
type Result struct {
	classifier.Result

	Mode                string                    `json:"mode"`
	Agreement           bool                      `json:"agreement"`
	AgreementBoost      bool                      `json:"agreement_boost"`
	NeedsReview         bool                      `json:"needs_review"`
	LocalCategory       classifier.Category       `json:"local_category"`
	ExternalCategory    *classifier.Category      `json:"external_category,omitempty"`
	DisagreementReason  *string                   `json:"disagreement_reason,omitempty"`
	ContributingSources []string                  `json:"contributing_sources"`
	LocalSentiment      *classifier.Sentiment     `json:"local_sentiment,omitempty"`
	ExternalSentiment   *classifier.Sentiment     `json:"external_sentiment,omitempty"`
	ProviderErrors      []providers.ProviderError `json:"provider_errors,omitempty"`
	Cancelled           bool                      `json:"cancelled,omitempty"`
}

// fromLocal wraps a lexical result with no external opinion.
func fromLocal(local classifier.Result, source string, mode Mode) Result {
	local.Source = source
	local.Normalize()
	sentiment := local.Sentiment
	return Result{
		Result:              local,
		Mode:                mode.String(),
		Agreement:           true,
		LocalCategory:       local.Category,
		ContributingSources: []string{SourceLocal},
		LocalSentiment:      &sentiment,
	}
}
