package providers

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	commentanalyzer "google.golang.org/api/commentanalyzer/v1alpha1"
	"google.golang.org/api/option"

	"veracity/internal/config"
	"veracity/pkg/classifier"
)

// Perspective attribute names.
const (
	AttrToxicity = "TOXICITY"
	AttrThreat   = "THREAT"
	AttrInsult   = "INSULT"
)

// perspectiveThreshold is the summary score above which an attribute decides the category.
const perspectiveThreshold = 0.7

// AttributeScorer returns summary scores keyed by Perspective attribute name.
type AttributeScorer interface {
	Score(ctx context.Context, text string, attributes []string) (map[string]float64, error)
}

type commentAnalyzerScorer struct {
	svc       *commentanalyzer.Service
	languages []string
}

func (s *commentAnalyzerScorer) Score(ctx context.Context, text string, attributes []string) (map[string]float64, error) {
	requested := make(map[string]commentanalyzer.AttributeParameters, len(attributes))
	for _, a := range attributes {
		requested[a] = commentanalyzer.AttributeParameters{}
	}

	resp, err := s.svc.Comments.Analyze(&commentanalyzer.AnalyzeCommentRequest{
		Comment:             &commentanalyzer.TextEntry{Text: text},
		RequestedAttributes: requested,
		Languages:           s.languages,
		DoNotStore:          true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(resp.AttributeScores))
	for name, attr := range resp.AttributeScores {
		if attr.SummaryScore != nil {
			scores[name] = attr.SummaryScore.Value
		}
	}
	return scores, nil
}

// Perspective classifies text with Google's comment analyzer.
type Perspective struct {
	scorer AttributeScorer
}

func NewPerspective(scorer AttributeScorer) *Perspective {
	return &Perspective{scorer: scorer}
}

// NewPerspectiveFromConfig creates the comment analyzer service. Without an
// API key the adapter is returned disabled.
func NewPerspectiveFromConfig(ctx context.Context, cfg *config.Config) (*Perspective, error) {
	apiKey := cfg.Providers.Perspective.ApiKey
	if apiKey == "" {
		log.Debug("Perspective API key not provided. Perspective provider will be disabled.")
		return NewPerspective(nil), nil
	}
	svc, err := commentanalyzer.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Perspective client: %w", err)
	}
	return NewPerspective(&commentAnalyzerScorer{svc: svc, languages: cfg.Providers.Perspective.Languages}), nil
}

func (p *Perspective) Name() string { return config.ProviderPerspective }

func (p *Perspective) Classify(ctx context.Context, text string) (classifier.Result, error) {
	if p.scorer == nil {
		return classifier.Result{}, ErrNotConfigured
	}

	scores, err := p.scorer.Score(ctx, text, []string{AttrToxicity, AttrThreat, AttrInsult})
	if err != nil {
		return classifier.Result{}, fmt.Errorf("perspective analyze failed: %w", err)
	}
	return perspectiveResult(scores[AttrToxicity], scores[AttrThreat], scores[AttrInsult]), nil
}

// perspectiveResult turns the three summary scores into a Result. Threat wins
// over insult, insult over plain toxicity.
func perspectiveResult(toxicity, threat, insult float64) classifier.Result {
	category := classifier.CategoryOther
	switch {
	case threat > perspectiveThreshold:
		category = classifier.CategoryViolence
	case insult > perspectiveThreshold:
		category = classifier.CategoryCyberbullying
	case toxicity > perspectiveThreshold:
		category = classifier.CategoryHarassment
	}

	sentiment := classifier.Sentiment{Score: 0, Label: classifier.SentimentNeutral}
	if toxicity > 0.5 {
		sentiment = classifier.Sentiment{Score: -toxicity, Label: classifier.SentimentNegative}
	}

	res := classifier.Result{
		Category:   category,
		Confidence: max(toxicity, threat, insult),
		Sentiment:  sentiment,
		Toxicity: classifier.Toxicity{
			Score: toxicity,
			Contributions: []classifier.Contribution{
				{Name: "toxicity", Score: toxicity},
				{Name: "threat", Score: threat},
				{Name: "insult", Score: insult},
			},
		},
		Explanation: fmt.Sprintf("Perspective: toxicity %.2f, threat %.2f, insult %.2f", toxicity, threat, insult),
	}
	res.Normalize()
	return res
}

var _ Provider = (*Perspective)(nil)
