package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"veracity/internal/config"
	"veracity/internal/costtracker"
	"veracity/pkg/classifier"
)

// Generation is the text of a model reply plus its token usage.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// TextGenerator produces a single completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// genaiGenerator adapts a genai.GenerativeModel to TextGenerator.
type genaiGenerator struct {
	model *genai.GenerativeModel
}

func (g *genaiGenerator) Generate(ctx context.Context, prompt string) (Generation, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Generation{}, err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Generation{}, errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	gen := Generation{Text: sb.String()}
	if resp.UsageMetadata != nil {
		gen.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		gen.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return gen, nil
}

// Gemini classifies text through Google's generative models.
type Gemini struct {
	generator      TextGenerator
	client         *genai.Client
	model          string
	promptTemplate string

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewGemini wraps an existing generator. A nil generator yields an adapter
// that always fails with ErrNotConfigured.
func NewGemini(gen TextGenerator, model, prompt string, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *Gemini {
	if prompt == "" {
		prompt = DefaultModerationPrompt
	}
	return &Gemini{
		generator:      gen,
		model:          model,
		promptTemplate: prompt,
		costTracker:    costTracker,
		pricing:        pricing,
	}
}

// NewGeminiFromConfig creates the genai client. Without an API key the
// adapter is returned disabled rather than failing startup.
func NewGeminiFromConfig(ctx context.Context, cfg *config.Config, tracker costtracker.CostTracker) (*Gemini, error) {
	g := NewGemini(nil, cfg.Providers.Gemini.Model, LoadPrompt(cfg.Providers.Gemini.Prompt), tracker, cfg.Pricing[config.ProviderGemini])

	apiKey := cfg.Providers.Gemini.ApiKey
	if apiKey == "" {
		log.Debug("Gemini API key not provided. Gemini provider will be disabled.")
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Providers.Gemini.Model)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0)

	g.client = client
	g.generator = &genaiGenerator{model: model}
	log.Infof("Gemini provider initialized with model %s", cfg.Providers.Gemini.Model)
	return g, nil
}

func (p *Gemini) Name() string { return config.ProviderGemini }

func (p *Gemini) Classify(ctx context.Context, text string) (classifier.Result, error) {
	if p.generator == nil {
		return classifier.Result{}, ErrNotConfigured
	}

	gen, err := p.generator.Generate(ctx, RenderPrompt(p.promptTemplate, text))
	if err != nil {
		return classifier.Result{}, fmt.Errorf("Gemini API error generating content: %w", err)
	}

	p.recordCost(ctx, gen.InputTokens, gen.OutputTokens)

	res, err := ParseVerdict(gen.Text)
	if err != nil {
		return classifier.Result{}, fmt.Errorf("gemini: %w", err)
	}
	if res.Explanation == "" {
		res.Explanation = fmt.Sprintf("Gemini %s classification", p.model)
	}
	return res, nil
}

func (p *Gemini) recordCost(ctx context.Context, in, out int) {
	if p.costTracker == nil || in+out == 0 {
		return
	}
	price, ok := p.pricing[p.model]
	if !ok {
		log.Debugf("Pricing info not found for model '%s'. Cannot record cost for classification.", p.model)
		return
	}
	event := costtracker.CostEvent{
		Operation:    "classification",
		Provider:     config.ProviderGemini,
		Model:        p.model,
		InputTokens:  in,
		OutputTokens: out,
		AmountUSD:    costtracker.Estimate(price, in, out),
		Details: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := p.costTracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record usage for gemini classification: %v", err)
	}
}

// Close cleans up the Gemini client resources.
func (p *Gemini) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

var _ Provider = (*Gemini)(nil)
