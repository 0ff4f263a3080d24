package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/internal/costtracker"
	"veracity/pkg/classifier"
)

// ChatCompleter is the slice of the go-openai client the adapter needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI classifies text with a chat completion and a moderation prompt.
type OpenAI struct {
	client         ChatCompleter
	model          string
	promptTemplate string

	// Dependencies for cost tracking
	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewOpenAI creates the adapter around an OpenAI-compatible client. A nil
// client yields an adapter that always fails with ErrNotConfigured.
func NewOpenAI(client ChatCompleter, model, prompt string, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *OpenAI {
	if prompt == "" {
		prompt = DefaultModerationPrompt
	}
	return &OpenAI{
		client:         client,
		model:          model,
		promptTemplate: prompt,
		costTracker:    costTracker,
		pricing:        pricing,
	}
}

// NewOpenAIFromConfig builds the adapter with a real go-openai client.
func NewOpenAIFromConfig(cfg *config.Config, tracker costtracker.CostTracker) *OpenAI {
	var client ChatCompleter
	if key := cfg.Providers.OpenAI.ApiKey; key != "" {
		client = openai.NewClient(key)
	}
	return NewOpenAI(client, cfg.Providers.OpenAI.Model, LoadPrompt(cfg.Providers.OpenAI.Prompt), tracker, cfg.Pricing[config.ProviderOpenAI])
}

func (p *OpenAI) Name() string { return config.ProviderOpenAI }

func (p *OpenAI) Classify(ctx context.Context, text string) (classifier.Result, error) {
	if p.client == nil {
		return classifier.Result{}, ErrNotConfigured
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: RenderPrompt(p.promptTemplate, text),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return classifier.Result{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return classifier.Result{}, fmt.Errorf("no choices returned from OpenAI")
	}

	p.recordCost(ctx, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	res, err := ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return classifier.Result{}, fmt.Errorf("openai: %w", err)
	}
	if res.Explanation == "" {
		res.Explanation = fmt.Sprintf("OpenAI %s classification", p.model)
	}
	return res, nil
}

func (p *OpenAI) recordCost(ctx context.Context, in, out int) {
	if p.costTracker == nil || in+out == 0 {
		return
	}
	price, ok := p.pricing[p.model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost for classification.", p.model)
		return
	}
	event := costtracker.CostEvent{
		Operation:    "classification",
		Provider:     config.ProviderOpenAI,
		Model:        p.model,
		InputTokens:  in,
		OutputTokens: out,
		AmountUSD:    costtracker.Estimate(price, in, out),
		Details: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := p.costTracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record usage for openai classification: %v", err)
	}
}

var _ Provider = (*OpenAI)(nil)
